package schema

import (
	"context"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Registry is a concurrency-safe cache of all known schemas. It is loaded
// once at startup from the metadata tables and can be re-loaded at runtime;
// readers always see a consistent snapshot.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register adds or replaces a schema. Used for builtin schemas and tests.
func (r *Registry) Register(s *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Name] = s
}

// Get returns the schema with the given name, or nil.
func (r *Registry) Get(name string) *Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[name]
}

// ByEndpoint returns the schema addressable under the given endpoint path
// fragment ("dataElements"), or nil.
func (r *Registry) ByEndpoint(endpoint string) *Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.schemas {
		if s.RelativeAPIEndpoint == "/"+endpoint {
			return s
		}
	}
	return nil
}

// SchemaCount returns the number of loaded schemas.
func (r *Registry) SchemaCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// Load replaces the registry content from the metadata tables.
func (r *Registry) Load(ctx context.Context, pool *pgxpool.Pool) error {
	query, args, err := sq.
		Select(
			"s.id", "s.name", "s.relative_api_endpoint", "s.discriminator",
			"p.name", "p.field_name", "p.type", "p.klass", "p.item_klass",
			"p.storage_column", "p.persisted", "p.collection", "p.translatable",
			"p.required", "p.identifiable", "p.owning_role", "p.translation_key",
		).
		From("metadata.schemas s").
		LeftJoin("metadata.properties p ON p.schema_id = s.id").
		OrderBy("s.name", "p.position").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("schema registry query: %w", err)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("schema registry load: %w", err)
	}
	defer rows.Close()

	schemas := make(map[string]*Schema)

	for rows.Next() {
		var (
			sID            uuid.UUID
			sName          string
			sEndpoint      *string
			sDiscriminator *string
			pName          *string
			pFieldName     *string
			pType          *string
			pKlass         *string
			pItemKlass     *string
			pStorageColumn *string
			pPersisted     *bool
			pCollection    *bool
			pTranslatable  *bool
			pRequired      *bool
			pIdentifiable  *bool
			pOwningRole    *string
			pTransKey      *string
		)

		err := rows.Scan(
			&sID, &sName, &sEndpoint, &sDiscriminator,
			&pName, &pFieldName, &pType, &pKlass, &pItemKlass,
			&pStorageColumn, &pPersisted, &pCollection, &pTranslatable,
			&pRequired, &pIdentifiable, &pOwningRole, &pTransKey,
		)
		if err != nil {
			return fmt.Errorf("schema registry scan: %w", err)
		}

		s, exists := schemas[sName]
		if !exists {
			s = &Schema{Name: sName}
			if sEndpoint != nil {
				s.RelativeAPIEndpoint = *sEndpoint
			}
			if sDiscriminator != nil {
				s.Discriminator = *sDiscriminator
			}
			schemas[sName] = s
		}

		if pName != nil {
			p := Property{
				Name:          *pName,
				Type:          PropertyType(deref(pType)),
				Klass:         deref(pKlass),
				ItemKlass:     deref(pItemKlass),
				FieldName:     deref(pFieldName),
				StorageColumn: pStorageColumn,
				OwningRole:    deref(pOwningRole),
			}
			if pPersisted != nil {
				p.Persisted = *pPersisted
			}
			if pCollection != nil {
				p.Collection = *pCollection
			}
			if pTranslatable != nil {
				p.Translatable = *pTranslatable
			}
			if pRequired != nil {
				p.Required = *pRequired
			}
			if pIdentifiable != nil {
				p.Identifiable = *pIdentifiable
			}
			if pTransKey != nil {
				p.TranslationKey = *pTransKey
			}
			s.Properties = append(s.Properties, p)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("schema registry rows: %w", err)
	}

	for _, s := range schemas {
		s.index()
	}

	r.mu.Lock()
	r.schemas = schemas
	r.mu.Unlock()

	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
