package schema

import (
	"strings"
)

// QuoteIdent quotes a SQL identifier, escaping embedded double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// PropertyType classifies the value stored for a property. Query compilation
// uses it to pick casts in filter/order position and to coerce filter values.
type PropertyType string

const (
	TypeString     PropertyType = "STRING"
	TypeInteger    PropertyType = "INTEGER"
	TypeNumber     PropertyType = "NUMBER"
	TypeBoolean    PropertyType = "BOOLEAN"
	TypeDate       PropertyType = "DATE"
	TypeIdentifier PropertyType = "IDENTIFIER"
	TypeComplex    PropertyType = "COMPLEX"
	TypeConstant   PropertyType = "CONSTANT"
)

// Property describes one declared property of a metadata schema.
type Property struct {
	// Name is the API name used in property paths.
	Name string
	// FieldName is the storage key inside the row's data document. Empty
	// means the storage key equals Name.
	FieldName string
	Type      PropertyType
	// Klass names the schema of a reference or embedded property, ItemKlass
	// the item schema of a collection. Empty for scalar properties.
	Klass     string
	ItemKlass string
	// StorageColumn is set when the property lives in a dedicated table
	// column instead of the data document (uid, created_at, ...).
	StorageColumn *string

	Persisted    bool
	Collection   bool
	Translatable bool
	Required     bool
	// Identifiable marks references to independently addressable objects.
	Identifiable bool
	// OwningRole is set on the owning side of a bidirectional relation whose
	// elements are not stored with this object.
	OwningRole string
	// TranslationKey is the key translations are recorded under; defaults to
	// Name when empty.
	TranslationKey string
}

// Key returns the storage key of the property.
func (p *Property) Key() string {
	if p.FieldName != "" {
		return p.FieldName
	}
	return p.Name
}

// TransKey returns the key used to match stored translations.
func (p *Property) TransKey() string {
	if p.TranslationKey != "" {
		return p.TranslationKey
	}
	return p.Name
}

// IsNumeric returns true if the property requires numeric casting in queries.
func (p *Property) IsNumeric() bool {
	return p.Type == TypeInteger || p.Type == TypeNumber
}

// Schema describes one metadata object type.
type Schema struct {
	Name string
	// RelativeAPIEndpoint is the URL path fragment under which objects of
	// this type are addressable ("/dataElements"). Empty means the type has
	// no endpoint of its own.
	RelativeAPIEndpoint string
	// Discriminator names the pseudo-property distinguishing subtypes of a
	// polymorphic schema; used as the pluck shortcut when set.
	Discriminator string
	Properties    []Property

	propertiesByName map[string]*Property
}

// NewSchema builds a schema and indexes its properties by name.
func NewSchema(name, endpoint string, properties ...Property) *Schema {
	s := &Schema{
		Name:                name,
		RelativeAPIEndpoint: endpoint,
		Properties:          properties,
	}
	s.index()
	return s
}

func (s *Schema) index() {
	s.propertiesByName = make(map[string]*Property, len(s.Properties))
	for i := range s.Properties {
		s.propertiesByName[s.Properties[i].Name] = &s.Properties[i]
	}
}

// Property returns the named property or nil.
func (s *Schema) Property(name string) *Property {
	if s == nil || s.propertiesByName == nil {
		return nil
	}
	return s.propertiesByName[name]
}
