package gist

import (
	"fmt"
	"strings"

	"github.com/temirkhan/gist_registry/internal/auth"
	"github.com/temirkhan/gist_registry/internal/schema"
)

// Builder is the compilation context of a single gist query: it owns the
// column index table and the transformer list for the duration of one
// compile and is not shared between compilations.
//
// Usage:
//  1. BuildFetchSQL / BuildCountSQL produce the query text.
//  2. AddFetchParameters / AddCountParameters produce the named parameters.
//  3. Transform post-processes the fetched rows.
//
// Within the SQL the naming conventions are:
//
//	o    => owner table
//	e    => element table
//	t_i  => per-field subquery tables
//	ft_i => per-filter subquery tables
type Builder struct {
	user    *auth.User
	query   Query
	context *schema.Context

	transformers     []rowTransformer
	fieldIndexByPath map[string]int
}

// NewFetchBuilder prepares compilation of the row-fetching query. The given
// query is extended with the support fields its requested fields depend on;
// the caller's query value is not modified.
func NewFetchBuilder(query Query, context *schema.Context, user *auth.User) (*Builder, error) {
	extended, err := addSupportFields(query, context)
	if err != nil {
		return nil, err
	}
	return &Builder{user: user, query: extended, context: context}, nil
}

// NewCountBuilder prepares compilation of the matching count query. Counting
// ignores fields, so no support fields are added.
func NewCountBuilder(query Query, context *schema.Context, user *auth.User) *Builder {
	return &Builder{user: user, query: query, context: context}
}

// Query returns the (possibly extended) query under compilation.
func (b *Builder) Query() Query {
	return b.query
}

// addSupportFields appends the fields other requested fields need to be fully
// computed: the sibling identifier for link synthesis and the sibling
// translations for localization. Existing fields keep their positions.
func addSupportFields(query Query, context *schema.Context) (Query, error) {
	extended := query
	for _, f := range query.Fields {
		if f.PropertyPath == RefsPath {
			continue
		}
		p, err := context.ResolveMandatory(f.PropertyPath)
		if err != nil {
			return Query{}, err
		}
		if (isPersistentCollectionField(p) || isHrefProperty(p)) &&
			!existsSameParentField(extended, f, idProperty) {
			extended = extended.WithField(pathOnSameParent(f.PropertyPath, idProperty))
		}
		if (query.Translate || f.Translate) && p.Translatable &&
			!existsSameParentField(extended, f, translationsProperty) {
			extended = extended.WithField(pathOnSameParent(f.PropertyPath, translationsProperty))
		}
	}
	return extended, nil
}

func existsSameParentField(query Query, field Field, property string) bool {
	required := pathOnSameParent(field.PropertyPath, property)
	for _, f := range query.Fields {
		if f.PropertyPath == required {
			return true
		}
	}
	return false
}

// BuildFetchSQL compiles the row-fetching query.
func (b *Builder) BuildFetchSQL() (string, error) {
	fields, err := b.createFieldsSQL()
	if err != nil {
		return "", err
	}
	accessFilters := b.accessFilterSQL(b.context, "e")
	userFilters, err := b.createFiltersSQL()
	if err != nil {
		return "", err
	}
	orders, err := b.createOrdersSQL()
	if err != nil {
		return "", err
	}
	owner := b.query.Owner
	if owner == nil {
		return fmt.Sprintf("select %s from %s e where %s and (%s) and (%s) order by %s",
			fields, objectsTable, typeCond("e", b.query.ElementType),
			userFilters, accessFilters, orders), nil
	}
	ownerScope, err := b.ownerScopeSQL(owner)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("select %s from %s and (%s) and (%s) order by %s",
		fields, ownerScope, userFilters, accessFilters, orders), nil
}

// BuildCountSQL compiles the matching count query; fields are ignored.
func (b *Builder) BuildCountSQL() (string, error) {
	userFilters, err := b.createFiltersSQL()
	if err != nil {
		return "", err
	}
	accessFilters := b.accessFilterSQL(b.context, "e")
	owner := b.query.Owner
	if owner == nil {
		return fmt.Sprintf("select count(*) from %s e where %s and (%s) and (%s)",
			objectsTable, typeCond("e", b.query.ElementType), userFilters, accessFilters), nil
	}
	ownerScope, err := b.ownerScopeSQL(owner)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("select count(*) from %s and (%s) and (%s)",
		ownerScope, userFilters, accessFilters), nil
}

// ownerScopeSQL emits the from/where prefix restricting elements to the
// members (or, inverse, the non-members) of the owner's named collection.
func (b *Builder) ownerScopeSQL(owner *Owner) (string, error) {
	collection, err := b.context.SwitchedTo(owner.Type).ResolveMandatory(owner.CollectionProperty)
	if err != nil {
		return "", err
	}
	op := "in"
	if b.query.Inverse {
		op = "not in"
	}
	return fmt.Sprintf(`%s o, %s e where %s and o."uid" = :OwnerId and %s and e."uid" %s (%s)`,
		objectsTable, objectsTable,
		typeCond("o", owner.Type), typeCond("e", b.query.ElementType),
		op, elementsExpr(dataExpr("o", collection.Key()))), nil
}

// accessFilterSQL returns the sharing predicate for the type the context is
// rooted at, applied to the given alias; the tautology when the type is not
// shared or the principal is unrestricted.
func (b *Builder) accessFilterSQL(context *schema.Context, alias string) string {
	if !b.filterBySharing(context) {
		return "1=1"
	}
	return "(" + auth.SharingCheckSQL(alias, b.user, auth.ReadMetadata) + ")"
}

func (b *Builder) filterBySharing(context *schema.Context) bool {
	sharing := context.Resolve(sharingProperty)
	return sharing != nil && sharing.Persisted && !b.user.CanBypassSharing()
}

func (b *Builder) createFieldsSQL() (string, error) {
	b.fieldIndexByPath = make(map[string]int, len(b.query.Fields))
	for i, f := range b.query.Fields {
		b.fieldIndexByPath[f.PropertyPath] = i
	}
	return joinIndexed(len(b.query.Fields), ", ", sqlNull, func(i int) (string, error) {
		return b.createFieldSQL(i, b.query.Fields[i])
	})
}

func (b *Builder) createOrdersSQL() (string, error) {
	return joinIndexed(len(b.query.Orders), ",", `e."uid" asc`, func(i int) (string, error) {
		order := b.query.Orders[i]
		expr, err := b.memberExpr(b.context, "e", fmt.Sprintf("ot_%d", i), order.PropertyPath, true)
		if err != nil {
			return "", err
		}
		return expr + " " + order.Direction.String(), nil
	})
}

// sameParentFieldIndex returns the column index of the sibling field naming
// property at the same parent scope as path.
func (b *Builder) sameParentFieldIndex(path, property string) (int, bool) {
	idx, ok := b.fieldIndexByPath[pathOnSameParent(path, property)]
	return idx, ok
}

// sameParentEndpointRoot returns the endpoint root of the type owning the
// last segment of path, or "".
func (b *Builder) sameParentEndpointRoot(path string) string {
	return b.endpointRootOf(b.context.SwitchedToPath(path).Home())
}

// endpointRoot returns the endpoint root of the named type, or "".
func (b *Builder) endpointRoot(typeName string) string {
	return b.endpointRootOf(b.context.SwitchedTo(typeName).Home())
}

func (b *Builder) endpointRootOf(s *schema.Schema) string {
	if s == nil || s.RelativeAPIEndpoint == "" {
		return ""
	}
	return b.query.EndpointRoot + s.RelativeAPIEndpoint
}

// joinIndexed joins n compiled elements with the delimiter, yielding empty
// when there is nothing to join.
func joinIndexed(n int, delimiter, empty string, element func(i int) (string, error)) (string, error) {
	if n == 0 {
		return empty, nil
	}
	var str strings.Builder
	for i := 0; i < n; i++ {
		part, err := element(i)
		if err != nil {
			return "", err
		}
		if str.Len() > 0 {
			str.WriteString(delimiter)
		}
		str.WriteString(part)
	}
	return str.String(), nil
}
