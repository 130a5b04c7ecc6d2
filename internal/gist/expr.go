package gist

import (
	"fmt"
	"strings"

	"github.com/temirkhan/gist_registry/internal/schema"
)

// This file centralizes every SQL fragment the compiler emits, so alias
// naming, quoting and casts live in one place.

// objectsTable is the uniform storage table for all metadata types.
const objectsTable = `"metadata"."objects"`

// sqlNull is the typed null projected for columns whose value is computed in
// post processing (or not at all).
const sqlNull = "cast(null as text)"

// fieldAlias returns the subquery alias for the field at the given column
// index, filterAlias the one for the filter at the given position. Aliases
// are derived from positions so compiling the same query twice yields
// byte-identical SQL.
func fieldAlias(index int) string  { return fmt.Sprintf("t_%d", index) }
func filterAlias(index int) string { return fmt.Sprintf("ft_%d", index) }

func qi(name string) string { return schema.QuoteIdent(name) }

// quoteLit returns a single-quoted SQL string literal with escaping.
func quoteLit(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// typeCond restricts an alias to rows of one metadata type.
func typeCond(alias, typeName string) string {
	return fmt.Sprintf(`%s."object_type" = %s`, qi(alias), quoteLit(typeName))
}

// dataExpr returns the jsonb value of a data key.
func dataExpr(alias, key string) string {
	return fmt.Sprintf(`%s."data"->%s`, qi(alias), quoteLit(key))
}

// dataTextExpr returns the text value of a data key.
func dataTextExpr(alias, key string) string {
	return fmt.Sprintf(`%s."data"->>%s`, qi(alias), quoteLit(key))
}

// columnExpr returns a dedicated column reference.
func columnExpr(alias, column string) string {
	return fmt.Sprintf(`%s.%s`, qi(alias), qi(column))
}

// selectExpr returns the SQL for a property in projection position. Complex
// and collection properties keep their jsonb form, scalars extract text.
func selectExpr(alias string, p *schema.Property) string {
	if p.StorageColumn != nil {
		return columnExpr(alias, *p.StorageColumn)
	}
	if p.Collection || p.Type == schema.TypeComplex {
		return dataExpr(alias, p.Key())
	}
	return dataTextExpr(alias, p.Key())
}

// typedExpr returns the SQL for a property in filter/order position, casting
// text extraction to the property's comparison type.
func typedExpr(alias string, p *schema.Property) string {
	if p.StorageColumn != nil {
		return columnExpr(alias, *p.StorageColumn)
	}
	if p.Collection {
		return dataExpr(alias, p.Key())
	}
	switch {
	case p.IsNumeric():
		return fmt.Sprintf(`(%s)::numeric`, dataTextExpr(alias, p.Key()))
	case p.Type == schema.TypeBoolean:
		return fmt.Sprintf(`(%s)::boolean`, dataTextExpr(alias, p.Key()))
	case p.Type == schema.TypeDate:
		return fmt.Sprintf(`(%s)::timestamptz`, dataTextExpr(alias, p.Key()))
	}
	return dataTextExpr(alias, p.Key())
}

// sizeExpr returns the cardinality of a jsonb array expression, treating an
// absent value as the empty collection.
func sizeExpr(collection string) string {
	return fmt.Sprintf(`jsonb_array_length(coalesce(%s, '[]'::jsonb))`, collection)
}

// elementsExpr returns a set of the element uids of a jsonb array expression,
// for use inside "in (...)".
func elementsExpr(collection string) string {
	return fmt.Sprintf(`select jsonb_array_elements_text(%s)`, collection)
}

// uidExpr returns the identifier column of an alias.
func uidExpr(alias string) string {
	return fmt.Sprintf(`%s."uid"`, qi(alias))
}

// memberExpr resolves a dotted property path to a SQL expression rooted at
// alias. Intermediate reference segments become correlated scalar subqueries
// with aliases derived from aliasPrefix, so the result is deterministic.
// typed selects filter/order casts for the final segment.
func (b *Builder) memberExpr(ctx *schema.Context, alias, aliasPrefix, path string, typed bool) (string, error) {
	chain, err := ctx.ResolvePath(path)
	if err != nil {
		return "", err
	}
	return b.chainExpr(alias, aliasPrefix, chain, typed), nil
}

func (b *Builder) chainExpr(alias, aliasPrefix string, chain []*schema.Property, typed bool) string {
	final := chain[len(chain)-1]
	if len(chain) == 1 {
		if typed {
			return typedExpr(alias, final)
		}
		return selectExpr(alias, final)
	}
	// Follow the leading reference into a correlated subquery and resolve the
	// remainder of the chain against it.
	head := chain[0]
	hop := aliasPrefix + "_r"
	inner := b.chainExpr(hop, hop, chain[1:], typed)
	return fmt.Sprintf(`(select %s from %s %s where %s and %s = %s)`,
		inner, objectsTable, qi(hop), typeCond(hop, head.Klass),
		uidExpr(hop), dataTextExpr(alias, head.Key()))
}
