package gist

import (
	"fmt"
	"strconv"

	"github.com/temirkhan/gist_registry/internal/schema"
)

func (b *Builder) createFiltersSQL() (string, error) {
	junction := " and "
	if b.query.AnyFilter {
		junction = " or "
	}
	return joinIndexed(len(b.query.Filters), junction, "1=1", func(i int) (string, error) {
		return b.createFilterSQL(i, b.query.Filters[i])
	})
}

func (b *Builder) createFilterSQL(index int, filter Filter) (string, error) {
	property, err := b.context.ResolveMandatory(filter.PropertyPath)
	if err != nil {
		return "", err
	}
	if !isNonNestedPath(filter.PropertyPath) && !isCollectionSizeFilter(filter, property) {
		chain, err := b.context.ResolvePath(filter.PropertyPath)
		if err != nil {
			return "", err
		}
		if k := firstCollectionIndex(chain); k >= 0 && k < len(chain)-1 {
			return b.createExistsFilterSQL(index, filter, chain, k)
		}
	}
	expr, err := b.memberExpr(b.context, "e", filterAlias(index), filter.PropertyPath, true)
	if err != nil {
		return "", err
	}
	return b.comparisonSQL(index, filter, property, expr)
}

// createExistsFilterSQL compiles a filter whose path traverses a collection:
// the predicate matches when any collection item satisfies the comparison on
// the remainder of the path.
func (b *Builder) createExistsFilterSQL(index int, filter Filter, chain []*schema.Property, k int) (string, error) {
	alias := filterAlias(index)
	collection := chain[k]
	collectionExpr := b.chainExpr("e", alias+"_c", chain[:k+1], false)
	tail := chain[k+1:]
	tailExpr := b.chainExpr(alias, alias, tail, true)
	cmp, err := b.comparisonSQL(index, filter, tail[len(tail)-1], tailExpr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`exists (select 1 from %s %s where %s and %s in (%s) and %s)`,
		objectsTable, qi(alias), typeCond(alias, collection.ItemKlass),
		uidExpr(alias), elementsExpr(collectionExpr), cmp), nil
}

func firstCollectionIndex(chain []*schema.Property) int {
	for i, p := range chain {
		if p.Collection {
			return i
		}
	}
	return -1
}

// comparisonSQL renders the predicate for one filter. Unary operators bind no
// parameter; every other filter binds its (possibly coerced) operand under
// the position-derived name f_<index>.
func (b *Builder) comparisonSQL(index int, filter Filter, property *schema.Property, expr string) (string, error) {
	switch filter.Operator {
	case CompNull:
		return expr + " is null", nil
	case CompNotNull:
		return expr + " is not null", nil
	case CompEmpty:
		return sizeExpr(expr) + " = 0", nil
	case CompNotEmpty:
		return sizeExpr(expr) + " > 0", nil
	}
	if isCollectionSizeFilter(filter, property) {
		expr = sizeExpr(expr)
	} else if isStringLengthFilter(filter, property) {
		expr = "length(" + expr + ")"
	}
	op, err := operatorSQL(filter.Operator)
	if err != nil {
		return "", err
	}
	param := ":f_" + strconv.Itoa(index)
	if filter.Operator == CompIn || filter.Operator == CompNotIn {
		param = "(" + param + ")"
	}
	return expr + " " + op + " " + param, nil
}

func operatorSQL(c Comparison) (string, error) {
	switch c {
	case CompEq:
		return "=", nil
	case CompNe:
		return "!=", nil
	case CompLt:
		return "<", nil
	case CompLe:
		return "<=", nil
	case CompGt:
		return ">", nil
	case CompGe:
		return ">=", nil
	case CompIn:
		return "in", nil
	case CompNotIn:
		return "not in", nil
	case CompLike, CompStartsLike, CompEndsLike:
		return "like", nil
	case CompNotLike, CompNotStartsLike, CompNotEndsLike:
		return "not like", nil
	case CompILike, CompStartsWith, CompEndsWith:
		return "ilike", nil
	case CompNotILike, CompNotStartsWith, CompNotEndsWith:
		return "not ilike", nil
	}
	return "", fmt.Errorf("no SQL operator for comparison %d", int(c))
}
