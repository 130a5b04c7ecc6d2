package gist

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/temirkhan/gist_registry/internal/schema"
)

// A ParameterSink receives the named parameters of a compiled query.
type ParameterSink func(name string, value any)

// An ArgumentParser coerces one raw filter operand to the Go value bound for
// a property of the target type.
type ArgumentParser func(value string, target schema.PropertyType) (any, error)

// memberParamName derives the parameter name of a member transformation
// argument from the field's path.
func memberParamName(path string) string {
	return "p_" + strings.ReplaceAll(path, ".", "_")
}

// AddFetchParameters feeds every named parameter of the row-fetching query to
// the sink: the member arguments of the fields plus everything the count
// query binds.
func (b *Builder) AddFetchParameters(sink ParameterSink, parse ArgumentParser) error {
	for _, f := range b.query.Fields {
		if f.TransformationArgument != "" && f.Transformation != TransformPluck {
			sink(memberParamName(f.PropertyPath), f.TransformationArgument)
		}
	}
	return b.AddCountParameters(sink, parse)
}

// AddCountParameters feeds the named parameters of the count query to the
// sink: the owner identifier and one coerced operand per non-unary filter.
func (b *Builder) AddCountParameters(sink ParameterSink, parse ArgumentParser) error {
	if owner := b.query.Owner; owner != nil {
		sink("OwnerId", owner.ID)
	}
	for i, f := range b.query.Filters {
		if f.Operator.IsUnary() {
			continue
		}
		property, err := b.context.ResolveMandatory(f.PropertyPath)
		if err != nil {
			return err
		}
		name := "f_" + strconv.Itoa(i)
		// An absent operand binds the empty string.
		if len(f.Value) == 0 {
			if f.Operator.IsStringCompare() {
				sink(name, completeLikeExpression(f.Operator, ""))
			} else {
				sink(name, "")
			}
			continue
		}
		switch {
		case isCollectionSizeFilter(f, property) || isStringLengthFilter(f, property):
			n, err := strconv.Atoi(f.Value[0])
			if err != nil {
				return fmt.Errorf("filter on %s needs a numeric value: %w", f.PropertyPath, err)
			}
			sink(name, n)
		case f.Operator.IsStringCompare():
			sink(name, completeLikeExpression(f.Operator, f.Value[0]))
		case f.Operator == CompIn || f.Operator == CompNotIn:
			values := make([]any, len(f.Value))
			for j, raw := range f.Value {
				values[j], err = parse(raw, baseType(property))
				if err != nil {
					return fmt.Errorf("filter on %s: %w", f.PropertyPath, err)
				}
			}
			sink(name, values)
		default:
			value, err := parse(f.Value[0], baseType(property))
			if err != nil {
				return fmt.Errorf("filter on %s: %w", f.PropertyPath, err)
			}
			sink(name, value)
		}
	}
	return nil
}

// completeLikeExpression turns a raw operand into the SQL pattern its
// operator implies: anchored operators pin the pattern to one end, the plain
// like operators run through wildcard completion.
func completeLikeExpression(c Comparison, value string) string {
	switch c {
	case CompStartsLike, CompNotStartsLike, CompStartsWith, CompNotStartsWith:
		return value + "%"
	case CompEndsLike, CompNotEndsLike, CompEndsWith, CompNotEndsWith:
		return "%" + value
	}
	return likeExpressionOf(value)
}

// likeExpressionOf completes a plain pattern: explicit * and ? wildcards map
// to their SQL forms, a pattern without any matches anywhere in the value.
func likeExpressionOf(value string) string {
	if strings.ContainsAny(value, "*?") {
		return strings.NewReplacer("*", "%", "?", "_").Replace(value)
	}
	return "%" + value + "%"
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DefaultArgumentParser coerces operands by the property's type. Strings and
// identifiers pass through untouched.
func DefaultArgumentParser(value string, target schema.PropertyType) (any, error) {
	switch target {
	case schema.TypeInteger:
		return strconv.ParseInt(value, 10, 64)
	case schema.TypeNumber:
		return strconv.ParseFloat(value, 64)
	case schema.TypeBoolean:
		return strconv.ParseBool(value)
	case schema.TypeDate:
		var lastErr error
		for _, layout := range dateLayouts {
			t, err := time.Parse(layout, value)
			if err == nil {
				return t, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("not a date: %q: %w", value, lastErr)
	}
	return value, nil
}
