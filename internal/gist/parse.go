package gist

import (
	"fmt"
	"strings"
)

// This file parses the request syntax of the gist endpoints:
//
//	fields=name,organisationUnits::size,createdBy::idObjects
//	filter=name:like:*central*&filter=level:lt:4
//	order=name:desc

// ParseField parses one fields list entry of the form
// path[::transform[(argument)]]; "~" is accepted in place of "::".
func ParseField(s string) (Field, error) {
	raw := strings.TrimSpace(s)
	sep, sepLen := strings.Index(raw, "::"), 2
	if sep < 0 {
		sep, sepLen = strings.IndexByte(raw, '~'), 1
	}
	if sep < 0 {
		if raw == "" {
			return Field{}, fmt.Errorf("empty field")
		}
		return Field{PropertyPath: raw}, nil
	}
	path := raw[:sep]
	if path == "" {
		return Field{}, fmt.Errorf("field %q has no property path", s)
	}
	token := raw[sep+sepLen:]
	argument := ""
	if open := strings.IndexByte(token, '('); open >= 0 {
		if !strings.HasSuffix(token, ")") {
			return Field{}, fmt.Errorf("field %q has an unclosed transformation argument", s)
		}
		argument = token[open+1 : len(token)-1]
		token = token[:open]
	}
	transform, err := ParseTransform(token)
	if err != nil {
		return Field{}, fmt.Errorf("field %q: %w", s, err)
	}
	return Field{PropertyPath: path, Transformation: transform, TransformationArgument: argument}, nil
}

// ParseFields parses a comma separated fields list.
func ParseFields(s string) ([]Field, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	fields := make([]Field, 0, len(parts))
	for _, part := range parts {
		f, err := ParseField(part)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

var transformsByName = func() map[string]Transform {
	byName := make(map[string]Transform, len(transformNames)+4)
	for t, name := range transformNames {
		byName[strings.ToLower(name)] = t
	}
	byName["is-empty"] = TransformIsEmpty
	byName["is-not-empty"] = TransformIsNotEmpty
	byName["not-member"] = TransformNotMember
	byName["id-objects"] = TransformIDObjects
	return byName
}()

// ParseTransform parses a transformation name, case-insensitively.
func ParseTransform(s string) (Transform, error) {
	t, ok := transformsByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return TransformAuto, fmt.Errorf("unknown transformation: %q", s)
	}
	return t, nil
}

// ParseFilter parses one filter entry of the form path:operator[:value],
// with comma separated values for the in operators. Surrounding [] around a
// value list is accepted and ignored.
func ParseFilter(s string) (Filter, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return Filter{}, fmt.Errorf("filter %q is not of the form path:operator[:value]", s)
	}
	operator, err := ParseComparison(parts[1])
	if err != nil {
		return Filter{}, fmt.Errorf("filter %q: %w", s, err)
	}
	filter := Filter{PropertyPath: parts[0], Operator: operator}
	if operator.IsUnary() {
		return filter, nil
	}
	if len(parts) < 3 {
		return Filter{}, fmt.Errorf("filter %q has no value for its operator", s)
	}
	value := strings.TrimSuffix(strings.TrimPrefix(parts[2], "["), "]")
	if operator == CompIn || operator == CompNotIn {
		filter.Value = strings.Split(value, ",")
	} else {
		filter.Value = []string{value}
	}
	return filter, nil
}

var comparisonsByToken = map[string]Comparison{
	"null":        CompNull,
	"!null":       CompNotNull,
	"empty":       CompEmpty,
	"!empty":      CompNotEmpty,
	"eq":          CompEq,
	"!eq":         CompNe,
	"ne":          CompNe,
	"neq":         CompNe,
	"lt":          CompLt,
	"le":          CompLe,
	"lte":         CompLe,
	"gt":          CompGt,
	"ge":          CompGe,
	"gte":         CompGe,
	"in":          CompIn,
	"!in":         CompNotIn,
	"like":        CompLike,
	"!like":       CompNotLike,
	"$like":       CompStartsLike,
	"!$like":      CompNotStartsLike,
	"like$":       CompEndsLike,
	"!like$":      CompNotEndsLike,
	"ilike":       CompILike,
	"!ilike":      CompNotILike,
	"$ilike":      CompStartsWith,
	"!$ilike":     CompNotStartsWith,
	"ilike$":      CompEndsWith,
	"!ilike$":     CompNotEndsWith,
	"startswith":  CompStartsWith,
	"!startswith": CompNotStartsWith,
	"endswith":    CompEndsWith,
	"!endswith":   CompNotEndsWith,
}

// ParseComparison parses a filter operator token, case-insensitively.
func ParseComparison(s string) (Comparison, error) {
	c, ok := comparisonsByToken[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return CompEq, fmt.Errorf("unknown operator: %q", s)
	}
	return c, nil
}

// ParseOrder parses one order entry of the form path[:direction].
func ParseOrder(s string) (Order, error) {
	path, direction, found := strings.Cut(s, ":")
	order := Order{PropertyPath: strings.TrimSpace(path)}
	if order.PropertyPath == "" {
		return Order{}, fmt.Errorf("order %q has no property path", s)
	}
	if !found {
		return order, nil
	}
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "asc":
	case "desc":
		order.Direction = Desc
	default:
		return Order{}, fmt.Errorf("order %q: unknown direction %q", s, direction)
	}
	return order, nil
}
