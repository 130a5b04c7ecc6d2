package gist

import (
	"strings"

	"golang.org/x/text/language"
)

// RefsPath is the pseudo property path of the synthesized links object. The
// projected column is always null; post processing fills in a per-row map of
// field name to endpoint URL.
const RefsPath = "__refs__"

// Transform selects how a field value is derived from the stored property.
type Transform int

const (
	TransformAuto Transform = iota
	TransformNone
	TransformSize
	TransformIsEmpty
	TransformIsNotEmpty
	TransformMember
	TransformNotMember
	TransformIDs
	TransformIDObjects
	TransformPluck
)

var transformNames = map[Transform]string{
	TransformAuto:       "auto",
	TransformNone:       "none",
	TransformSize:       "size",
	TransformIsEmpty:    "isEmpty",
	TransformIsNotEmpty: "isNotEmpty",
	TransformMember:     "member",
	TransformNotMember:  "notMember",
	TransformIDs:        "ids",
	TransformIDObjects:  "idObjects",
	TransformPluck:      "pluck",
}

func (t Transform) String() string { return transformNames[t] }

// Direction is an order direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Comparison is a filter operator.
type Comparison int

const (
	CompNull Comparison = iota
	CompNotNull
	CompEq
	CompNe
	CompLt
	CompGt
	CompLe
	CompGe
	CompIn
	CompNotIn
	CompEmpty
	CompNotEmpty
	CompLike
	CompNotLike
	CompStartsLike
	CompNotStartsLike
	CompEndsLike
	CompNotEndsLike
	CompILike
	CompNotILike
	CompStartsWith
	CompNotStartsWith
	CompEndsWith
	CompNotEndsWith
)

// IsUnary returns true for operators that take no right-hand parameter.
func (c Comparison) IsUnary() bool {
	switch c {
	case CompNull, CompNotNull, CompEmpty, CompNotEmpty:
		return true
	}
	return false
}

// IsStringCompare returns true for pattern-matching operators whose bound
// value is completed into a SQL like expression.
func (c Comparison) IsStringCompare() bool {
	switch c {
	case CompLike, CompNotLike, CompStartsLike, CompNotStartsLike,
		CompEndsLike, CompNotEndsLike, CompILike, CompNotILike,
		CompStartsWith, CompNotStartsWith, CompEndsWith, CompNotEndsWith:
		return true
	}
	return false
}

// IsOrderCompare returns true for the ordering operators that turn into
// length/size comparisons on string and collection properties.
func (c Comparison) IsOrderCompare() bool {
	switch c {
	case CompLt, CompGt, CompLe, CompGe:
		return true
	}
	return false
}

// Field is one requested output column.
type Field struct {
	// PropertyPath is a dotted path from the element type, or RefsPath.
	PropertyPath string
	// Name is the output key; defaults to PropertyPath when empty.
	Name                   string
	Transformation         Transform
	TransformationArgument string
	Translate              bool
}

// OutputName returns the key the field is serialized under.
func (f Field) OutputName() string {
	if f.Name != "" {
		return f.Name
	}
	if f.PropertyPath == RefsPath {
		return "refs"
	}
	return f.PropertyPath
}

// Filter is one requested predicate.
type Filter struct {
	PropertyPath string
	Operator     Comparison
	// Value holds the raw, unparsed operands; empty for unary operators,
	// multiple entries for in/not-in.
	Value []string
}

// Order is one requested sort criterion.
type Order struct {
	PropertyPath string
	Direction    Direction
}

// Owner restricts a query to the members of one named collection on one
// owning object.
type Owner struct {
	Type               string
	CollectionProperty string
	ID                 string
}

// Query is the immutable input of a gist compilation. The compiler never
// mutates a Query; support fields are added on a derived copy.
type Query struct {
	ElementType string
	Fields      []Field
	Filters     []Filter
	Orders      []Order

	Owner   *Owner
	Inverse bool

	Translate         bool
	TranslationLocale *language.Tag

	// AnyFilter joins filters with OR instead of AND.
	AnyFilter bool
	// Absolute requests absolute URLs in synthesized references.
	Absolute     bool
	EndpointRoot string

	Page     int
	PageSize int
}

// WithField returns a copy of q with a plain field for path appended.
func (q Query) WithField(path string) Query {
	fields := make([]Field, len(q.Fields), len(q.Fields)+1)
	copy(fields, q.Fields)
	q.Fields = append(fields, Field{PropertyPath: path, Name: path})
	return q
}

// parentPath returns everything up to the last path segment, or "".
func parentPath(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// pathOnSameParent returns the sibling path of path naming property.
func pathOnSameParent(path, property string) string {
	parent := parentPath(path)
	if parent == "" {
		return property
	}
	return parent + "." + property
}

// isNonNestedPath returns true when path has a single segment.
func isNonNestedPath(path string) bool {
	return !strings.ContainsRune(path, '.')
}
