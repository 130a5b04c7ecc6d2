package gist

import (
	"testing"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		in   string
		want Field
	}{
		{"name", Field{PropertyPath: "name"}},
		{"children::size", Field{PropertyPath: "children", Transformation: TransformSize}},
		{"children~size", Field{PropertyPath: "children", Transformation: TransformSize}},
		{"createdBy::idObjects", Field{PropertyPath: "createdBy", Transformation: TransformIDObjects}},
		{"dataSets::pluck(name)", Field{PropertyPath: "dataSets", Transformation: TransformPluck, TransformationArgument: "name"}},
		{"children::member(c1)", Field{PropertyPath: "children", Transformation: TransformMember, TransformationArgument: "c1"}},
		{" parent.name ", Field{PropertyPath: "parent.name"}},
	}
	for _, tt := range tests {
		got, err := ParseField(tt.in)
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %+v, got %+v", tt.in, tt.want, got)
		}
	}
}

func TestParseFieldErrors(t *testing.T) {
	for _, in := range []string{"", "::size", "children::sizeof", "dataSets::pluck(name"} {
		if _, err := ParseField(in); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields("name,children::size")
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 || fields[1].Transformation != TransformSize {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	fields, err = ParseFields("  ")
	if err != nil || fields != nil {
		t.Fatalf("expected empty list, got %+v, %v", fields, err)
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("name:like:*central*")
	if err != nil {
		t.Fatal(err)
	}
	if f.PropertyPath != "name" || f.Operator != CompLike || f.Value[0] != "*central*" {
		t.Fatalf("unexpected filter: %+v", f)
	}

	f, err = ParseFilter("level:in:[1,2,3]")
	if err != nil {
		t.Fatal(err)
	}
	if f.Operator != CompIn || len(f.Value) != 3 || f.Value[2] != "3" {
		t.Fatalf("unexpected in filter: %+v", f)
	}

	f, err = ParseFilter("code:null")
	if err != nil {
		t.Fatal(err)
	}
	if f.Operator != CompNull || f.Value != nil {
		t.Fatalf("unexpected unary filter: %+v", f)
	}
}

func TestParseFilterErrors(t *testing.T) {
	for _, in := range []string{"", "name", ":eq:x", "name:almost:x", "name:eq"} {
		if _, err := ParseFilter(in); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestParseComparisonTokens(t *testing.T) {
	tests := map[string]Comparison{
		"eq":         CompEq,
		"!eq":        CompNe,
		"ne":         CompNe,
		"lte":        CompLe,
		"GT":         CompGt,
		"in":         CompIn,
		"!in":        CompNotIn,
		"like":       CompLike,
		"$like":      CompStartsLike,
		"like$":      CompEndsLike,
		"ilike":      CompILike,
		"startsWith": CompStartsWith,
		"!endsWith":  CompNotEndsWith,
		"null":       CompNull,
		"!null":      CompNotNull,
		"empty":      CompEmpty,
	}
	for in, want := range tests {
		got, err := ParseComparison(in)
		if err != nil {
			t.Errorf("%q: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %d, got %d", in, int(want), int(got))
		}
	}
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("name:desc")
	if err != nil {
		t.Fatal(err)
	}
	if o.PropertyPath != "name" || o.Direction != Desc {
		t.Fatalf("unexpected order: %+v", o)
	}

	o, err = ParseOrder("level")
	if err != nil {
		t.Fatal(err)
	}
	if o.Direction != Asc {
		t.Fatalf("expected ascending default, got %+v", o)
	}

	if _, err := ParseOrder("name:sideways"); err == nil {
		t.Fatal("expected unknown direction to fail")
	}
}
