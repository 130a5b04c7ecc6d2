package gist

import (
	"strings"
	"testing"
)

func TestFiltersAbsentYieldsTautology(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	sql, _ := buildCount(t, q, nil)
	if !strings.Contains(sql, "(1=1)") {
		t.Fatalf("expected tautology, got %q", sql)
	}
}

func TestFilterEq(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "name", Operator: CompEq, Value: []string{"Acme"}}}
	sql, _ := buildCount(t, q, nil)
	if !strings.Contains(sql, `"e"."data"->>'name' = :f_0`) {
		t.Fatalf("expected equality predicate, got %q", sql)
	}
}

func TestFilterJunction(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{
		{PropertyPath: "name", Operator: CompEq, Value: []string{"a"}},
		{PropertyPath: "code", Operator: CompEq, Value: []string{"b"}},
	}

	sql, _ := buildCount(t, q, nil)
	if !strings.Contains(sql, ":f_0 and ") {
		t.Fatalf("expected and junction, got %q", sql)
	}

	q.AnyFilter = true
	sql, _ = buildCount(t, q, nil)
	if !strings.Contains(sql, ":f_0 or ") {
		t.Fatalf("expected or junction, got %q", sql)
	}
}

func TestFilterTypedCast(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "openingDate", Operator: CompGe, Value: []string{"2024-01-01"}}}
	sql, _ := buildCount(t, q, nil)
	if !strings.Contains(sql, `("e"."data"->>'openingDate')::timestamptz >= :f_0`) {
		t.Fatalf("expected date cast, got %q", sql)
	}
}

func TestFilterUnary(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "code", Operator: CompNull}}
	sql, _ := buildCount(t, q, nil)
	if !strings.Contains(sql, `"e"."data"->>'code' is null`) {
		t.Fatalf("expected is null predicate, got %q", sql)
	}
	if strings.Contains(sql, ":f_0") {
		t.Fatalf("expected no parameter for unary operator, got %q", sql)
	}
}

func TestFilterInParenthesized(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "level", Operator: CompIn, Value: []string{"1", "2"}}}
	sql, _ := buildCount(t, q, nil)
	if !strings.Contains(sql, `::numeric in (:f_0)`) {
		t.Fatalf("expected parenthesized in list, got %q", sql)
	}
}

func TestCollectionSizeFilterShape(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "children", Operator: CompGt, Value: []string{"2"}}}
	sql, _ := buildCount(t, q, nil)
	if !strings.Contains(sql, `jsonb_array_length(coalesce("e"."data"->'children', '[]'::jsonb)) > :f_0`) {
		t.Fatalf("expected size comparison, got %q", sql)
	}
}

func TestCollectionEmptyFilter(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "children", Operator: CompEmpty}}
	sql, _ := buildCount(t, q, nil)
	if !strings.Contains(sql, `jsonb_array_length(coalesce("e"."data"->'children', '[]'::jsonb)) = 0`) {
		t.Fatalf("expected empty comparison, got %q", sql)
	}
}

func TestStringLengthFilter(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "name", Operator: CompGt, Value: []string{"5"}}}
	sql, _ := buildCount(t, q, nil)
	if !strings.Contains(sql, `length("e"."data"->>'name') > :f_0`) {
		t.Fatalf("expected length comparison, got %q", sql)
	}
}

func TestStringOrderCompareWithTextOperandStaysTextual(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "name", Operator: CompGt, Value: []string{"M"}}}
	sql, _ := buildCount(t, q, nil)
	if strings.Contains(sql, "length(") {
		t.Fatalf("expected plain comparison for non-numeric operand, got %q", sql)
	}
}

func TestExistsFilterOnCollectionPath(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "dataSets.name", Operator: CompEq, Value: []string{"x"}}}
	sql, _ := buildCount(t, q, nil)

	if !strings.Contains(sql, `exists (select 1 from "metadata"."objects" "ft_0"`) {
		t.Fatalf("expected exists subquery, got %q", sql)
	}
	if !strings.Contains(sql, `"ft_0"."object_type" = 'DataSet'`) {
		t.Fatalf("expected item type restriction, got %q", sql)
	}
	if !strings.Contains(sql, `"ft_0"."uid" in (select jsonb_array_elements_text("e"."data"->'dataSets'))`) {
		t.Fatalf("expected membership restriction, got %q", sql)
	}
	if !strings.Contains(sql, `"ft_0"."data"->>'name' = :f_0`) {
		t.Fatalf("expected comparison on item, got %q", sql)
	}
}

func TestExistsFilterThroughReference(t *testing.T) {
	q := orgUnitQuery(Field{PropertyPath: "name"})
	q.Filters = []Filter{{PropertyPath: "parent.children.name", Operator: CompEq, Value: []string{"x"}}}
	sql, _ := buildCount(t, q, nil)

	if !strings.Contains(sql, "exists (select 1 from") {
		t.Fatalf("expected exists subquery, got %q", sql)
	}
	// The collection is reached through the parent reference.
	if !strings.Contains(sql, `"ft_0_c_r"."uid" = "e"."data"->>'parent'`) {
		t.Fatalf("expected reference hop for the collection, got %q", sql)
	}
}

func TestOperatorSQLMapping(t *testing.T) {
	tests := map[Comparison]string{
		CompEq:            "=",
		CompNe:            "!=",
		CompLike:          "like",
		CompNotLike:       "not like",
		CompILike:         "ilike",
		CompStartsWith:    "ilike",
		CompNotStartsWith: "not ilike",
		CompStartsLike:    "like",
		CompIn:            "in",
		CompNotIn:         "not in",
	}
	for c, want := range tests {
		got, err := operatorSQL(c)
		if err != nil {
			t.Errorf("%d: %v", int(c), err)
			continue
		}
		if got != want {
			t.Errorf("%d: expected %q, got %q", int(c), want, got)
		}
	}
}
