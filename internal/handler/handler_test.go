package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/temirkhan/gist_registry/internal/config"
	"github.com/temirkhan/gist_registry/internal/gist"
	"github.com/temirkhan/gist_registry/internal/schema"
)

func testRegistry() *schema.Registry {
	uidCol := "uid"
	r := schema.NewRegistry()
	r.Register(schema.NewSchema("OrganisationUnit", "/organisationUnits",
		schema.Property{Name: "id", Type: schema.TypeIdentifier, StorageColumn: &uidCol, Persisted: true},
		schema.Property{Name: "name", Type: schema.TypeString, Persisted: true},
		schema.Property{Name: "level", Type: schema.TypeInteger, Persisted: true},
		schema.Property{Name: "dataSets", Collection: true, ItemKlass: "DataSet", Persisted: true},
		schema.Property{Name: "sharing", Type: schema.TypeComplex, Persisted: true},
	))
	r.Register(schema.NewSchema("DataSet", "/dataSets",
		schema.Property{Name: "id", Type: schema.TypeIdentifier, StorageColumn: &uidCol, Persisted: true},
		schema.Property{Name: "name", Type: schema.TypeString, Persisted: true},
	))
	return r
}

func testHandler() *Handler {
	cfg := &config.Config{
		BaseURL:         "http://localhost:8080",
		DefaultPageSize: 50,
		MaxPageSize:     200,
	}
	return New(nil, testRegistry(), cfg)
}

func TestParseQueryDefaults(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest("GET", "/api/organisationUnits/gist", nil)
	q, err := h.parseQuery(r, h.registry.Get("OrganisationUnit"))
	if err != nil {
		t.Fatal(err)
	}
	if q.Page != 1 || q.PageSize != 50 {
		t.Fatalf("unexpected paging defaults: page=%d size=%d", q.Page, q.PageSize)
	}
	if len(q.Fields) == 0 {
		t.Fatal("expected default fields")
	}
	// sharing is internal and never projected by default
	for _, f := range q.Fields {
		if f.PropertyPath == "sharing" {
			t.Fatal("sharing must not be a default field")
		}
	}
	if q.EndpointRoot != "/api" {
		t.Fatalf("expected relative endpoint root, got %q", q.EndpointRoot)
	}
}

func TestParseQueryParams(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest("GET",
		"/api/organisationUnits/gist?fields=name,dataSets::size&filter=name:like:x&filter=level:gt:2"+
			"&order=name:desc&rootJunction=OR&page=3&pageSize=1000&locale=fr&absoluteUrls=true", nil)
	q, err := h.parseQuery(r, h.registry.Get("OrganisationUnit"))
	if err != nil {
		t.Fatal(err)
	}
	if len(q.Fields) != 2 || q.Fields[1].Transformation != gist.TransformSize {
		t.Fatalf("unexpected fields: %+v", q.Fields)
	}
	if len(q.Filters) != 2 || !q.AnyFilter {
		t.Fatalf("unexpected filters: %+v any=%v", q.Filters, q.AnyFilter)
	}
	if len(q.Orders) != 1 || q.Orders[0].Direction != gist.Desc {
		t.Fatalf("unexpected orders: %+v", q.Orders)
	}
	if q.Page != 3 || q.PageSize != 200 {
		t.Fatalf("expected pageSize clamped to max, got page=%d size=%d", q.Page, q.PageSize)
	}
	if !q.Translate || q.TranslationLocale == nil {
		t.Fatal("expected translation enabled by locale")
	}
	if !q.Absolute || q.EndpointRoot != "http://localhost:8080/api" {
		t.Fatalf("expected absolute endpoint root, got %q", q.EndpointRoot)
	}
}

func TestParseQueryRejectsBadInput(t *testing.T) {
	h := testHandler()
	sch := h.registry.Get("OrganisationUnit")
	for _, url := range []string{
		"/x?filter=name:almost:x",
		"/x?fields=name::sizeof",
		"/x?page=0",
		"/x?pageSize=-1",
		"/x?locale=!!",
	} {
		r := httptest.NewRequest("GET", url, nil)
		if _, err := h.parseQuery(r, sch); err == nil {
			t.Errorf("%q: expected error", url)
		}
	}
}

func TestUserFrom(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if u := userFrom(r); u != nil {
		t.Fatalf("expected trusted call without headers, got %+v", u)
	}

	r.Header.Set("X-User-Uid", "u1")
	r.Header.Set("X-User-Groups", "g1, g2")
	u := userFrom(r)
	if u == nil || u.UID != "u1" || len(u.GroupUIDs) != 2 || u.GroupUIDs[1] != "g2" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.CanBypassSharing() {
		t.Fatal("regular user must not bypass sharing")
	}

	r.Header.Set("X-User-Super", "true")
	if u := userFrom(r); !u.Super {
		t.Fatalf("expected superuser, got %+v", u)
	}
}

func TestSerializeRowsSkipsSupportColumns(t *testing.T) {
	fields := []gist.Field{
		{PropertyPath: "name"},
		{PropertyPath: gist.RefsPath},
	}
	rows := [][]any{
		{"Acme", map[string]any{"parent": "/api/organisationUnits/p1/gist"}, "support-id"},
		{"Other", nil, "support-id"},
	}
	list := serializeRows(fields, rows)
	if len(list) != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0]["name"] != "Acme" {
		t.Fatalf("unexpected object: %+v", list[0])
	}
	if _, exists := list[0]["support-id"]; exists || len(list[0]) != 2 {
		t.Fatalf("support columns must not serialize: %+v", list[0])
	}
	if _, exists := list[1]["refs"]; exists {
		t.Fatalf("nil refs must be dropped: %+v", list[1])
	}
}

func TestListUnknownObject(t *testing.T) {
	h := testHandler()
	router := mux.NewRouter()
	h.Register(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/nothing/gist", nil))
	if w.Code != 404 {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListUnknownCollection(t *testing.T) {
	h := testHandler()
	router := mux.NewRouter()
	h.Register(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/organisationUnits/o1/name/gist", nil))
	if w.Code != 404 {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}
