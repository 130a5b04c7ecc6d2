package gist

import (
	"testing"

	"github.com/temirkhan/gist_registry/internal/auth"
	"github.com/temirkhan/gist_registry/internal/schema"
)

// --- Shared fixture ---

func testRegistry() *schema.Registry {
	uidCol := "uid"
	r := schema.NewRegistry()
	r.Register(schema.NewSchema("OrganisationUnit", "/organisationUnits",
		schema.Property{Name: "id", Type: schema.TypeIdentifier, StorageColumn: &uidCol, Persisted: true},
		schema.Property{Name: "code", Type: schema.TypeString, Persisted: true},
		schema.Property{Name: "name", Type: schema.TypeString, Persisted: true, Required: true, Translatable: true},
		schema.Property{Name: "href", Type: schema.TypeString},
		schema.Property{Name: "level", Type: schema.TypeInteger, Persisted: true},
		schema.Property{Name: "openingDate", Type: schema.TypeDate, Persisted: true},
		schema.Property{Name: "parent", Type: schema.TypeIdentifier, Klass: "OrganisationUnit", Persisted: true, Identifiable: true},
		schema.Property{Name: "createdBy", Type: schema.TypeIdentifier, Klass: "User", Persisted: true, Identifiable: true},
		schema.Property{Name: "children", Collection: true, ItemKlass: "OrganisationUnit", Persisted: true},
		schema.Property{Name: "dataSets", Collection: true, ItemKlass: "DataSet", Persisted: true},
		schema.Property{Name: "periods", Collection: true, ItemKlass: "Period", Persisted: true},
		schema.Property{Name: "changeLogs", Collection: true, ItemKlass: "ChangeLog", Persisted: true},
		schema.Property{Name: "translations", Type: schema.TypeComplex, Persisted: true},
		schema.Property{Name: "sharing", Type: schema.TypeComplex, Persisted: true},
	))
	r.Register(schema.NewSchema("DataSet", "/dataSets",
		schema.Property{Name: "id", Type: schema.TypeIdentifier, StorageColumn: &uidCol, Persisted: true},
		schema.Property{Name: "name", Type: schema.TypeString, Persisted: true, Required: true},
		schema.Property{Name: "version", Type: schema.TypeInteger, Persisted: true},
		schema.Property{Name: "sharing", Type: schema.TypeComplex, Persisted: true},
	))
	r.Register(schema.NewSchema("Period", "",
		schema.Property{Name: "id", Type: schema.TypeIdentifier, StorageColumn: &uidCol, Persisted: true},
		schema.Property{Name: "name", Type: schema.TypeString, Persisted: true},
	))
	// No persisted id, code or name: nothing to pluck.
	r.Register(schema.NewSchema("ChangeLog", "",
		schema.Property{Name: "message", Type: schema.TypeString, Persisted: true},
	))
	r.Register(schema.NewSchema("User", "/users",
		schema.Property{Name: "id", Type: schema.TypeIdentifier, StorageColumn: &uidCol, Persisted: true},
		schema.Property{Name: "name", Type: schema.TypeString, Persisted: true},
		schema.Property{Name: "username", Type: schema.TypeString, Persisted: true},
	))
	return r
}

func testContext(home string) *schema.Context {
	return schema.NewContext(testRegistry(), home)
}

func orgUnitQuery(fields ...Field) Query {
	return Query{ElementType: "OrganisationUnit", Fields: fields, EndpointRoot: "/api"}
}

func buildFetch(t *testing.T, q Query, user *auth.User) (string, *Builder) {
	t.Helper()
	b, err := NewFetchBuilder(q, testContext(q.ElementType), user)
	if err != nil {
		t.Fatal(err)
	}
	sql, err := b.BuildFetchSQL()
	if err != nil {
		t.Fatal(err)
	}
	return sql, b
}

func buildCount(t *testing.T, q Query, user *auth.User) (string, *Builder) {
	t.Helper()
	b := NewCountBuilder(q, testContext(q.ElementType), user)
	sql, err := b.BuildCountSQL()
	if err != nil {
		t.Fatal(err)
	}
	return sql, b
}
