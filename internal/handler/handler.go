package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/temirkhan/gist_registry/internal/config"
	"github.com/temirkhan/gist_registry/internal/gist"
	"github.com/temirkhan/gist_registry/internal/schema"
	"github.com/temirkhan/gist_registry/internal/store"
)

type Handler struct {
	store    *store.Store
	registry *schema.Registry
	cfg      *config.Config
}

func New(store *store.Store, registry *schema.Registry, cfg *config.Config) *Handler {
	return &Handler{store: store, registry: registry, cfg: cfg}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/{object}/gist", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/{object}/gist/count", h.Count).Methods(http.MethodGet)
	r.HandleFunc("/api/{object}/{uid}/{collection}/gist", h.ListCollection).Methods(http.MethodGet)
	r.HandleFunc("/api/{object}/{uid}/{collection}/gist/count", h.CountCollection).Methods(http.MethodGet)
}

// List handles GET /api/{object}/gist
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	objectName := mux.Vars(r)["object"]
	sch := h.schemaOf(w, objectName)
	if sch == nil {
		return
	}
	q, err := h.parseQuery(r, sch)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error(), "")
		return
	}
	h.respondList(w, r, q, objectName)
}

// Count handles GET /api/{object}/gist/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	objectName := mux.Vars(r)["object"]
	sch := h.schemaOf(w, objectName)
	if sch == nil {
		return
	}
	q, err := h.parseQuery(r, sch)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error(), "")
		return
	}
	h.respondCount(w, r, q)
}

// ListCollection handles GET /api/{object}/{uid}/{collection}/gist
func (h *Handler) ListCollection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	q, ok := h.collectionQuery(w, r, vars)
	if !ok {
		return
	}
	h.respondList(w, r, q, vars["collection"])
}

// CountCollection handles GET /api/{object}/{uid}/{collection}/gist/count
func (h *Handler) CountCollection(w http.ResponseWriter, r *http.Request) {
	q, ok := h.collectionQuery(w, r, mux.Vars(r))
	if !ok {
		return
	}
	h.respondCount(w, r, q)
}

func (h *Handler) schemaOf(w http.ResponseWriter, objectName string) *schema.Schema {
	sch := h.registry.ByEndpoint(objectName)
	if sch == nil {
		writeError(w, http.StatusNotFound, "OBJECT_NOT_FOUND",
			"Object not found",
			"No schema registered with endpoint '"+objectName+"'")
	}
	return sch
}

// collectionQuery builds the owner-scoped query of a collection endpoint: the
// elements are the items of one collection of one owning object.
func (h *Handler) collectionQuery(w http.ResponseWriter, r *http.Request, vars map[string]string) (gist.Query, bool) {
	ownerSchema := h.schemaOf(w, vars["object"])
	if ownerSchema == nil {
		return gist.Query{}, false
	}
	property := ownerSchema.Property(vars["collection"])
	if property == nil || !property.Collection || property.ItemKlass == "" {
		writeError(w, http.StatusNotFound, "COLLECTION_NOT_FOUND",
			"Collection not found",
			"Schema '"+ownerSchema.Name+"' has no collection '"+vars["collection"]+"'")
		return gist.Query{}, false
	}
	itemSchema := h.registry.Get(property.ItemKlass)
	if itemSchema == nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Unknown item type", "No schema registered for '"+property.ItemKlass+"'")
		return gist.Query{}, false
	}
	q, err := h.parseQuery(r, itemSchema)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error(), "")
		return gist.Query{}, false
	}
	q.Owner = &gist.Owner{
		Type:               ownerSchema.Name,
		CollectionProperty: property.Name,
		ID:                 vars["uid"],
	}
	return q, true
}

// respondList compiles and runs the fetch and count queries concurrently and
// writes the page keyed under key.
func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, q gist.Query, key string) {
	user := userFrom(r)
	context := schema.NewContext(h.registry, q.ElementType)

	fetch, err := gist.NewFetchBuilder(q, context, user)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	counter := gist.NewCountBuilder(q, context, user)

	fetchSQL, err := fetch.BuildFetchSQL()
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	countSQL, err := counter.BuildCountSQL()
	if err != nil {
		h.writeQueryError(w, err)
		return
	}

	fetchParams := map[string]any{}
	if err := fetch.AddFetchParameters(bind(fetchParams), gist.DefaultArgumentParser); err != nil {
		h.writeQueryError(w, err)
		return
	}
	countParams := map[string]any{}
	if err := counter.AddCountParameters(bind(countParams), gist.DefaultArgumentParser); err != nil {
		h.writeQueryError(w, err)
		return
	}

	g, ctx := errgroup.WithContext(r.Context())

	var rows [][]any
	g.Go(func() error {
		var err error
		rows, err = h.store.Fetch(ctx, fetchSQL, fetchParams, q.PageSize, (q.Page-1)*q.PageSize)
		return err
	})

	var total int64
	g.Go(func() error {
		var err error
		total, err = h.store.Count(ctx, countSQL, countParams)
		return err
	})

	if err := g.Wait(); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Query failed", err.Error())
		return
	}

	fetch.Transform(rows)

	writeJSON(w, http.StatusOK, map[string]any{
		"pager": newPager(q.Page, q.PageSize, total),
		key:     serializeRows(q.Fields, rows),
	})
}

func (h *Handler) respondCount(w http.ResponseWriter, r *http.Request, q gist.Query) {
	user := userFrom(r)
	context := schema.NewContext(h.registry, q.ElementType)

	counter := gist.NewCountBuilder(q, context, user)
	countSQL, err := counter.BuildCountSQL()
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	countParams := map[string]any{}
	if err := counter.AddCountParameters(bind(countParams), gist.DefaultArgumentParser); err != nil {
		h.writeQueryError(w, err)
		return
	}

	count, err := h.store.Count(r.Context(), countSQL, countParams)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Query failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, schema.ErrNoSuchPath) || errors.Is(err, gist.ErrUnsupportedTransform) {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error(), "")
		return
	}
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build query", err.Error())
}

func bind(params map[string]any) gist.ParameterSink {
	return func(name string, value any) {
		params[name] = value
	}
}

// serializeRows maps fetched rows to objects keyed by the requested fields.
// Support fields appended during compilation sit past the requested ones and
// are not serialized.
func serializeRows(fields []gist.Field, rows [][]any) []map[string]any {
	list := make([]map[string]any, len(rows))
	for i, row := range rows {
		obj := make(map[string]any, len(fields))
		for j, f := range fields {
			if j >= len(row) {
				break
			}
			if f.PropertyPath == gist.RefsPath && row[j] == nil {
				continue
			}
			obj[f.OutputName()] = row[j]
		}
		list[i] = obj
	}
	return list
}
