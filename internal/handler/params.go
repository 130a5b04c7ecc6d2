package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/temirkhan/gist_registry/internal/auth"
	"github.com/temirkhan/gist_registry/internal/gist"
	"github.com/temirkhan/gist_registry/internal/schema"
)

// parseQuery builds the gist query of one request against the element type's
// schema.
func (h *Handler) parseQuery(r *http.Request, elementSchema *schema.Schema) (gist.Query, error) {
	values := r.URL.Query()
	q := gist.Query{
		ElementType:  elementSchema.Name,
		EndpointRoot: "/api",
		Page:         1,
		PageSize:     h.cfg.DefaultPageSize,
	}

	if values.Get("absoluteUrls") == "true" {
		q.Absolute = true
		q.EndpointRoot = h.cfg.BaseURL + "/api"
	}

	fields, err := gist.ParseFields(values.Get("fields"))
	if err != nil {
		return gist.Query{}, err
	}
	if len(fields) == 0 {
		fields = defaultFields(elementSchema)
	}
	q.Fields = fields

	for _, raw := range values["filter"] {
		f, err := gist.ParseFilter(raw)
		if err != nil {
			return gist.Query{}, err
		}
		q.Filters = append(q.Filters, f)
	}

	for _, raw := range values["order"] {
		for _, part := range strings.Split(raw, ",") {
			o, err := gist.ParseOrder(part)
			if err != nil {
				return gist.Query{}, err
			}
			q.Orders = append(q.Orders, o)
		}
	}

	if strings.EqualFold(values.Get("rootJunction"), "or") {
		q.AnyFilter = true
	}
	if values.Get("inverse") == "true" {
		q.Inverse = true
	}

	if locale := values.Get("locale"); locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return gist.Query{}, fmt.Errorf("locale %q: %w", locale, err)
		}
		q.TranslationLocale = &tag
		q.Translate = values.Get("translate") != "false"
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return gist.Query{}, fmt.Errorf("page must be a positive number: %q", raw)
		}
		q.Page = page
	}
	if raw := values.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return gist.Query{}, fmt.Errorf("pageSize must be a positive number: %q", raw)
		}
		if size > h.cfg.MaxPageSize {
			size = h.cfg.MaxPageSize
		}
		q.PageSize = size
	}

	return q, nil
}

// defaultFields projects every stored scalar property in schema order,
// collections by their size, plus the synthesized links when the type is
// addressable.
func defaultFields(s *schema.Schema) []gist.Field {
	fields := make([]gist.Field, 0, len(s.Properties)+1)
	for _, p := range s.Properties {
		if !p.Persisted || p.Type == schema.TypeComplex {
			continue
		}
		if p.Name == "sharing" || p.Name == "translations" {
			continue
		}
		if p.Collection {
			fields = append(fields, gist.Field{PropertyPath: p.Name, Transformation: gist.TransformSize})
			continue
		}
		fields = append(fields, gist.Field{PropertyPath: p.Name})
	}
	if s.RelativeAPIEndpoint != "" {
		fields = append(fields, gist.Field{PropertyPath: gist.RefsPath})
	}
	return fields
}

// userFrom reads the principal forwarded by the gateway. Requests without
// user headers are trusted internal calls and bypass sharing.
func userFrom(r *http.Request) *auth.User {
	uid := r.Header.Get("X-User-Uid")
	super := r.Header.Get("X-User-Super")
	if uid == "" && super == "" {
		return nil
	}
	var groups []string
	if raw := r.Header.Get("X-User-Groups"); raw != "" {
		groups = strings.Split(raw, ",")
		for i, g := range groups {
			groups[i] = strings.TrimSpace(g)
		}
	}
	return &auth.User{UID: uid, Super: super == "true", GroupUIDs: groups}
}
