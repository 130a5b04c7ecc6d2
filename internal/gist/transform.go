package gist

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/language"
)

// A rowTransformer post-processes one column of a fetched row. Transformers
// run in registration order, so a value transformer registered before a link
// transformer sees the raw database value.
type rowTransformer struct {
	column int
	apply  func(row []any)
}

func (b *Builder) addTransformer(column int, apply func(row []any)) {
	b.transformers = append(b.transformers, rowTransformer{column: column, apply: apply})
}

// Transform applies the compiled post-processing pipeline to the fetched rows
// in place. It is a no-op when compilation registered no transformers, and
// idempotent values stay stable when applied twice.
func (b *Builder) Transform(rows [][]any) {
	if len(b.transformers) == 0 {
		return
	}
	for _, row := range rows {
		for _, t := range b.transformers {
			if t.column < len(row) {
				t.apply(row)
			}
		}
	}
}

// IDObject wraps a plain identifier for object-shaped serialization.
type IDObject struct {
	ID string `json:"id"`
}

func toIDObject(value any) any {
	id, ok := value.(string)
	if !ok || id == "" {
		return value
	}
	return IDObject{ID: id}
}

func toIDObjects(value any) any {
	ids := asStrings(value)
	if ids == nil {
		return value
	}
	objects := make([]IDObject, len(ids))
	for i, id := range ids {
		objects[i] = IDObject{ID: id}
	}
	return objects
}

func asStrings(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []byte:
		var out []string
		if err := json.Unmarshal(v, &out); err != nil {
			return nil
		}
		return out
	}
	return nil
}

// Translation is one localized property value as stored in the translations
// collection of a translatable object.
type Translation struct {
	Locale   string `json:"locale"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// translate replaces value with its localized variant for locale. An exact
// locale match wins; a translation in the same base language is the fallback;
// otherwise the stored value stays.
func translate(value any, key string, translations any, locale language.Tag) any {
	list := asTranslations(translations)
	if len(list) == 0 {
		return value
	}
	want := locale.String()
	wantBase, _ := locale.Base()
	fallback := ""
	for _, t := range list {
		if !strings.EqualFold(t.Property, key) || t.Value == "" {
			continue
		}
		normalized := strings.ReplaceAll(t.Locale, "_", "-")
		if strings.EqualFold(normalized, want) {
			return t.Value
		}
		if fallback == "" {
			if tag, err := language.Parse(normalized); err == nil {
				if base, _ := tag.Base(); base == wantBase {
					fallback = t.Value
				}
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return value
}

func asTranslations(value any) []Translation {
	switch v := value.(type) {
	case nil:
		return nil
	case []Translation:
		return v
	case []byte:
		var out []Translation
		if err := json.Unmarshal(v, &out); err != nil {
			return nil
		}
		return out
	case string:
		var out []Translation
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil
		}
		return out
	case []any:
		out := make([]Translation, 0, len(v))
		for _, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			t := Translation{}
			t.Locale, _ = m["locale"].(string)
			t.Property, _ = m["property"].(string)
			t.Value, _ = m["value"].(string)
			out = append(out, t)
		}
		return out
	}
	return nil
}

// endpointURLParams returns the query string appended to synthesized gist
// links so link targets inherit the URL style of the current request.
func (b *Builder) endpointURLParams() string {
	if b.query.Absolute {
		return "?absoluteUrls=true"
	}
	return ""
}

// endpointURL synthesizes the gist link of one object, "" when the identifier
// is not available.
func endpointURL(root string, id any, params string) string {
	uid, ok := id.(string)
	if !ok || uid == "" {
		return ""
	}
	return root + "/" + uid + "/gist" + params
}

// collectionURL synthesizes the gist link of one collection of an object.
func collectionURL(root string, id any, property, params string) string {
	uid, ok := id.(string)
	if !ok || uid == "" {
		return ""
	}
	return root + "/" + uid + "/" + property + "/gist" + params
}

// addEndpointURL records a synthesized link in the row's refs column,
// creating the per-row map on first use. Empty links are dropped so objects
// without an identifier carry no refs entry.
func addEndpointURL(row []any, refsIndex int, name, url string) {
	if url == "" {
		return
	}
	refs, ok := row[refsIndex].(map[string]any)
	if !ok {
		refs = make(map[string]any)
		row[refsIndex] = refs
	}
	refs[name] = url
}
