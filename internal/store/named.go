package store

import (
	"fmt"
	"strconv"
	"strings"
)

// RewriteNamed rewrites :name parameters to positional $n placeholders and
// returns the argument list in placeholder order. Quoted string literals and
// :: casts pass through untouched. A slice value expands to one placeholder
// per element, so a parameter can back an "in (:name)" list. A named
// parameter without a bound value is an error; a repeated name reuses its
// placeholder.
func RewriteNamed(query string, params map[string]any) (string, []any, error) {
	var out strings.Builder
	out.Grow(len(query))
	args := make([]any, 0, len(params))
	placeholders := make(map[string]string, len(params))
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch c {
		case '\'':
			j := i + 1
			for j < len(query) {
				if query[j] == '\'' {
					if j+1 < len(query) && query[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(query) {
				return "", nil, fmt.Errorf("unterminated string literal at offset %d", i)
			}
			out.WriteString(query[i : j+1])
			i = j
		case ':':
			if i+1 < len(query) && query[i+1] == ':' {
				out.WriteString("::")
				i++
				continue
			}
			j := i + 1
			for j < len(query) && isNameByte(query[j]) {
				j++
			}
			if j == i+1 {
				out.WriteByte(':')
				continue
			}
			name := query[i+1 : j]
			placeholder, ok := placeholders[name]
			if !ok {
				value, bound := params[name]
				if !bound {
					return "", nil, fmt.Errorf("no value bound for parameter :%s", name)
				}
				if slice, isSlice := value.([]any); isSlice {
					parts := make([]string, len(slice))
					for k, element := range slice {
						args = append(args, element)
						parts[k] = "$" + strconv.Itoa(len(args))
					}
					placeholder = strings.Join(parts, ", ")
				} else {
					args = append(args, value)
					placeholder = "$" + strconv.Itoa(len(args))
				}
				placeholders[name] = placeholder
			}
			out.WriteString(placeholder)
			i = j - 1
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), args, nil
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
