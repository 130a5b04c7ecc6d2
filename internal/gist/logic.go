package gist

import (
	"strconv"

	"github.com/temirkhan/gist_registry/internal/schema"
)

// Names of the well-known properties the compiler depends on.
const (
	idProperty           = "id"
	codeProperty         = "code"
	nameProperty         = "name"
	hrefProperty         = "href"
	sharingProperty      = "sharing"
	translationsProperty = "translations"
)

// periodKlass is the temporal item type excluded from pluck projections.
const periodKlass = "Period"

// isPersistentReferenceField returns true for stored to-one associations.
func isPersistentReferenceField(p *schema.Property) bool {
	return p.Persisted && !p.Collection && p.Klass != ""
}

// isPersistentCollectionField returns true for stored to-many associations.
func isPersistentCollectionField(p *schema.Property) bool {
	return p.Persisted && p.Collection
}

// isHrefProperty returns true for the synthetic self-link pseudo property.
func isHrefProperty(p *schema.Property) bool {
	return p.Name == hrefProperty && p.Type == schema.TypeString
}

// isCollectionSizeFilter returns true when the filter compares the size of a
// collection property rather than its elements.
func isCollectionSizeFilter(f Filter, p *schema.Property) bool {
	if !p.Collection {
		return false
	}
	if f.Operator == CompEmpty || f.Operator == CompNotEmpty {
		return true
	}
	return (f.Operator.IsOrderCompare() || f.Operator == CompEq || f.Operator == CompNe) &&
		allNumeric(f.Value)
}

// isStringLengthFilter returns true when an ordering operator with numeric
// operands is applied to a string property; such filters compare the string's
// length, not its value.
func isStringLengthFilter(f Filter, p *schema.Property) bool {
	return p.Type == schema.TypeString && !p.Collection &&
		f.Operator.IsOrderCompare() && allNumeric(f.Value)
}

func allNumeric(values []string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if _, err := strconv.Atoi(v); err != nil {
			return false
		}
	}
	return true
}

// baseType returns the type filter values are coerced to.
func baseType(p *schema.Property) schema.PropertyType {
	if p.Type == "" {
		return schema.TypeString
	}
	return p.Type
}
