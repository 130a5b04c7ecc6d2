package gist

import (
	"fmt"

	"github.com/temirkhan/gist_registry/internal/schema"
)

// createFieldSQL compiles one projection column and registers the row
// transformers the field needs.
func (b *Builder) createFieldSQL(index int, field Field) (string, error) {
	path := field.PropertyPath
	if path == RefsPath {
		return sqlNull, nil
	}
	property, err := b.context.ResolveMandatory(path)
	if err != nil {
		return "", err
	}
	if (b.query.Translate || field.Translate) && property.Translatable && b.query.TranslationLocale != nil {
		if translationsIndex, ok := b.sameParentFieldIndex(path, translationsProperty); ok {
			locale := *b.query.TranslationLocale
			key := property.TransKey()
			b.addTransformer(index, func(row []any) {
				row[index] = translate(row[index], key, row[translationsIndex], locale)
			})
		}
	}
	if isHrefProperty(property) {
		endpointRoot := b.sameParentEndpointRoot(path)
		idIndex, ok := b.sameParentFieldIndex(path, idProperty)
		if ok && endpointRoot != "" {
			urlParams := b.endpointURLParams()
			b.addTransformer(index, func(row []any) {
				if url := endpointURL(endpointRoot, row[idIndex], urlParams); url != "" {
					row[index] = url
				}
			})
		}
		return sqlNull, nil
	}
	if isPersistentReferenceField(property) {
		return b.createReferenceFieldSQL(index, field, property)
	}
	if isPersistentCollectionField(property) {
		return b.createCollectionFieldSQL(index, field, property)
	}
	if property.Collection && property.OwningRole != "" {
		member, err := b.memberExpr(b.context, "e", fieldAlias(index), path, false)
		if err != nil {
			return "", err
		}
		return sizeExpr(member), nil
	}
	return b.memberExpr(b.context, "e", fieldAlias(index), path, false)
}

// createReferenceFieldSQL compiles a to-one association field. Addressable
// targets project a display property and synthesize an object link; targets
// without one are embedded directly.
func (b *Builder) createReferenceFieldSQL(index int, field Field, property *schema.Property) (string, error) {
	alias := fieldAlias(index)
	fieldContext := b.context.SwitchedTo(property.Klass)
	propertyName, err := b.determineReferenceProperty(field, fieldContext, false)
	if err != nil {
		return "", err
	}
	target := fieldContext.Home()
	if propertyName == "" || target == nil || target.RelativeAPIEndpoint == "" {
		// Embed the object directly.
		if !property.Required {
			return fmt.Sprintf(`(select %s."data" from %s %s where %s and %s = %s)`,
				qi(alias), objectsTable, qi(alias), typeCond(alias, property.Klass),
				uidExpr(alias), dataTextExpr("e", property.Key())), nil
		}
		return dataExpr("e", property.Key()), nil
	}

	if property.Identifiable {
		endpointRoot := b.endpointRoot(property.Klass)
		if endpointRoot != "" {
			if refsIndex, ok := b.fieldIndexByPath[RefsPath]; ok {
				name := field.OutputName()
				urlParams := b.endpointURLParams()
				b.addTransformer(index, func(row []any) {
					addEndpointURL(row, refsIndex, name, endpointURL(endpointRoot, row[index], urlParams))
				})
			}
		}
	}

	if field.Transformation == TransformIDObjects {
		b.addTransformer(index, func(row []any) {
			row[index] = toIDObject(row[index])
		})
	}

	// The stored value of a reference is the target's identifier, so the
	// identifier display property needs no subquery at all.
	display, err := fieldContext.ResolveMandatory(propertyName)
	if err != nil {
		return "", err
	}
	if propertyName == idProperty {
		return dataTextExpr("e", property.Key()), nil
	}
	return fmt.Sprintf(`(select %s from %s %s where %s and %s = %s)`,
		selectExpr(alias, display), objectsTable, qi(alias), typeCond(alias, property.Klass),
		uidExpr(alias), dataTextExpr("e", property.Key())), nil
}

// createCollectionFieldSQL compiles a to-many association field by
// dispatching on the requested transformation.
func (b *Builder) createCollectionFieldSQL(index int, field Field, property *schema.Property) (string, error) {
	path := field.PropertyPath
	endpointRoot := b.sameParentEndpointRoot(path)
	if endpointRoot != "" {
		idIndex, hasID := b.sameParentFieldIndex(path, idProperty)
		refsIndex, hasRefs := b.fieldIndexByPath[RefsPath]
		if hasID && hasRefs {
			name := field.OutputName()
			key := property.Key()
			urlParams := b.endpointURLParams()
			b.addTransformer(index, func(row []any) {
				addEndpointURL(row, refsIndex, name, collectionURL(endpointRoot, row[idIndex], key, urlParams))
			})
		}
	}

	switch field.Transformation {
	case TransformAuto, TransformNone:
		return sqlNull, nil
	case TransformSize:
		return b.createSizeTransformerSQL(index, field, property, "")
	case TransformIsEmpty:
		return b.createSizeTransformerSQL(index, field, property, "= 0")
	case TransformIsNotEmpty:
		return b.createSizeTransformerSQL(index, field, property, "> 0")
	case TransformNotMember:
		return b.createHasMemberTransformerSQL(index, field, property, "= 0")
	case TransformMember:
		return b.createHasMemberTransformerSQL(index, field, property, "> 0")
	case TransformIDObjects:
		b.addTransformer(index, func(row []any) {
			row[index] = toIDObjects(row[index])
		})
		return b.createIDsTransformerSQL(index, field, property)
	case TransformIDs:
		return b.createIDsTransformerSQL(index, field, property)
	case TransformPluck:
		return b.createPluckTransformerSQL(index, field, property, true)
	}
	return sqlNull, nil
}

// createSizeTransformerSQL projects the collection's cardinality, via a
// plain array length when no access control applies and via an
// access-filtered correlated count otherwise.
func (b *Builder) createSizeTransformerSQL(index int, field Field, property *schema.Property, compare string) (string, error) {
	alias := fieldAlias(index)
	itemContext := b.context.SwitchedTo(property.ItemKlass)
	member, err := b.memberExpr(b.context, "e", alias, field.PropertyPath, false)
	if err != nil {
		return "", err
	}
	if !b.filterBySharing(itemContext) {
		// Generates better SQL in case no access control is needed.
		expr := sizeExpr(member)
		if compare != "" {
			expr += " " + compare
		}
		return expr, nil
	}
	accessFilter := b.accessFilterSQL(itemContext, alias)
	return fmt.Sprintf(`(select count(*) %s from %s %s where %s and %s in (%s) and %s)`,
		compare, objectsTable, qi(alias), typeCond(alias, property.ItemKlass),
		uidExpr(alias), elementsExpr(member), accessFilter), nil
}

func (b *Builder) createIDsTransformerSQL(index int, field Field, property *schema.Property) (string, error) {
	return b.createPluckTransformerSQL(index, field, property, false)
}

// createPluckTransformerSQL projects an aggregated array of one property of
// the collection's items, degrading to the size projection when no pluckable
// property can be determined.
func (b *Builder) createPluckTransformerSQL(index int, field Field, property *schema.Property, forceTextual bool) (string, error) {
	alias := fieldAlias(index)
	itemContext := b.context.SwitchedTo(property.ItemKlass)
	propertyName, err := b.determineReferenceProperty(field, itemContext, forceTextual)
	if err != nil {
		return "", err
	}
	if propertyName == "" || property.ItemKlass == periodKlass {
		// Give up.
		return b.createSizeTransformerSQL(index, field, property, "")
	}
	display, err := itemContext.ResolveMandatory(propertyName)
	if err != nil {
		return "", err
	}
	member, err := b.memberExpr(b.context, "e", alias, field.PropertyPath, false)
	if err != nil {
		return "", err
	}
	accessFilter := b.accessFilterSQL(itemContext, alias)
	return fmt.Sprintf(`(select jsonb_agg(%s) from %s %s where %s and %s in (%s) and %s)`,
		selectExpr(alias, display), objectsTable, qi(alias), typeCond(alias, property.ItemKlass),
		uidExpr(alias), elementsExpr(member), accessFilter), nil
}

// createHasMemberTransformerSQL projects whether the collection contains the
// member bound under the field's path parameter.
func (b *Builder) createHasMemberTransformerSQL(index int, field Field, property *schema.Property, compare string) (string, error) {
	alias := fieldAlias(index)
	member, err := b.memberExpr(b.context, "e", alias, field.PropertyPath, false)
	if err != nil {
		return "", err
	}
	accessFilter := b.accessFilterSQL(b.context.SwitchedTo(property.ItemKlass), alias)
	return fmt.Sprintf(`(select count(*) %s from %s %s where %s and %s in (%s) and %s = :%s and %s)`,
		compare, objectsTable, qi(alias), typeCond(alias, property.ItemKlass),
		uidExpr(alias), elementsExpr(member), uidExpr(alias), memberParamName(field.PropertyPath), accessFilter), nil
}

// determineReferenceProperty picks the property a reference or collection
// item is represented by: an explicit argument wins, then a discriminator,
// then the first persisted one of id, code, name. Empty means none apply and
// the caller must fall back.
func (b *Builder) determineReferenceProperty(field Field, fieldContext *schema.Context, forceTextual bool) (string, error) {
	if field.TransformationArgument != "" {
		return b.pluckPropertyName(field, fieldContext, forceTextual)
	}
	home := fieldContext.Home()
	if home != nil && home.Discriminator != "" {
		return home.Discriminator, nil
	}
	for _, candidate := range []string{idProperty, codeProperty, nameProperty} {
		if existsAsReference(fieldContext, candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func existsAsReference(fieldContext *schema.Context, name string) bool {
	p := fieldContext.Resolve(name)
	return p != nil && p.Persisted
}

func (b *Builder) pluckPropertyName(field Field, fieldContext *schema.Context, forceTextual bool) (string, error) {
	propertyName := field.TransformationArgument
	property, err := fieldContext.ResolveMandatory(propertyName)
	if err != nil {
		return "", err
	}
	if forceTextual && property.Type != schema.TypeString {
		return "", fmt.Errorf("%w: only textual properties can be plucked, but %s is a: %s",
			ErrUnsupportedTransform, propertyName, property.Type)
	}
	return propertyName, nil
}
