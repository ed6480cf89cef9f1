package planner

import (
	"strings"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
)

// BuildDescriptionUpserts implements §4.E.4: upsert the table-level and
// column-level extended-property descriptions that changed between the
// current and desired model. Descriptions are metadata only — they never
// block or reshape a migration, and always run in the final batch.
func BuildDescriptionUpserts(d dialect.Adapter, schema string, oldEntity, newEntity *entity.Definition) []Statement {
	var stmts []Statement

	if changed := descriptionChanged(entityDescription(oldEntity), entityDescription(newEntity)); changed {
		for _, sql := range d.ExtendedPropertyUpsert(schema, "TABLE", newEntity.Name, "", "", descriptionValue(newEntity.Description)) {
			stmts = append(stmts, Statement{
				SQL:         sql,
				Description: "Upsert table description for " + newEntity.Name,
			})
		}
	}

	oldCols := make(map[string]entity.Column)
	for _, c := range oldEntity.Columns {
		oldCols[strings.ToLower(c.Name)] = c
	}

	for _, c := range newEntity.Columns {
		old, existed := oldCols[strings.ToLower(c.Name)]
		if existed && !descriptionChanged(descriptionValue(old.Description), descriptionValue(c.Description)) {
			continue
		}
		if c.Description == nil {
			continue
		}
		for _, sql := range d.ExtendedPropertyUpsert(schema, "TABLE", newEntity.Name, "COLUMN", c.Name, descriptionValue(c.Description)) {
			stmts = append(stmts, Statement{
				SQL:         sql,
				Description: "Upsert column description for " + newEntity.Name + "." + c.Name,
			})
		}
	}

	return stmts
}

func entityDescription(def *entity.Definition) string {
	if def == nil {
		return ""
	}
	return descriptionValue(def.Description)
}

func descriptionValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func descriptionChanged(oldVal, newVal string) bool {
	return oldVal != newVal && newVal != ""
}
