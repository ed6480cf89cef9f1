package builder

import (
	"github.com/meridian-db/meridian/entity"
)

// topoSort orders entities so that every table referenced by a foreign key
// precedes the table that declares it (§4.B.7). Cycles are reported as
// *SchemaCycleError.
func topoSort(byName map[string]*entity.Definition) ([]*entity.Definition, error) {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS stack
		black = 2 // fully processed
	)

	color := make(map[string]int, len(byName))
	var order []*entity.Definition
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			cycle := append(append([]string{}, stack...), name)
			return &SchemaCycleError{Entities: cycle}
		}

		color[name] = gray
		stack = append(stack, name)

		def := byName[name]
		for _, fk := range def.ForeignKeys {
			if _, ok := byName[fk.ReferencedTable]; !ok || fk.ReferencedTable == name {
				continue
			}
			if err := visit(fk.ReferencedTable); err != nil {
				return err
			}
		}
		for _, c := range def.Constraints {
			if c.Type != entity.ConstraintForeignKey || c.ReferencedTable == "" || c.ReferencedTable == name {
				continue
			}
			if _, ok := byName[c.ReferencedTable]; !ok {
				continue
			}
			if err := visit(c.ReferencedTable); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		color[name] = black
		order = append(order, def)
		return nil
	}

	for _, name := range sortedKeys(byName) {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
