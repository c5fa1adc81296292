// Package catalog derives the advisory column catalog from loaded datasets.
package catalog

import (
	"errors"

	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// ErrEmptyCatalog is returned when no dataset survived loading
var ErrEmptyCatalog = errors.New("empty catalog: no datasets loaded")

// Build returns the de-duplicated union of column names across all datasets,
// preserving first-seen order: dataset insertion order, then column order
// within each dataset. The catalog is advisory; rendering always resolves
// columns against a single source dataset.
func Build(datasets []domain.Dataset) ([]string, error) {
	if len(datasets) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]struct{})
	var union []string
	for _, ds := range datasets {
		for _, col := range ds.Columns {
			if _, ok := seen[col.Name]; ok {
				continue
			}
			seen[col.Name] = struct{}{}
			union = append(union, col.Name)
		}
	}

	if len(union) == 0 {
		return nil, ErrEmptyCatalog
	}
	return union, nil
}
