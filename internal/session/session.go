// Package session holds per-upload state: the decoded datasets, the column
// catalog, and the plot slot configuration. Configuration changes never
// trigger rendering; rendering reads a snapshot of the slots.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// Session is one upload batch plus its plot configuration. All methods
// are safe for concurrent use; mutations are serialized per session.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.RWMutex
	lastActive  time.Time
	datasets    []domain.Dataset
	byName      map[string]int
	catalog     []string
	uploadDiags []domain.Diagnostic
	slots       []domain.PlotSpec
	figures     *domain.FigureBatch
}

// New creates a session over the loaded datasets. Slots start at the
// default count, each pointing at the first dataset's first two columns.
func New(id string, datasets []domain.Dataset, catalog []string, uploadDiags []domain.Diagnostic) *Session {
	s := &Session{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		lastActive:  time.Now().UTC(),
		datasets:    datasets,
		byName:      make(map[string]int, len(datasets)),
		catalog:     catalog,
		uploadDiags: uploadDiags,
	}
	for i, ds := range datasets {
		s.byName[ds.Name] = i
	}

	s.slots = make([]domain.PlotSpec, domain.DefaultSlotCount)
	for i := range s.slots {
		s.slots[i] = s.defaultSpec()
	}
	return s
}

// defaultSpec builds the spec new slots start from: the first loaded
// dataset with its first column on x and second column on y. Callers
// hold s.mu or run before the session is shared.
func (s *Session) defaultSpec() domain.PlotSpec {
	spec := domain.PlotSpec{Mode: domain.ModeLine}
	if len(s.datasets) == 0 {
		return spec
	}

	ds := s.datasets[0]
	spec.Source = ds.Name
	if len(ds.Columns) > 0 {
		spec.XColumn = ds.Columns[0].Name
		spec.YColumn = ds.Columns[0].Name
	}
	if len(ds.Columns) > 1 {
		spec.YColumn = ds.Columns[1].Name
	}
	spec.Title = spec.ComputeTitle()
	return spec
}

// SlotCount returns the current number of plot slots
func (s *Session) SlotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// Slots returns a copy of the current slot configuration
func (s *Session) Slots() []domain.PlotSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PlotSpec(nil), s.slots...)
}

// Slot returns a copy of one slot's spec
func (s *Session) Slot(index int) (domain.PlotSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.slots) {
		return domain.PlotSpec{}, fmt.Errorf("%w: %d of %d", ErrSlotOutOfRange, index, len(s.slots))
	}
	return s.slots[index], nil
}

// SetCount resizes the slot list. Shrinking discards the trailing slots
// without touching the survivors; growing default-initializes the new ones.
func (s *Session) SetCount(n int) error {
	if n < domain.MinSlotCount || n > domain.MaxSlotCount {
		return fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidCount, n, domain.MinSlotCount, domain.MaxSlotCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case n < len(s.slots):
		s.slots = s.slots[:n]
	case n > len(s.slots):
		for len(s.slots) < n {
			s.slots = append(s.slots, s.defaultSpec())
		}
	}
	return nil
}

// UpdateSpec applies one field change to one slot. Changing the source
// eagerly re-validates the slot's column selections against the new
// dataset: selections that survive are kept, absent ones are reset to
// the new source's defaults and reported as stale-column diagnostics.
// The derived title is recomputed on every change.
func (s *Session) UpdateSpec(index int, field domain.SpecField, value string) ([]domain.Diagnostic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.slots) {
		return nil, fmt.Errorf("%w: %d of %d", ErrSlotOutOfRange, index, len(s.slots))
	}

	spec := &s.slots[index]
	var diags []domain.Diagnostic

	switch field {
	case domain.FieldSource:
		idx, ok := s.byName[value]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, value)
		}
		spec.Source = value
		diags = s.revalidateColumns(index, spec, s.datasets[idx])

	case domain.FieldXColumn:
		if err := s.checkColumn(spec.Source, value); err != nil {
			return nil, err
		}
		spec.XColumn = value

	case domain.FieldYColumn:
		if err := s.checkColumn(spec.Source, value); err != nil {
			return nil, err
		}
		spec.YColumn = value

	case domain.FieldMode:
		mode := domain.RenderMode(value)
		if !mode.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMode, value)
		}
		spec.Mode = mode

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}

	spec.Title = spec.ComputeTitle()
	return diags, nil
}

// revalidateColumns resolves stale column selections after a source
// change. Caller holds s.mu.
func (s *Session) revalidateColumns(index int, spec *domain.PlotSpec, ds domain.Dataset) []domain.Diagnostic {
	var diags []domain.Diagnostic

	first, second := "", ""
	if len(ds.Columns) > 0 {
		first = ds.Columns[0].Name
		second = first
	}
	if len(ds.Columns) > 1 {
		second = ds.Columns[1].Name
	}

	if !ds.HasColumn(spec.XColumn) {
		diags = append(diags, domain.NewStaleColumnReference(index, spec.XColumn, ds.Name))
		spec.XColumn = first
	}
	if !ds.HasColumn(spec.YColumn) {
		diags = append(diags, domain.NewStaleColumnReference(index, spec.YColumn, ds.Name))
		spec.YColumn = second
	}
	return diags
}

// checkColumn verifies a column exists in the named dataset. Caller holds s.mu.
func (s *Session) checkColumn(source, column string) error {
	idx, ok := s.byName[source]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDataset, source)
	}
	if !s.datasets[idx].HasColumn(column) {
		return fmt.Errorf("%w: %q in %q", ErrUnknownColumn, column, source)
	}
	return nil
}

// Datasets returns the loaded datasets in upload order
func (s *Session) Datasets() []domain.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Dataset(nil), s.datasets...)
}

// Dataset looks a dataset up by name
func (s *Session) Dataset(name string) (domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byName[name]
	if !ok {
		return domain.Dataset{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return s.datasets[idx], nil
}

// Catalog returns the advisory union of column names
func (s *Session) Catalog() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.catalog...)
}

// UploadDiagnostics returns the per-file diagnostics from loading
func (s *Session) UploadDiagnostics() []domain.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Diagnostic(nil), s.uploadDiags...)
}

// SetFigures stores the result of the most recent render
func (s *Session) SetFigures(batch *domain.FigureBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.figures = batch
}

// Figures returns the most recent render result, nil before the first render
func (s *Session) Figures() *domain.FigureBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.figures
}

// Touch marks the session as recently used
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now().UTC()
}

// LastActive reports when the session was last used
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}
