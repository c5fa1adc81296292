package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/catalog"
	apierrors "github.com/NU-Formula-Racing/daq-interface-25/internal/errors"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/exporter"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/infrastructure"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/ingest"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/render"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/session"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/events"
)

// EventBroadcaster pushes session events to connected dashboard clients.
// The websocket hub satisfies this; a nil broadcaster disables events.
type EventBroadcaster interface {
	Broadcast(msg events.Message)
}

// FigureSnapshotter captures a rendered figure document as a PNG image.
type FigureSnapshotter interface {
	PNG(ctx context.Context, html string) ([]byte, error)
}

// SessionService orchestrates the upload -> configure -> render workflow.
// It is the only layer that touches the session store, so handlers and
// websocket code never coordinate session state themselves.
type SessionService struct {
	loader      *ingest.Loader
	store       *session.Store
	renderer    *render.Renderer
	snapshotter FigureSnapshotter
	exporter    *exporter.Exporter
	hub         EventBroadcaster
	metrics     *infrastructure.BusinessMetrics
	logger      *slog.Logger
}

// NewSessionService wires the ingest, session, render, and export layers
// behind a single facade. The hub, metrics, and snapshotter may be nil;
// the corresponding side effects are skipped.
func NewSessionService(
	loader *ingest.Loader,
	store *session.Store,
	renderer *render.Renderer,
	snapshotter FigureSnapshotter,
	exp *exporter.Exporter,
	hub EventBroadcaster,
	metrics *infrastructure.BusinessMetrics,
	logger *slog.Logger,
) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		loader:      loader,
		store:       store,
		renderer:    renderer,
		snapshotter: snapshotter,
		exporter:    exp,
		hub:         hub,
		metrics:     metrics,
		logger:      logger.With(slog.String("component", "session_service")),
	}
}

// SessionView is the API representation of a session: dataset summaries
// instead of full column data, plus the current slot configuration.
type SessionView struct {
	ID          string                  `json:"id"`
	CreatedAt   time.Time               `json:"created_at"`
	Datasets    []domain.DatasetSummary `json:"datasets"`
	Catalog     []string                `json:"catalog"`
	Slots       []domain.PlotSpec       `json:"slots"`
	Diagnostics []domain.Diagnostic     `json:"diagnostics,omitempty"`
}

// SlotView is returned after a slot update: the accepted spec plus any
// stale-column diagnostics the change produced.
type SlotView struct {
	Slot        int                 `json:"slot"`
	Spec        domain.PlotSpec     `json:"spec"`
	Diagnostics []domain.Diagnostic `json:"diagnostics,omitempty"`
}

// PreviewView is a bounded tabular preview of one dataset.
type PreviewView struct {
	Name      string                 `json:"name"`
	Columns   []domain.ColumnSummary `json:"columns"`
	Rows      [][]string             `json:"rows"`
	RowCount  int                    `json:"row_count"`
	Truncated bool                   `json:"truncated"`
}

// CreateSession decodes the uploaded files, builds the column catalog,
// and opens a session over the datasets that survived. Files that fail
// to decode become diagnostics on the session, not errors; the call only
// fails when no file yields a usable dataset or the store is full.
func (s *SessionService) CreateSession(ctx context.Context, uploads []ingest.Upload) (*SessionView, error) {
	if len(uploads) == 0 {
		return nil, ErrNoUploads
	}
	if err := s.loader.ValidateBatch(len(uploads)); err != nil {
		return nil, err
	}

	start := time.Now()
	result := s.loader.Load(ctx, uploads)
	s.recordUploads(ctx, uploads, result)

	// A batch where nothing decoded returns the per-file diagnostics in the
	// error details so the client can list what went wrong.
	columns, err := catalog.Build(result.Datasets)
	if err != nil {
		s.logger.Warn("upload batch produced no usable datasets",
			slog.Int("uploads", len(uploads)),
			slog.Int("diagnostics", len(result.Diagnostics)))
		return nil, apierrors.EmptyCatalogError(result.Diagnostics)
	}

	sess, err := s.store.Create(result.Datasets, columns, result.Diagnostics)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, 1)
	}

	s.publish(ctx, events.MessageTypeSessionCreated, sess.ID, nil)
	for _, ds := range result.Datasets {
		s.publish(ctx, events.MessageTypeDatasetLoaded, sess.ID, events.DatasetLoadedData{
			Name:     ds.Name,
			RowCount: ds.RowCount,
			Columns:  len(ds.Columns),
		})
	}
	for _, diag := range result.Diagnostics {
		s.publish(ctx, events.MessageTypeUploadDiagnostic, sess.ID, events.DiagnosticData{Diagnostic: diag})
	}

	s.logger.InfoContext(ctx, "session created",
		slog.String("session_id", sess.ID),
		slog.Int("datasets", len(result.Datasets)),
		slog.Int("catalog_columns", len(columns)),
		slog.Int("diagnostics", len(result.Diagnostics)),
		slog.Duration("elapsed", time.Since(start)))

	return s.viewOf(sess), nil
}

// GetSession returns the current state of one session.
func (s *SessionService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return s.viewOf(sess), nil
}

// DeleteSession ends a session and releases its datasets.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, -1)
	}
	s.publish(ctx, events.MessageTypeSessionEnded, id, nil)
	s.logger.InfoContext(ctx, "session ended", slog.String("session_id", id))
	return nil
}

// SetSlotCount resizes the slot grid. Growing appends default slots;
// shrinking drops the tail and keeps surviving configurations intact.
func (s *SessionService) SetSlotCount(ctx context.Context, id string, count int) (*SessionView, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := sess.SetCount(count); err != nil {
		return nil, err
	}

	s.publish(ctx, events.MessageTypeSlotsResized, id, events.SlotsResizedData{Count: count})
	s.logger.InfoContext(ctx, "slot count changed",
		slog.String("session_id", id),
		slog.Int("count", count))
	return s.viewOf(sess), nil
}

// UpdateSlot applies one field change to one slot. A source change
// revalidates the slot's columns against the new dataset, so the returned
// view may carry stale-column diagnostics alongside the adjusted spec.
func (s *SessionService) UpdateSlot(ctx context.Context, id string, index int, field domain.SpecField, value string) (*SlotView, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	diags, err := sess.UpdateSpec(index, field, value)
	if err != nil {
		return nil, err
	}

	spec, err := sess.Slot(index)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.MessageTypeSlotUpdated, id, events.SlotUpdatedData{
		Slot:  index,
		Field: string(field),
		Spec:  spec,
	})
	for _, diag := range diags {
		s.publish(ctx, events.MessageTypeConfigDiagnostic, id, events.DiagnosticData{Diagnostic: diag})
	}

	s.logger.InfoContext(ctx, "slot updated",
		slog.String("session_id", id),
		slog.Int("slot", index),
		slog.String("field", string(field)),
		slog.String("value", value),
		slog.Int("diagnostics", len(diags)))

	return &SlotView{Slot: index, Spec: spec, Diagnostics: diags}, nil
}

// RenderSession renders every configured slot and caches the batch on the
// session. Slot-level problems surface as diagnostics on the affected
// figures, never as an error for the batch.
func (s *SessionService) RenderSession(ctx context.Context, id string) (*domain.FigureBatch, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.MessageTypeRenderStarted, id, nil)
	start := time.Now()

	batch := s.renderer.Batch(ctx, id, sess.Slots(), sess.Datasets())
	sess.SetFigures(batch)

	diagCount := 0
	for _, fig := range batch.Figures {
		for _, diag := range fig.Diagnostics {
			diagCount++
			s.publish(ctx, events.MessageTypeRenderDiagnostic, id, events.DiagnosticData{Diagnostic: diag})
		}
	}

	if s.metrics != nil {
		s.metrics.FiguresRendered.Add(ctx, int64(len(batch.Figures)))
		if diagCount > 0 {
			s.metrics.RenderDiagnostics.Add(ctx, int64(diagCount))
		}
	}

	s.publish(ctx, events.MessageTypeRenderCompleted, id, events.RenderCompletedData{
		Figures:     len(batch.Figures),
		Diagnostics: diagCount,
	})
	s.logger.InfoContext(ctx, "render completed",
		slog.String("session_id", id),
		slog.Int("figures", len(batch.Figures)),
		slog.Int("diagnostics", diagCount),
		slog.Duration("elapsed", time.Since(start)))

	return batch, nil
}

// Figures returns the batch cached by the last render trigger, or
// ErrNoFigures when the session has not rendered yet.
func (s *SessionService) Figures(ctx context.Context, id string) (*domain.FigureBatch, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	batch := sess.Figures()
	if batch == nil {
		return nil, ErrNoFigures
	}
	return batch, nil
}

// Snapshot rasterizes one rendered figure to PNG via the headless browser.
func (s *SessionService) Snapshot(ctx context.Context, id string, slot int) ([]byte, error) {
	if s.snapshotter == nil {
		return nil, fmt.Errorf("%w: snapshot capture not configured", ErrServiceUnavailable)
	}

	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	batch := sess.Figures()
	if batch == nil {
		return nil, ErrNoFigures
	}

	var fig *domain.RenderedFigure
	for i := range batch.Figures {
		if batch.Figures[i].Slot == slot {
			fig = &batch.Figures[i]
			break
		}
	}
	if fig == nil {
		return nil, fmt.Errorf("%w: slot %d", ErrSlotNotRendered, slot)
	}
	if fig.Empty {
		return nil, fmt.Errorf("%w: slot %d", ErrEmptyFigure, slot)
	}

	png, err := s.snapshotter.PNG(ctx, fig.HTML)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SnapshotsExported.Add(ctx, 1)
	}
	s.logger.InfoContext(ctx, "snapshot exported",
		slog.String("session_id", id),
		slog.Int("slot", slot),
		slog.Int("bytes", len(png)))
	return png, nil
}

// DatasetPreview returns the first limit rows of one dataset. A limit of
// zero or less returns every row.
func (s *SessionService) DatasetPreview(ctx context.Context, id, name string, limit int) (*PreviewView, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	ds, err := sess.Dataset(name)
	if err != nil {
		return nil, err
	}

	rows := ds.Rows()
	truncated := false
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		truncated = true
	}

	summary := ds.Summarize()
	return &PreviewView{
		Name:      ds.Name,
		Columns:   summary.Columns,
		Rows:      rows,
		RowCount:  ds.RowCount,
		Truncated: truncated,
	}, nil
}

// ExportDataset writes one dataset to w in the requested format and
// returns the suggested download file name. An empty format means CSV.
func (s *SessionService) ExportDataset(ctx context.Context, id, name, format string, w io.Writer) (string, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return "", err
	}
	ds, err := sess.Dataset(name)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(ds.Name, filepath.Ext(ds.Name))
	switch strings.ToLower(format) {
	case "", "csv":
		if err := s.exporter.CSV(w, ds, exporter.CSVOptions{BOMPrefix: true}); err != nil {
			return "", fmt.Errorf("exporting %s as csv: %w", ds.Name, err)
		}
		return base + ".csv", nil
	case "xlsx":
		if err := s.exporter.XLSX(w, ds); err != nil {
			return "", fmt.Errorf("exporting %s as xlsx: %w", ds.Name, err)
		}
		return base + ".xlsx", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExportFormat, format)
	}
}

// SessionCount reports active sessions for health checks.
func (s *SessionService) SessionCount() int {
	return s.store.Count()
}

func (s *SessionService) viewOf(sess *session.Session) *SessionView {
	datasets := sess.Datasets()
	summaries := make([]domain.DatasetSummary, len(datasets))
	for i := range datasets {
		summaries[i] = datasets[i].Summarize()
	}
	return &SessionView{
		ID:          sess.ID,
		CreatedAt:   sess.CreatedAt,
		Datasets:    summaries,
		Catalog:     sess.Catalog(),
		Slots:       sess.Slots(),
		Diagnostics: sess.UploadDiagnostics(),
	}
}

// publish sends one event to the hub, stamping the timestamp and the
// request's trace ID. Safe with a nil hub.
func (s *SessionService) publish(ctx context.Context, msgType events.MessageType, sessionID string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(events.Message{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
	})
}

func (s *SessionService) recordUploads(ctx context.Context, uploads []ingest.Upload, result *ingest.Result) {
	if s.metrics == nil {
		return
	}
	var bytes int64
	for _, up := range uploads {
		bytes += int64(len(up.Data))
	}
	s.metrics.UploadsTotal.Add(ctx, int64(len(uploads)))
	s.metrics.UploadBytesTotal.Add(ctx, bytes)
	s.metrics.DatasetsLoaded.Add(ctx, int64(len(result.Datasets)))
	for _, diag := range result.Diagnostics {
		s.metrics.DecodeFailures.Add(ctx, 1,
			metric.WithAttributes(attribute.String("code", string(diag.Code))))
	}
}
