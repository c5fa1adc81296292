package http

import (
	"context"
	"io"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/ingest"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/services"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// SessionServiceInterface defines the service surface the session handler
// depends on, so tests can substitute a mock.
type SessionServiceInterface interface {
	CreateSession(ctx context.Context, uploads []ingest.Upload) (*services.SessionView, error)
	GetSession(ctx context.Context, id string) (*services.SessionView, error)
	DeleteSession(ctx context.Context, id string) error
	SetSlotCount(ctx context.Context, id string, count int) (*services.SessionView, error)
	UpdateSlot(ctx context.Context, id string, index int, field domain.SpecField, value string) (*services.SlotView, error)
	RenderSession(ctx context.Context, id string) (*domain.FigureBatch, error)
	Figures(ctx context.Context, id string) (*domain.FigureBatch, error)
	Snapshot(ctx context.Context, id string, slot int) ([]byte, error)
	DatasetPreview(ctx context.Context, id, name string, limit int) (*services.PreviewView, error)
	ExportDataset(ctx context.Context, id, name, format string, w io.Writer) (string, error)
}
