package render

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
	apperrors "github.com/NU-Formula-Racing/daq-interface-25/internal/errors"
)

// chartSettleDelay gives ECharts time to finish its entry animation
// before the tab is captured.
const chartSettleDelay = 1200 * time.Millisecond

// Snapshotter rasterizes rendered figure documents to PNG through a
// headless Chrome tab. Each capture runs in a fresh browser context.
type Snapshotter struct {
	logger  *slog.Logger
	width   int64
	height  int64
	timeout time.Duration
}

// NewSnapshotter creates a snapshotter with the configured viewport
func NewSnapshotter(cfg config.RenderConfig, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{
		logger:  logger.With(slog.String("component", "snapshotter")),
		width:   int64(cfg.SnapshotWidth),
		height:  int64(cfg.SnapshotHeight),
		timeout: cfg.SnapshotTimeout,
	}
}

// PNG captures one figure document. The HTML is loaded through a data
// URL, so the tab needs network access only for the ECharts runtime.
func (s *Snapshotter) PNG(ctx context.Context, html string) ([]byte, error) {
	if html == "" {
		return nil, apperrors.NewSnapshotError("figure has no document to capture", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", true))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	start := time.Now()
	var png []byte
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(s.width, s.height),
		chromedp.Navigate(dataURL),
		chromedp.WaitVisible("canvas", chromedp.ByQuery),
		chromedp.Sleep(chartSettleDelay),
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		s.logger.Error("snapshot capture failed",
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, apperrors.NewSnapshotError("browser capture failed", err)
	}

	s.logger.Info("snapshot captured",
		slog.Int("bytes", len(png)),
		slog.Duration("elapsed", time.Since(start)))
	return png, nil
}
