package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/validation"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// utf8BOM prefixes files exported by Excel and some logger firmware
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Upload is one file received from the client, held fully in memory
type Upload struct {
	Name string
	Data []byte
}

// Result carries the datasets that loaded plus one diagnostic per failed file.
// Datasets preserve upload order; re-uploading a name replaces the earlier
// dataset in place.
type Result struct {
	Datasets    []domain.Dataset
	Diagnostics []domain.Diagnostic
}

// Loader decodes upload batches into datasets
type Loader struct {
	logger    *slog.Logger
	validator *validation.UploadValidator
}

// NewLoader creates a loader with the given upload constraints
func NewLoader(cfg config.UploadConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:    logger.With(slog.String("component", "ingest")),
		validator: validation.NewUploadValidator(cfg, logger),
	}
}

// ValidateBatch checks the batch-level upload constraints before any
// file is decoded. Unlike per-file failures this rejects the whole batch.
func (l *Loader) ValidateBatch(fileCount int) error {
	return l.validator.ValidateBatch(fileCount)
}

// Load decodes every upload in order. A file that fails to validate or
// decode contributes exactly one diagnostic and no dataset; the rest of
// the batch is unaffected.
func (l *Loader) Load(ctx context.Context, uploads []Upload) *Result {
	result := &Result{}
	byName := make(map[string]int, len(uploads))

	for _, up := range uploads {
		if ctx.Err() != nil {
			l.logger.WarnContext(ctx, "upload batch cancelled",
				slog.Int("loaded", len(result.Datasets)))
			break
		}

		if err := l.validator.ValidateExtension(up.Name); err != nil {
			result.Diagnostics = append(result.Diagnostics, domain.NewUnsupportedFileType(up.Name))
			l.logger.WarnContext(ctx, "file skipped",
				slog.String("file", up.Name),
				slog.String("reason", err.Error()))
			continue
		}

		if err := l.validator.ValidateFile(up.Name, int64(len(up.Data))); err != nil {
			result.Diagnostics = append(result.Diagnostics, domain.NewDecodeFailure(up.Name, err))
			l.logger.WarnContext(ctx, "file skipped",
				slog.String("file", up.Name),
				slog.String("reason", err.Error()))
			continue
		}

		dataset, err := l.decode(up)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, domain.NewDecodeFailure(up.Name, err))
			l.logger.WarnContext(ctx, "file failed to decode",
				slog.String("file", up.Name),
				slog.String("error", err.Error()))
			continue
		}

		if idx, seen := byName[dataset.Name]; seen {
			result.Datasets[idx] = dataset
		} else {
			byName[dataset.Name] = len(result.Datasets)
			result.Datasets = append(result.Datasets, dataset)
		}

		l.logger.InfoContext(ctx, "dataset loaded",
			slog.String("file", dataset.Name),
			slog.Int("rows", dataset.RowCount),
			slog.Int("columns", len(dataset.Columns)),
			slog.Int64("bytes", dataset.SizeBytes))
	}

	return result
}

// decode dispatches to the right codec by extension
func (l *Loader) decode(up Upload) (domain.Dataset, error) {
	switch strings.ToLower(filepath.Ext(up.Name)) {
	case ".csv":
		return decodeCSV(up.Name, up.Data)
	case ".xlsx":
		return decodeXLSX(up.Name, up.Data)
	default:
		// Unreachable when the extension allowlist matches the codecs
		return domain.Dataset{}, fmt.Errorf("no decoder for %s", filepath.Ext(up.Name))
	}
}

// decodeCSV parses a CSV payload. The reader is deliberately forgiving:
// ragged rows are padded or truncated to the header width.
func decodeCSV(name string, data []byte) (domain.Dataset, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("malformed csv: %w", err)
	}
	if len(records) == 0 {
		return domain.Dataset{}, errors.New("file has no header row")
	}

	return buildDataset(name, records[0], records[1:], int64(len(data)))
}

// decodeXLSX parses the first sheet of a workbook
func decodeXLSX(name string, data []byte) (domain.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("malformed workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Dataset{}, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return domain.Dataset{}, errors.New("file has no header row")
	}

	return buildDataset(name, rows[0], rows[1:], int64(len(data)))
}

// buildDataset shapes raw rows into columns and classifies each one
func buildDataset(name string, header []string, rows [][]string, size int64) (domain.Dataset, error) {
	names := columnNames(header)
	if len(names) == 0 {
		return domain.Dataset{}, errors.New("header row has no columns")
	}

	columns := make([]domain.Column, len(names))
	for i, colName := range names {
		columns[i] = domain.Column{
			Name:   colName,
			Values: make([]string, len(rows)),
		}
	}

	for r, row := range rows {
		for c := range columns {
			if c < len(row) {
				columns[c].Values[r] = strings.TrimSpace(row[c])
			}
		}
	}

	for i := range columns {
		columns[i].Kind, columns[i].Floats = classifyColumn(columns[i].Values)
	}

	return domain.Dataset{
		Name:      name,
		Columns:   columns,
		RowCount:  len(rows),
		SizeBytes: size,
		LoadedAt:  time.Now().UTC(),
	}, nil
}

// columnNames trims the header row and names blank cells positionally
func columnNames(header []string) []string {
	names := make([]string, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		names = append(names, h)
	}
	// A lone empty header cell means an empty line, not a one-column file
	if len(names) == 1 && strings.HasPrefix(names[0], "column_") {
		return nil
	}
	return names
}

// timeLayouts are tried in order when classifying temporal columns
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"15:04:05.000",
	"15:04:05",
}

// classifyColumn types a column by inspecting every cell. A column is
// numeric when all non-empty cells parse as floats, temporal when all
// non-empty cells parse as timestamps, text otherwise. Floats carry the
// parsed values for numeric and temporal columns, NaN elsewhere.
func classifyColumn(values []string) (domain.ColumnKind, []float64) {
	floats := make([]float64, len(values))
	for i := range floats {
		floats[i] = math.NaN()
	}

	nonEmpty := 0
	numeric := true
	for i, v := range values {
		if v == "" {
			continue
		}
		nonEmpty++
		f, err := parseFloat(v)
		if err != nil {
			numeric = false
			break
		}
		floats[i] = f
	}

	if numeric && nonEmpty > 0 {
		return domain.ColumnKindNumeric, floats
	}

	for i := range floats {
		floats[i] = math.NaN()
	}

	temporal := true
	nonEmpty = 0
	for i, v := range values {
		if v == "" {
			continue
		}
		nonEmpty++
		t, ok := parseTime(v)
		if !ok {
			temporal = false
			break
		}
		floats[i] = float64(t.Unix())
	}

	if temporal && nonEmpty > 0 {
		return domain.ColumnKindTemporal, floats
	}

	for i := range floats {
		floats[i] = math.NaN()
	}
	return domain.ColumnKindText, floats
}

// parseFloat accepts thousands separators the way spreadsheet exports write them
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}

// parseTime tries each known layout
func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
