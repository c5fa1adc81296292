package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
)

// Sentinel errors for upload rejection reasons. Callers translate these
// into per-file diagnostics; none of them abort a batch.
var (
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrFileTooLarge         = errors.New("file exceeds maximum allowed size")
	ErrTemporaryFile        = errors.New("temporary office file")
	ErrEmptyName            = errors.New("empty file name")
	ErrTooManyFiles         = errors.New("too many files in one upload")
)

// UploadValidator gates uploaded files before decoding
type UploadValidator struct {
	logger     *slog.Logger
	extensions map[string]struct{}
	maxSize    int64
	maxFiles   int
}

// NewUploadValidator creates a validator from the upload configuration
func NewUploadValidator(cfg config.UploadConfig, logger *slog.Logger) *UploadValidator {
	if logger == nil {
		logger = slog.Default()
	}

	exts := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &UploadValidator{
		logger:     logger.With(slog.String("component", "upload_validator")),
		extensions: exts,
		maxSize:    cfg.MaxFileSize,
		maxFiles:   cfg.MaxFiles,
	}
}

// ValidateBatch checks the batch-level constraints
func (v *UploadValidator) ValidateBatch(fileCount int) error {
	if fileCount == 0 {
		return fmt.Errorf("no files in upload")
	}
	if v.maxFiles > 0 && fileCount > v.maxFiles {
		v.logger.Warn("upload batch rejected",
			slog.Int("files", fileCount),
			slog.Int("max_files", v.maxFiles))
		return fmt.Errorf("%w: %d files (limit %d)", ErrTooManyFiles, fileCount, v.maxFiles)
	}
	return nil
}

// ValidateExtension checks whether the file name carries a loadable extension
func (v *UploadValidator) ValidateExtension(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := v.extensions[ext]; !ok {
		v.logger.Debug("rejected file extension",
			slog.String("file", name),
			slog.String("extension", ext))
		return fmt.Errorf("%w: %s", ErrUnsupportedExtension, ext)
	}
	return nil
}

// ValidateFile checks the per-file constraints beyond the extension
func (v *UploadValidator) ValidateFile(name string, size int64) error {
	// Office lock files ("~$report.xlsx") decode to garbage, reject early
	if strings.HasPrefix(filepath.Base(name), "~$") {
		v.logger.Debug("rejected temporary office file", slog.String("file", name))
		return fmt.Errorf("%w: %s", ErrTemporaryFile, name)
	}

	if v.maxSize > 0 && size > v.maxSize {
		v.logger.Warn("rejected oversized file",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("max_size", v.maxSize))
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, v.maxSize)
	}

	return nil
}
