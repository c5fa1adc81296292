package validation

import (
	"errors"
	"testing"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
)

func newTestValidator() *UploadValidator {
	cfg := config.UploadConfig{
		MaxFileSize:       1024,
		MaxFiles:          4,
		AllowedExtensions: []string{".csv", ".xlsx"},
	}
	return NewUploadValidator(cfg, nil)
}

func TestValidateExtension(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"csv accepted", "telemetry.csv", nil},
		{"xlsx accepted", "lap_times.xlsx", nil},
		{"uppercase extension accepted", "RUN7.CSV", nil},
		{"text rejected", "notes.txt", ErrUnsupportedExtension},
		{"no extension rejected", "telemetry", ErrUnsupportedExtension},
		{"empty name rejected", "", ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateExtension(tt.file)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateExtension(%q) = %v, want nil", tt.file, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateExtension(%q) = %v, want %v", tt.file, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateFile("telemetry.csv", 512); err != nil {
		t.Fatalf("ValidateFile small file = %v, want nil", err)
	}

	if err := v.ValidateFile("telemetry.csv", 2048); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("ValidateFile oversized = %v, want ErrFileTooLarge", err)
	}

	if err := v.ValidateFile("~$lap_times.xlsx", 10); !errors.Is(err, ErrTemporaryFile) {
		t.Fatalf("ValidateFile temp file = %v, want ErrTemporaryFile", err)
	}
}

func TestValidateBatch(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateBatch(3); err != nil {
		t.Fatalf("ValidateBatch(3) = %v, want nil", err)
	}

	if err := v.ValidateBatch(5); !errors.Is(err, ErrTooManyFiles) {
		t.Fatalf("ValidateBatch(5) = %v, want ErrTooManyFiles", err)
	}

	if err := v.ValidateBatch(0); err == nil {
		t.Fatal("ValidateBatch(0) = nil, want error")
	}
}
