package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NU-Formula-Racing/daq-interface-25/internal/errors"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestNativePNG_Line(t *testing.T) {
	var buf bytes.Buffer
	err := NativePNG(&buf, lineSpec(), telemetryDataset(), 800, 600)

	require.NoError(t, err)
	require.Greater(t, buf.Len(), len(pngMagic))
	assert.Equal(t, pngMagic, buf.Bytes()[:len(pngMagic)])
}

func TestNativePNG_Scatter(t *testing.T) {
	spec := lineSpec()
	spec.Mode = domain.ModeScatter

	var buf bytes.Buffer
	err := NativePNG(&buf, spec, telemetryDataset(), 800, 600)

	require.NoError(t, err)
	assert.Equal(t, pngMagic, buf.Bytes()[:len(pngMagic)])
}

func TestNativePNG_UnsupportedMode(t *testing.T) {
	spec := lineSpec()
	spec.Mode = domain.RenderMode("pie")

	var buf bytes.Buffer
	err := NativePNG(&buf, spec, telemetryDataset(), 800, 600)

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeRender, appErr.Type)
	assert.Zero(t, buf.Len())
}

func TestNativePNG_MissingColumn(t *testing.T) {
	spec := lineSpec()
	spec.XColumn = "missing"

	var buf bytes.Buffer
	err := NativePNG(&buf, spec, telemetryDataset(), 800, 600)
	require.Error(t, err)
}

func TestXYPoints_SkipsNaNRows(t *testing.T) {
	ds := telemetryDataset()
	x, _ := ds.Column("t")
	y, _ := ds.Column("rpm")

	pts := xyPoints(x, y, ds.RowCount)

	// row 1 has a blank rpm cell
	require.Len(t, pts, 2)
	assert.Equal(t, 0.0, pts[0].X)
	assert.Equal(t, 2.0, pts[1].X)
}

func TestXYPoints_TextXFallsBackToRowIndex(t *testing.T) {
	ds := telemetryDataset()
	x, _ := ds.Column("driver")
	y, _ := ds.Column("t")

	pts := xyPoints(x, y, ds.RowCount)

	require.Len(t, pts, 3)
	assert.Equal(t, 0.0, pts[0].X)
	assert.Equal(t, 1.0, pts[1].X)
	assert.Equal(t, 2.0, pts[2].X)
}
