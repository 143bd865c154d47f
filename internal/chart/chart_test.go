package chart

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gochart "github.com/wcharczuk/go-chart/v2"

	"budget/internal/core"
)

func totals() []core.CategoryAmount {
	return []core.CategoryAmount{
		{Name: "Food", Amount: core.Money{Cents: 4250}},
		{Name: "Transport", Amount: core.Money{Cents: 1200}},
		{Name: "Books", Amount: core.Money{Cents: 3000}},
	}
}

func TestPieRendersPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(Options{}).Pie(&buf, totals()))

	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, pieSize, cfg.Width)
	assert.Equal(t, pieSize, cfg.Height)
}

func TestBarRendersPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(Options{Currency: "EUR"}).Bar(&buf, totals()))

	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, barWidth, cfg.Width)
	assert.Equal(t, barHeight, cfg.Height)
}

func TestNoData(t *testing.T) {
	r := NewRenderer(Options{})
	var buf bytes.Buffer
	assert.ErrorIs(t, r.Pie(&buf, nil), ErrNoData)
	assert.ErrorIs(t, r.Bar(&buf, nil), ErrNoData)

	// Only refunds: nothing to slice.
	refunds := []core.CategoryAmount{{Name: "Refund", Amount: core.Money{Cents: -500}}}
	assert.ErrorIs(t, r.Pie(&buf, refunds), ErrNoData)

	_, err := r.RenderFiles(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestRenderFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	paths, err := NewRenderer(Options{Dir: dir}).RenderFiles(context.Background(), totals())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, PieFileName), filepath.Join(dir, BarFileName)}, paths)

	for _, p := range paths {
		f, err := os.Open(p)
		require.NoError(t, err)
		_, err = png.DecodeConfig(f)
		f.Close()
		assert.NoError(t, err, p)
	}
}

func TestBarWidthFor(t *testing.T) {
	assert.Equal(t, 60, barWidthFor(1))
	assert.Equal(t, 50, barWidthFor(11))
	assert.Equal(t, 8, barWidthFor(200))
}

func TestLoadFontErrors(t *testing.T) {
	_, err := LoadFont(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.ttf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a font"), 0o644))
	_, err = LoadFont(bogus)
	assert.Error(t, err)
}

func TestAxisNameFallsBackWhenFontLacksCurrency(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	assert.Equal(t, "Amount", NewRenderer(Options{Currency: "元"}).axisName())
	assert.Contains(t, logs.String(), "CHART_FONT_PATH")

	assert.Equal(t, "Amount (EUR)", NewRenderer(Options{Currency: "EUR"}).axisName())
	assert.Equal(t, "Amount ($)", NewRenderer(Options{Currency: "$"}).axisName())
	assert.Equal(t, "Amount", NewRenderer(Options{}).axisName())
}

func TestMissingGlyphs(t *testing.T) {
	f, err := gochart.GetDefaultFont()
	require.NoError(t, err)

	assert.Empty(t, missingGlyphs(f, "Food and drinks"))
	assert.Equal(t, "食品", missingGlyphs(f, "食品 食"))
	assert.Empty(t, missingGlyphs(nil, "食品"))
}
