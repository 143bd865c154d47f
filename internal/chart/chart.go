// Package chart renders category totals as pie and bar chart images.
package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"unicode"

	"github.com/golang/freetype/truetype"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/sync/errgroup"

	"budget/internal/core"
)

const (
	PieFileName = "expense_pie_chart.png"
	BarFileName = "expense_bar_chart.png"

	pieSize   = 600
	barWidth  = 800
	barHeight = 500
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data, cannot build chart")

var (
	barFill   = drawing.ColorFromHex("4CA1AF")
	barStroke = drawing.ColorBlack
)

type Options struct {
	// Dir receives the image files. Empty means the working directory.
	Dir string
	// Currency labels the bar chart's value axis.
	Currency string
	// Font overrides go-chart's default face; needed for CJK labels and
	// currency symbols.
	Font *truetype.Font
}

type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// LoadFont reads a TrueType font file.
func LoadFont(path string) (*truetype.Font, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := truetype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}

// Pie draws one slice per category with a positive total, labelled with
// its share to one decimal.
func (r *Renderer) Pie(w io.Writer, totals []core.CategoryAmount) error {
	var sum float64
	for _, t := range totals {
		if v := t.Amount.Decimal(); v > 0 {
			sum += v
		}
	}
	if sum == 0 {
		return ErrNoData
	}

	values := make([]gochart.Value, 0, len(totals))
	for _, t := range totals {
		v := t.Amount.Decimal()
		if v <= 0 {
			continue
		}
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("%s %.1f%%", t.Name, v/sum*100),
			Value: v,
		})
	}

	pie := gochart.PieChart{
		Title:      "Expense share by category",
		TitleStyle: gochart.Style{FontSize: 14},
		Width:      pieSize,
		Height:     pieSize,
		Font:       r.opts.Font,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		Values:     values,
	}
	if err := pie.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// Bar draws one bar per category, labelled with its total to one decimal.
func (r *Renderer) Bar(w io.Writer, totals []core.CategoryAmount) error {
	if len(totals) == 0 {
		return ErrNoData
	}

	bars := make([]gochart.Value, len(totals))
	lo, hi := 0.0, 0.0
	for i, t := range totals {
		v := t.Amount.Decimal()
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		bars[i] = gochart.Value{
			Label: fmt.Sprintf("%s (%.1f)", t.Name, v),
			Value: v,
			Style: gochart.Style{
				FillColor:   barFill,
				StrokeColor: barStroke,
				StrokeWidth: 1,
			},
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	bar := gochart.BarChart{
		Title:      "Expense totals by category",
		TitleStyle: gochart.Style{FontSize: 16},
		Width:      barWidth,
		Height:     barHeight,
		BarWidth:   barWidthFor(len(bars)),
		Font:       r.opts.Font,
		Background: gochart.Style{Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 60}},
		XAxis:      gochart.Style{TextRotationDegrees: 25, FontSize: 10},
		YAxis: gochart.YAxis{
			Name:  r.axisName(),
			Range: &gochart.ContinuousRange{Min: lo, Max: hi * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}
	if err := bar.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// face is the font the charts are drawn with.
func (r *Renderer) face() *truetype.Font {
	if r.opts.Font != nil {
		return r.opts.Font
	}
	f, err := gochart.GetDefaultFont()
	if err != nil {
		return nil
	}
	return f
}

// axisName labels the value axis with the currency when the font can draw
// it. The bundled font has no CJK glyphs, so a symbol such as 元 falls back
// to a plain "Amount".
func (r *Renderer) axisName() string {
	if r.opts.Currency == "" {
		return "Amount"
	}
	if missing := missingGlyphs(r.face(), r.opts.Currency); missing != "" {
		slog.Warn("Chart font cannot draw currency symbol, set CHART_FONT_PATH to a font that can",
			"currency", r.opts.Currency, "missing", missing)
		return "Amount"
	}
	return fmt.Sprintf("Amount (%s)", r.opts.Currency)
}

// missingGlyphs returns the runes of s that f has no glyph for. A nil font
// is treated as able to draw everything.
func missingGlyphs(f *truetype.Font, s string) string {
	if f == nil {
		return ""
	}
	var out []rune
	for _, c := range s {
		if unicode.IsSpace(c) || f.Index(c) != 0 {
			continue
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return string(out)
}

// warnUnreadableLabels logs once per render when category names use runes
// the chart font lacks.
func (r *Renderer) warnUnreadableLabels(totals []core.CategoryAmount) {
	f := r.face()
	var missing []string
	for _, t := range totals {
		if m := missingGlyphs(f, t.Name); m != "" {
			missing = append(missing, t.Name)
		}
	}
	if len(missing) > 0 {
		slog.Warn("Chart font cannot draw some category names, set CHART_FONT_PATH to a font that can",
			"categories", missing)
	}
}

func barWidthFor(n int) int {
	w := 600 / (n + 1)
	switch {
	case w > 60:
		return 60
	case w < 8:
		return 8
	}
	return w
}

// RenderFiles writes both charts into the output directory concurrently
// and returns their paths, pie first.
func (r *Renderer) RenderFiles(ctx context.Context, totals []core.CategoryAmount) ([]string, error) {
	if len(totals) == 0 {
		return nil, ErrNoData
	}
	dir := r.opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory: %w", err)
	}
	r.warnUnreadableLabels(totals)

	jobs := []struct {
		path   string
		render func(io.Writer, []core.CategoryAmount) error
	}{
		{filepath.Join(dir, PieFileName), r.Pie},
		{filepath.Join(dir, BarFileName), r.Bar},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			var buf bytes.Buffer
			if err := job.render(&buf, totals); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := os.WriteFile(job.path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", job.path, err)
			}
			slog.DebugContext(ctx, "Chart written", "path", job.path, "bytes", buf.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paths := make([]string, len(jobs))
	for i, job := range jobs {
		paths[i] = job.path
	}
	return paths, nil
}
