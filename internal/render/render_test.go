package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"budget/internal/core"
)

func TestAmount(t *testing.T) {
	cases := map[int64]string{
		0:         "0.00",
		1250:      "12.50",
		123456789: "1,234,567.89",
		-4200:     "-42.00",
	}
	for cents, want := range cases {
		assert.Equal(t, want, Amount(core.Money{Cents: cents}), "cents=%d", cents)
	}
}

func TestRecordsTable(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, "").Rows([][]string{
		{"2025-03-04", "19.99", "Games", "indie"},
		{"2025-03-05", "abc", "Games", "bad amount", "extra"},
	})
	out := buf.String()
	for _, want := range []string{"Expense records", "Date", "Amount", "Category", "Note", "2025-03-04", "19.99", "Games", "indie", "abc"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "extra")
}

func TestRecordsTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, "").Rows(nil)
	assert.Contains(t, buf.String(), "Category")
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, "元").Summary(core.Summary{
		Count: 3,
		Total: core.Money{Cents: 150000},
		ByCategory: []core.CategoryAmount{
			{Name: "Rent", Amount: core.Money{Cents: 120000}},
			{Name: "Food", Amount: core.Money{Cents: 30000}},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "Total spent: 1,500.00 元")
	assert.Contains(t, out, "  - Rent: 1,200.00 元")
	assert.Contains(t, out, "  - Food: 300.00 元")
	assert.Less(t, strings.Index(out, "Rent"), strings.Index(out, "Food"), "category order must be preserved")
}

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "")
	p.Success("Added %d", 1)
	p.Warn("careful\n")
	p.Error("failed")
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "Added 1")
}
