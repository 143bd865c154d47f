// Package render formats ledger data for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"budget/internal/core"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Italic(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	amountStyle  = cellStyle.Align(lipgloss.Right)
	totalStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	categoryLine = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

const amountColumn = 1

var tableHeaders = []string{"Date", "Amount", "Category", "Note"}

// Printer writes styled output to one stream.
type Printer struct {
	w        io.Writer
	currency string
}

func NewPrinter(w io.Writer, currency string) *Printer {
	return &Printer{w: w, currency: currency}
}

// Amount formats money with two decimals and thousands separators.
func Amount(m core.Money) string {
	return humanize.FormatFloat("#,###.##", m.Decimal())
}

func (p *Printer) withCurrency(m core.Money) string {
	if p.currency == "" {
		return Amount(m)
	}
	return Amount(m) + " " + p.currency
}

// Rows prints text rows under the Date, Amount, Category, Note header.
// Cells beyond the fourth are dropped.
func (p *Printer) Rows(rows [][]string) {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) > len(tableHeaders) {
			row = row[:len(tableHeaders)]
		}
		cells[i] = row
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(tableHeaders...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == amountColumn:
				return amountStyle
			default:
				return cellStyle
			}
		})

	fmt.Fprintln(p.w, titleStyle.Render("Expense records"))
	fmt.Fprintln(p.w, t.Render())
}

// Summary prints the grand total followed by one line per category.
func (p *Printer) Summary(s core.Summary) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, totalStyle.Render("Total spent: "+p.withCurrency(s.Total)))
	for _, c := range s.ByCategory {
		fmt.Fprintln(p.w, categoryLine.Render(fmt.Sprintf("  - %s: %s", c.Name, p.withCurrency(c.Amount))))
	}
}

func (p *Printer) Success(format string, args ...any) {
	p.line(successStyle, format, args...)
}

func (p *Printer) Warn(format string, args ...any) {
	p.line(warnStyle, format, args...)
}

func (p *Printer) Error(format string, args ...any) {
	p.line(errorStyle, format, args...)
}

func (p *Printer) line(style lipgloss.Style, format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintln(p.w, style.Render(msg))
}
