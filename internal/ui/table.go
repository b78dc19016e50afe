package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/search"
)

// maxTitleWidth truncates long titles in tables.
const maxTitleWidth = 48

// Printer writes styled CLI output.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a printer. Colour is used only when out is a
// terminal and NO_COLOR is unset.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, styles: GetStyles(!UseColor(out))}
}

// NewPlainPrinter creates a printer that never colours.
func NewPlainPrinter(out io.Writer) *Printer {
	return &Printer{out: out, styles: NoColorStyles()}
}

// Styles returns the printer styles.
func (p *Printer) Styles() Styles { return p.styles }

// Success prints a success line.
func (p *Printer) Success(msg string) {
	_, _ = fmt.Fprintln(p.out, p.styles.Success.Render("✓ "+msg))
}

// Successf prints a formatted success line.
func (p *Printer) Successf(format string, args ...any) {
	p.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning line.
func (p *Printer) Warning(msg string) {
	_, _ = fmt.Fprintln(p.out, p.styles.Warning.Render("⚠ "+msg))
}

// Warningf prints a formatted warning line.
func (p *Printer) Warningf(format string, args ...any) {
	p.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (p *Printer) Error(msg string) {
	_, _ = fmt.Fprintln(p.out, p.styles.Error.Render("✗ "+msg))
}

// Results prints ranked results as a table.
func (p *Printer) Results(query string, results []*search.Result) {
	_, _ = fmt.Fprint(p.out, RenderResults(p.styles, query, results))
}

// Lookup prints a resolved record.
func (p *Printer) Lookup(m corpus.Match) {
	_, _ = fmt.Fprint(p.out, RenderLookup(p.styles, m))
}

// Status prints the serving status.
func (p *Printer) Status(st search.Status, path string) {
	_, _ = fmt.Fprint(p.out, RenderStatus(p.styles, st, path))
}

// RenderResults renders a result table.
func RenderResults(s Styles, query string, results []*search.Result) string {
	var sb strings.Builder
	if len(results) == 0 {
		sb.WriteString(s.Dim.Render(fmt.Sprintf("No matches for %q", query)))
		sb.WriteString("\n")
		return sb.String()
	}

	width := len("Title")
	for _, r := range results {
		width = max(width, lipgloss.Width(truncate(r.Title, maxTitleWidth)))
	}

	header := fmt.Sprintf("%-3s  %-*s  %6s  %-6s  %s", "#", width, "Title", "Conf", "Method", "Industry")
	sb.WriteString(s.Header.Render(header))
	sb.WriteString("\n")
	sb.WriteString(s.Border.Render(strings.Repeat("─", lipgloss.Width(header))))
	sb.WriteString("\n")

	for i, r := range results {
		title := truncate(r.Title, maxTitleWidth)
		pad := strings.Repeat(" ", width-lipgloss.Width(title))
		fmt.Fprintf(&sb, "%-3d  %s%s  %s  %s  %s\n",
			i+1,
			s.Title.Render(title), pad,
			s.Confidence(r.Confidence).Render(fmt.Sprintf("%6.1f", r.Confidence)),
			s.Method(string(r.Method)).Render(fmt.Sprintf("%-6s", r.Method)),
			s.Label.Render(r.Industry))
	}
	return sb.String()
}

// RenderLookup renders one record.
func RenderLookup(s Styles, m corpus.Match) string {
	rows := [][2]string{
		{"Title", m.Title},
		{"Industry", m.Industry},
		{"Location", m.Location},
		{"Automation risk", fmt.Sprintf("%.1f%%", m.AutomationRisk)},
		{"Growth", fmt.Sprintf("%+.1f%%", m.GrowthProjection)},
		{"Match", fmt.Sprintf("%s (%s)", m.Source, m.Confidence)},
	}
	return renderRows(s, rows)
}

// RenderStatus renders the serving status.
func RenderStatus(s Styles, st search.Status, path string) string {
	semantic := s.Success.Render("available")
	if !st.SemanticAvailable {
		semantic = s.Warning.Render("off: " + st.Reason)
	}
	rows := [][2]string{
		{"Jobs", fmt.Sprint(st.Jobs)},
		{"Semantic", semantic},
	}
	if st.Model != "" {
		rows = append(rows, [2]string{"Model", fmt.Sprintf("%s (%d dims)", st.Model, st.Dimensions)})
	}
	rows = append(rows, [2]string{"Cached queries", fmt.Sprint(st.CachedQueries)})
	if path != "" {
		rows = append(rows, [2]string{"Index", path})
	}
	if !st.LoadedAt.IsZero() {
		rows = append(rows, [2]string{"Loaded", st.LoadedAt.Format(time.RFC3339)})
	}
	return renderRows(s, rows)
}

func renderRows(s Styles, rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	var sb strings.Builder
	for _, r := range rows {
		label := fmt.Sprintf("%-*s", width+1, r[0]+":")
		fmt.Fprintf(&sb, "%s %s\n", s.Label.Render(label), r[1])
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
