package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Aman-CERP/titlesearch/internal/search"
)

// searchDelay debounces keystrokes before a search runs.
const searchDelay = 150 * time.Millisecond

// SearchFunc runs one search for the interactive screen.
type SearchFunc func(ctx context.Context, query string) ([]*search.Result, error)

type searchTickMsg struct{ seq int }

type resultsMsg struct {
	seq     int
	query   string
	results []*search.Result
	err     error
	took    time.Duration
}

// SearchModel is a bubbletea model for live job-title search.
type SearchModel struct {
	ctx      context.Context
	search   SearchFunc
	input    textinput.Model
	styles   Styles
	seq      int
	query    string
	results  []*search.Result
	err      error
	took     time.Duration
	selected int
	detail   bool
	status   string
	quitting bool
}

// NewSearchModel creates the interactive search model. status is shown in
// the footer.
func NewSearchModel(ctx context.Context, fn SearchFunc, styles Styles, status string) *SearchModel {
	ti := textinput.New()
	ti.Placeholder = "type a job title"
	ti.Prompt = "› "
	ti.CharLimit = 200
	ti.Width = 60
	ti.Focus()

	return &SearchModel{
		ctx:    ctx,
		search: fn,
		input:  ti,
		styles: styles,
		status: status,
	}
}

// RunInteractive runs the search screen until the user quits.
func RunInteractive(ctx context.Context, fn SearchFunc, in io.Reader, out io.Writer, status string) error {
	styles := GetStyles(!UseColor(out))
	p := tea.NewProgram(NewSearchModel(ctx, fn, styles, status),
		tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m *SearchModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.selected < len(m.results)-1 {
				m.selected++
			}
			return m, nil
		case "enter":
			m.detail = !m.detail && len(m.results) > 0
			return m, nil
		}

	case searchTickMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		return m, m.runSearch(msg.seq, m.input.Value())

	case resultsMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.query = msg.query
		m.results = msg.results
		m.err = msg.err
		m.took = msg.took
		m.selected = 0
		m.detail = false
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.seq++
		seq := m.seq
		return m, tea.Batch(cmd, tea.Tick(searchDelay, func(time.Time) tea.Msg { return searchTickMsg{seq: seq} }))
	}
	return m, cmd
}

func (m *SearchModel) runSearch(seq int, query string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		results, err := m.search(m.ctx, query)
		return resultsMsg{seq: seq, query: query, results: results, err: err, took: time.Since(start)}
	}
}

// View implements tea.Model.
func (m *SearchModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("titlesearch"))
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	switch {
	case m.err != nil:
		sb.WriteString(m.styles.Error.Render("✗ " + m.err.Error()))
		sb.WriteString("\n")
	case strings.TrimSpace(m.query) == "":
		sb.WriteString(m.styles.Dim.Render("Start typing to search."))
		sb.WriteString("\n")
	case m.detail && m.selected < len(m.results):
		sb.WriteString(m.renderDetail(m.results[m.selected]))
	default:
		sb.WriteString(m.renderResults())
	}

	sb.WriteString("\n")
	footer := "↑/↓ select • enter details • esc quit"
	if m.query != "" && m.err == nil {
		footer = fmt.Sprintf("%d results in %s • %s", len(m.results), formatDuration(m.took), footer)
	}
	if m.status != "" {
		footer += " • " + m.status
	}
	sb.WriteString(m.styles.Dim.Render(footer))
	sb.WriteString("\n")
	return sb.String()
}

func (m *SearchModel) renderResults() string {
	table := RenderResults(m.styles, m.query, m.results)
	if len(m.results) == 0 {
		return table
	}
	lines := strings.Split(strings.TrimRight(table, "\n"), "\n")
	// header and divider occupy the first two lines
	row := m.selected + 2
	if row < len(lines) {
		lines[row] = m.styles.Active.Render("▸") + lines[row]
	}
	for i := range lines {
		if i != row {
			lines[i] = " " + lines[i]
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *SearchModel) renderDetail(r *search.Result) string {
	rows := [][2]string{
		{"Title", r.Title},
		{"Confidence", fmt.Sprintf("%.1f (%s)", r.Confidence, r.Method)},
		{"Industry", r.Industry},
		{"Location", r.Location},
		{"Automation risk", fmt.Sprintf("%.1f%%", r.AutomationRisk)},
		{"Growth", fmt.Sprintf("%+.1f%%", r.GrowthProjection)},
	}
	return m.styles.Panel.Render(strings.TrimRight(renderRows(m.styles, rows), "\n")) + "\n"
}
