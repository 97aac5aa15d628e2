// Package ui renders build progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"xbuild/internal/buildpipeline"
)

// MaxRows caps the number of file rows shown at once. Files with errors and
// files being worked on are listed first.
const MaxRows = 12

type progressModel struct {
	title   string
	events  <-chan buildpipeline.Event
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	stage   buildpipeline.Stage
	failure error
	width   int
	done    bool
}

type fileItem struct {
	path   string
	status buildpipeline.Status
	stage  buildpipeline.Stage
	errors int
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders build progress
// for files, fed by events until the channel is closed.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[string]int, len(files)),
		width:   80,
	}
	for _, file := range files {
		m.track(file)
	}
	return m
}

func (m *progressModel) track(file string) int {
	if idx, ok := m.index[file]; ok {
		return idx
	}
	m.items = append(m.items, fileItem{path: file, status: buildpipeline.StatusQueued})
	m.index[file] = len(m.items) - 1
	return len(m.items) - 1
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(buildpipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = max(msg.Width-4, 10)
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if label := stageLabel(m.stage); label != "" {
		header = fmt.Sprintf("%s (%s)", header, label)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-16, 20)
	rows := m.visible()
	for _, item := range rows {
		label := statusLabel(item)
		fmt.Fprintf(&b, "  %s %s\n", styleStatus(item.status).Render(fmt.Sprintf("%12s", label)), truncate(item.path, nameWidth))
	}
	if hidden := len(m.items) - len(rows); hidden > 0 {
		fmt.Fprintf(&b, "  %12s %d more\n", "", hidden)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	b.WriteString(m.summary())
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) summary() string {
	var done, failed int
	for _, item := range m.items {
		switch item.status {
		case buildpipeline.StatusDone:
			done++
		case buildpipeline.StatusError:
			failed++
		}
	}
	line := fmt.Sprintf("%d files, %d clean, %d with errors", len(m.items), done, failed)
	if m.failure != nil {
		line += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(m.failure.Error())
	}
	return line
}

// visible picks at most MaxRows items: errors, then in-flight, then the rest,
// each group in arrival order.
func (m *progressModel) visible() []fileItem {
	if len(m.items) <= MaxRows {
		return m.items
	}
	out := make([]fileItem, 0, MaxRows)
	for _, want := range []buildpipeline.Status{buildpipeline.StatusError, buildpipeline.StatusWorking} {
		for _, item := range m.items {
			if len(out) == MaxRows {
				return out
			}
			if item.status == want {
				out = append(out, item)
			}
		}
	}
	for _, item := range m.items {
		if len(out) == MaxRows {
			break
		}
		if item.status != buildpipeline.StatusError && item.status != buildpipeline.StatusWorking {
			out = append(out, item)
		}
	}
	return out
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		if ev.Stage != "" {
			m.stage = ev.Stage
		}
		if ev.Status == buildpipeline.StatusError && ev.Err != nil {
			m.failure = ev.Err
		}
		return nil
	}
	item := &m.items[m.track(ev.File)]
	switch {
	case ev.Status == buildpipeline.StatusError:
		item.status = buildpipeline.StatusError
		item.errors++
	case item.status == buildpipeline.StatusError:
		// an error sticks for the rest of the build
	default:
		item.status = ev.Status
	}
	if ev.Stage != "" {
		item.stage = ev.Stage
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		switch item.status {
		case buildpipeline.StatusDone, buildpipeline.StatusError:
			total += 1.0
		default:
			total += stageWeight(item.stage)
		}
	}
	return total / float64(len(m.items))
}

func stageWeight(stage buildpipeline.Stage) float64 {
	switch stage {
	case buildpipeline.StageCollect:
		return 0.05
	case buildpipeline.StageEncode:
		return 0.1
	case buildpipeline.StageCompile:
		return 0.5
	case buildpipeline.StageAnnotate:
		return 0.9
	default:
		return 0
	}
}

func statusLabel(item fileItem) string {
	switch item.status {
	case buildpipeline.StatusQueued:
		return "queued"
	case buildpipeline.StatusDone:
		return "ok"
	case buildpipeline.StatusError:
		if item.errors > 1 {
			return fmt.Sprintf("%d errors", item.errors)
		}
		return "error"
	case buildpipeline.StatusWorking:
		return stageLabel(item.stage)
	default:
		return ""
	}
}

func stageLabel(stage buildpipeline.Stage) string {
	switch stage {
	case buildpipeline.StageCollect:
		return "collecting"
	case buildpipeline.StageEncode:
		return "encoding"
	case buildpipeline.StageCompile:
		return "compiling"
	case buildpipeline.StageAnnotate:
		return "annotating"
	default:
		return ""
	}
}

func styleStatus(status buildpipeline.Status) lipgloss.Style {
	switch status {
	case buildpipeline.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case buildpipeline.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case buildpipeline.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}

// Completed reports whether m rendered the whole event stream, as opposed to
// being quit by the user.
func Completed(m tea.Model) bool {
	pm, ok := m.(*progressModel)
	return ok && pm.done
}
