// Package tui provides a Bubble Tea terminal user interface for tile downloads.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/osm-tile-downloader/internal/download"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// maxLogs is the number of log lines kept on screen.
const maxLogs = 10

// ErrCancelled is returned by Program.Run when the user interrupts a run.
var ErrCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateDownloading State = iota
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Runner is the part of download.Manager the UI drives.
type Runner interface {
	Run(ctx context.Context) error
	Progress() download.Progress
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	spinner  spinner.Model
	progress progress.Model
	logs     []LogEntry
	err      error

	// Run context
	ctx        context.Context
	cancel     context.CancelFunc
	cancelling bool

	runner   Runner
	subtitle string
	counts   download.Progress
	started  time.Time
	elapsed  time.Duration

	verbose bool

	width int
}

// NewModel creates a new TUI model for runner. The subtitle is shown under
// the title, typically the bounding box and output directory.
func NewModel(ctx context.Context, runner Runner, subtitle string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(ctx)

	return Model{
		state:    StateDownloading,
		spinner:  sp,
		progress: prog,
		logs:     make([]LogEntry, 0, maxLogs),
		ctx:      ctx,
		cancel:   cancel,
		runner:   runner,
		subtitle: subtitle,
		counts:   runner.Progress(),
		started:  time.Now(),
	}
}

// Init starts the download.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startDownload(), m.tickProgress())
}

// Message types
type (
	// ProgressMsg is sent when download progress updates.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// DownloadDoneMsg is sent when the run returns.
	DownloadDoneMsg struct {
		Err error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.state == StateDownloading {
				// Wait for Run to return so no tile write is cut short.
				m.cancelling = true
				m.cancel()
				return m, nil
			}
			return m, tea.Quit

		case "v":
			m.verbose = !m.verbose

		case "q":
			if m.state != StateDownloading {
				return m, tea.Quit
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			return m, nil
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case DownloadDoneMsg:
		m.counts = m.runner.Progress()
		m.elapsed = time.Since(m.started)
		switch {
		case m.cancelling || errors.Is(msg.Err, context.Canceled):
			m.state = StateError
			m.err = ErrCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}
		m.cancel()
		return m, tea.Quit

	case TickMsg:
		if m.state == StateDownloading {
			m.counts = m.runner.Progress()
			cmds = append(cmds, m.progress.SetPercent(fraction(m.counts)), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// Err returns the error the run ended with, if any.
func (m Model) Err() error {
	return m.err
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("OSM Tile Downloader"))
	b.WriteString("\n")
	if m.subtitle != "" {
		b.WriteString(dimStyle.Render(m.subtitle))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.state {
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	if m.cancelling {
		b.WriteString(warningStyle.Render("Cancelling, waiting for tiles in flight..."))
	} else {
		b.WriteString(infoStyle.Render("Fetching tiles"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(fraction(m.counts)))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(m.countsLine()))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	headline := successStyle.Render("Download complete")
	if m.counts.Failed > 0 {
		headline = warningStyle.Render(fmt.Sprintf("Download complete, %d tiles failed", m.counts.Failed))
	}

	box := boxStyle.Render(fmt.Sprintf(
		"%s\n\n"+
			"Tiles:   %d\n"+
			"Fetched: %d\n"+
			"Skipped: %d\n"+
			"Failed:  %d\n"+
			"Time:    %s",
		headline,
		m.counts.Total,
		m.counts.Fetched,
		m.counts.Skipped,
		m.counts.Failed,
		m.elapsed.Round(time.Second),
	))
	b.WriteString(box)
	b.WriteString("\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(m.countsLine()))
	b.WriteString("\n")

	return b.String()
}

func (m Model) countsLine() string {
	return fmt.Sprintf(
		"Tiles: %d/%d | Fetched: %d | Skipped: %d | Failed: %d",
		m.counts.Completed,
		m.counts.Total,
		m.counts.Fetched,
		m.counts.Skipped,
		m.counts.Failed,
	)
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	if m.state == StateDownloading {
		return "v: verbose • esc: cancel"
	}
	return "q: quit"
}

// startDownload runs the download in the background.
func (m Model) startDownload() tea.Cmd {
	ctx, runner := m.ctx, m.runner
	return func() tea.Msg {
		return DownloadDoneMsg{Err: runner.Run(ctx)}
	}
}

func fraction(p download.Progress) float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// Program drives a Runner with the TUI.
//
// Create the Program first and hand Send to download.WithProgress so the
// manager's events reach the screen:
//
//	ui := tui.NewProgram()
//	mgr, err := download.NewManager(cfg, download.WithProgress(ui.Send))
//	...
//	err = ui.Run(ctx, mgr, "Aachen, zoom 1-18")
type Program struct {
	events chan download.ProgressEvent
}

// NewProgram creates a Program.
func NewProgram() *Program {
	return &Program{events: make(chan download.ProgressEvent, 256)}
}

// Send queues a progress event for display. Events are dropped when the
// screen cannot keep up; counters are polled separately and stay accurate.
// The view is not a record of failures, log them as well.
func (p *Program) Send(event download.ProgressEvent) {
	select {
	case p.events <- event:
	default:
	}
}

// Run shows the UI until the download finishes and returns the error Run of
// the runner ended with.
func (p *Program) Run(ctx context.Context, runner Runner, subtitle string) error {
	program := tea.NewProgram(NewModel(ctx, runner, subtitle))

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case event := <-p.events:
				program.Send(ProgressMsg{Event: event})
			}
		}
	}()

	final, err := program.Run()
	if m, ok := final.(Model); ok {
		// Stops the runner if the program ended before it did.
		m.cancel()
		if m.Err() != nil {
			return m.Err()
		}
	}
	return err
}
