package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/llehouerou/lockstep/internal/combine"
	"github.com/llehouerou/lockstep/internal/config"
	"github.com/llehouerou/lockstep/internal/session"
	"github.com/llehouerou/lockstep/internal/source"
	"github.com/llehouerou/lockstep/internal/status"
)

var (
	barStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
)

type tickMsg time.Time

type statusMsg struct {
	status  status.Combined
	message string
}

type engineErrMsg struct{ err error }

type model struct {
	engine     *combine.Engine
	video      *source.Sim
	whiteboard *source.Sim
	store      *session.Store
	statusCh   chan statusMsg

	width    int
	status   status.Combined
	message  string
	lastErr  error
	resumed  bool
	resumeAt time.Duration
}

func initialModel() (model, error) {
	cfg, err := config.Load()
	if err != nil {
		return model{}, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return model{}, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return model{}, err
	}

	var resumeAt time.Duration
	if last, err := store.Last(); err == nil && last != nil {
		resumeAt = last.Position
	}

	videoCfg := cfg.GetVideoConfig()
	whiteboardCfg := cfg.GetWhiteboardConfig()

	video := source.NewSim(source.SimOptions{
		Duration:     videoCfg.Duration(),
		StartupDelay: videoCfg.StartupDelay(),
		SeekDelay:    videoCfg.SeekDelay(),
		Tick:         videoCfg.Tick(),
	})
	whiteboard := source.NewSim(source.SimOptions{
		Duration:     whiteboardCfg.Duration(),
		StartupDelay: whiteboardCfg.StartupDelay(),
		SeekDelay:    whiteboardCfg.SeekDelay(),
		Tick:         whiteboardCfg.Tick(),
		Whiteboard:   true,
	})

	engine, err := combine.New(combine.Options{
		Video:      video,
		Whiteboard: whiteboard,
		Logger:     logger,
		Watchdog:   cfg.Watchdog(),
		Session:    store,
	})
	if err != nil {
		video.Close()
		whiteboard.Close()
		store.Close()
		return model{}, err
	}

	statusCh := make(chan statusMsg, 16)
	engine.OnStatusChange(func(s status.Combined, message string) {
		statusCh <- statusMsg{status: s, message: message}
	})

	return model{
		engine:     engine,
		video:      video,
		whiteboard: whiteboard,
		store:      store,
		statusCh:   statusCh,
		status:     engine.CombinedStatus(),
		resumeAt:   resumeAt,
	}, nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	// The TUI owns stdout, so logs go to a file.
	path := cfg.LogFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return zerolog.Nop(), err
		}
		path = filepath.Join(home, ".local", "state", "lockstep", "lockstep.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), err
	}

	return zerolog.New(f).Level(level).With().Timestamp().Logger(), nil
}

func openStore(cfg *config.Config) (*session.Store, error) {
	if cfg.StateDB != "" {
		return session.OpenAt(cfg.StateDB)
	}
	return session.Open()
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.waitForStatus())
}

func (m model) waitForStatus() tea.Cmd {
	return func() tea.Msg {
		return <-m.statusCh
	}
}

func engineCmd(f func() error) tea.Cmd {
	return func() tea.Msg {
		if err := f(); err != nil {
			return engineErrMsg{err: err}
		}
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case statusMsg:
		m.status = msg.status
		m.message = msg.message
		// Pick the previous session back up once both sources are ready.
		if !m.resumed && msg.status == status.CombinedPause && m.resumeAt > 0 {
			m.resumed = true
			pos := m.resumeAt
			return m, tea.Batch(engineCmd(func() error { return m.engine.Seek(pos) }), m.waitForStatus())
		}
		return m, m.waitForStatus()

	case engineErrMsg:
		m.lastErr = msg.err
		return m, nil

	case tickMsg:
		return m, tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.engine.Close()
			m.video.Close()
			m.whiteboard.Close()
			m.store.Close()
			return m, tea.Quit
		case " ":
			m.resumed = true
			if m.status == status.CombinedPlaying {
				return m, engineCmd(m.engine.Pause)
			}
			return m, engineCmd(m.engine.Play)
		case "left":
			pos := max(m.engine.Position()-10*time.Second, 0)
			return m, engineCmd(func() error { return m.engine.Seek(pos) })
		case "right":
			pos := m.engine.Position() + 10*time.Second
			return m, engineCmd(func() error { return m.engine.Seek(pos) })
		case "r":
			m.resumed = true
			return m, engineCmd(func() error { return m.engine.Seek(0) })
		case "b":
			m.video.Stall(2 * time.Second)
		case "B":
			m.whiteboard.Stall(2 * time.Second)
		case "j":
			m.video.Jump(m.engine.Position() + 30*time.Second)
		}
	}

	return m, nil
}

func (m model) View() string {
	pos := m.engine.Position()
	dur := m.engine.Duration()

	var b strings.Builder
	b.WriteString(titleStyle.Render("lockstep"))
	b.WriteString(dimStyle.Render("  synchronized playback demo"))
	b.WriteString("\n\n")

	line := fmt.Sprintf("%s %s  %s / %s",
		statusIcon(m.status), m.status, formatDuration(pos), formatDuration(dur))
	b.WriteString(barStyle.Render(" " + line + " "))
	b.WriteString("\n")

	b.WriteString(renderProgress(pos, dur, m.width))
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render(fmt.Sprintf("video %s  whiteboard %s",
		formatDuration(m.video.Position()), formatDuration(m.whiteboard.Position()))))
	b.WriteString("\n")

	if m.message != "" {
		b.WriteString(errStyle.Render(m.message))
		b.WriteString("\n")
	}
	if m.lastErr != nil {
		b.WriteString(errStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("space play/pause · ←/→ seek 10s · r restart · b/B stall video/whiteboard · j drop frame · q quit"))
	b.WriteString("\n")

	return b.String()
}

func statusIcon(s status.Combined) string {
	switch s {
	case status.CombinedPlaying:
		return "▶"
	case status.CombinedPlayingBuffering, status.CombinedPauseBuffering:
		return "◌"
	case status.CombinedEnded:
		return "■"
	case status.CombinedDisabled:
		return "✗"
	default:
		return "⏸"
	}
}

func renderProgress(pos, dur time.Duration, width int) string {
	inner := width - 2
	if inner < 10 {
		inner = 40
	}
	filled := 0
	if dur > 0 {
		filled = int(int64(inner) * int64(pos) / int64(dur))
		if filled > inner {
			filled = inner
		}
	}
	return dimStyle.Render("[" + strings.Repeat("=", filled) + strings.Repeat(" ", inner-filled) + "]")
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

func main() {
	m, err := initialModel()
	if err != nil {
		fmt.Printf("Error initializing: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
