// Package tui provides a terminal user interface.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/intruscan/internal/daemon"
	"github.com/user/intruscan/internal/storage"
	"github.com/user/intruscan/internal/util"
)

// refreshInterval is how often the dashboard reloads on its own.
const refreshInterval = 15 * time.Second

// App is the main TUI application.
type App struct {
	db     *storage.DB
	config *util.Config
	user   string
}

// NewApp creates a new TUI application showing user's history.
func NewApp(db *storage.DB, cfg *util.Config, user string) *App {
	if user == "" {
		user = cfg.DefaultUser
	}
	return &App{
		db:     db,
		config: cfg,
		user:   user,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(newModel(a.db, a.config, a.user), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// appModel is the main bubbletea model.
type appModel struct {
	db        *storage.DB
	config    *util.Config
	user      string
	dashboard *Dashboard
	spinner   spinner.Model
	ready     bool
	width     int
	height    int
	err       error
}

func newModel(db *storage.DB, cfg *util.Config, user string) appModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Primary)

	return appModel{
		db:      db,
		config:  cfg,
		user:    user,
		spinner: s,
	}
}

// Init initializes the model.
func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		loadData(m.db, m.config, m.user),
		scheduleRefresh(),
	)
}

// Update handles messages.
func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, loadData(m.db, m.config, m.user)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.dashboard != nil {
			m.dashboard.SetSize(msg.Width, msg.Height)
		}

	case refreshMsg:
		return m, tea.Batch(loadData(m.db, m.config, m.user), scheduleRefresh())

	case dataMsg:
		m.ready = true
		m.err = nil
		m.dashboard = NewDashboard(msg, m.width, m.height)

	case errMsg:
		m.err = msg.err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI.
func (m appModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render("Error: "+m.err.Error()) + "\n" + HelpStyle.Render("Press 'r' to retry • 'q' to quit")
	}

	if !m.ready {
		return LoadingStyle.Render(m.spinner.View() + " Loading...")
	}

	return m.dashboard.View()
}

// Messages
type dataMsg struct {
	Data *DashboardData
}

type errMsg struct {
	err error
}

type refreshMsg struct{}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func loadData(db *storage.DB, cfg *util.Config, user string) tea.Cmd {
	return func() tea.Msg {
		data, err := fetchDashboardData(db, cfg, user)
		if err != nil {
			return errMsg{err}
		}
		return dataMsg{Data: data}
	}
}

func fetchDashboardData(db *storage.DB, cfg *util.Config, user string) (*DashboardData, error) {
	data := &DashboardData{User: user, Product: cfg.ProductName}

	scanStorage := storage.NewScanStorage(db)
	stats, err := scanStorage.UserStats(user)
	if err != nil {
		return nil, err
	}
	data.Stats = *stats

	scans, err := scanStorage.ListByUser(user, maxScans)
	if err != nil {
		return nil, err
	}
	data.Scans = scans

	counters := storage.NewCounterStorage(db)
	if c, err := counters.URLCounters(); err == nil {
		data.URLCounters = c
	}
	if last, err := counters.LastCheck(); err == nil {
		data.LastURLCheck = last
	}

	// Health comes from the daemon's status file when one is running.
	if status, err := daemon.ReadStatusFile(cfg.DataDir); err == nil && status != nil {
		data.DaemonRunning, _ = daemon.CheckRunning(cfg.DataDir)
		data.Health = status.Health
		data.Ingested = status.Ingested
		data.Failed = status.Failed
	}

	return data, nil
}
