package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/tasks"
)

const logLines = 6

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InputView ViewState = iota
	TrackListView
	ConfirmView
	ConvertView
	ResultView
)

// Converter runs one conversion. Satisfied by [tasks.Converter].
type Converter interface {
	Run(ctx context.Context, opts tasks.RunOptions, updates chan<- tasks.ProgressUpdate) (*tasks.RunResult, error)
}

// ModelOpts configures a [Model].
type ModelOpts struct {
	Catalog     services.Catalog
	Converter   Converter
	URL         string // prefilled playlist URL
	Title       string
	Description string
	ChunkSize   int
	CanResume   bool // a checkpoint exists on disk
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	view      ViewState
	opts      ModelOpts
	width     int
	height    int
	input     textinput.Model
	trackList list.Model
	tracks    []string
	resume    bool
	spinner   spinner.Model
	bar       progress.Model
	updates   chan tasks.ProgressUpdate
	done      chan convertComplete
	latest    tasks.ProgressUpdate
	percent   float64
	log       []string
	stopping  bool
	result    *tasks.RunResult
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	input := textinput.New()
	input.Placeholder = "https://open.spotify.com/playlist/..."
	input.Prompt = "Spotify playlist: "
	input.CharLimit = 256
	input.Width = 60
	input.SetValue(opts.URL)
	input.Focus()

	return &Model{
		ctx:     ctx,
		view:    InputView,
		opts:    opts,
		width:   80,
		height:  24,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the cursor blink of the URL input.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.tracks != nil {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		if w := msg.Width - 10; w > 10 && w < 80 {
			m.bar.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case InputView:
			return m.handleInputKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ConvertView:
			return m.handleConvertKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != ConvertView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTracksFetched:
		data := msg.data.(tracksFetched)
		if data.err != nil {
			m.err = data.err
			m.view = InputView
			return m, nil
		}
		m.err = nil
		m.tracks = data.tracks
		m.trackList = list.New(trackItems(data.tracks), list.NewDefaultDelegate(), m.width-4, m.height-8)
		m.trackList.Title = fmt.Sprintf("%d tracks to match", len(data.tracks))
		m.view = TrackListView
		return m, nil

	case MsgProgressUpdate:
		m.record(msg.data.(tasks.ProgressUpdate))
		return m, m.waitForProgress()

	case MsgConvertComplete:
		data := msg.data.(convertComplete)
		m.result = data.result
		m.err = data.err
		m.view = ResultView
		m.updates, m.done = nil, nil
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		return m, nil
	}
	return m, nil
}

// record folds a progress update into the view state.
func (m *Model) record(update tasks.ProgressUpdate) {
	m.latest = update
	if update.Phase == tasks.Milestone {
		m.percent = float64(update.Step) / 100
	}
	if update.Message == "" {
		return
	}
	m.log = append(m.log, update.Message)
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case InputView:
		return m.renderInput()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case ConvertView:
		return m.renderConvert()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.keys.resume):
		if !m.opts.CanResume {
			m.err = fmt.Errorf("no saved conversion to resume")
			return m, nil
		}
		m.err = nil
		m.resume = true
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		url := strings.TrimSpace(m.input.Value())
		if _, err := services.ExtractPlaylistID(url); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.resume = false
		return m, m.fetchTracks(url)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = InputView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		if m.resume {
			m.view = InputView
		} else {
			m.view = TrackListView
		}
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = ConvertView
		return m, tea.Batch(m.spinner.Tick, m.startConvert())
	}
	return m, nil
}

func (m *Model) handleConvertKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && m.cancel != nil {
		m.stopping = true
		m.cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.again):
		m.reset()
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Model) reset() {
	m.view = InputView
	m.tracks = nil
	m.result = nil
	m.err = nil
	m.log = nil
	m.percent = 0
	m.stopping = false
	m.resume = false
	m.latest = tasks.ProgressUpdate{}
	m.opts.CanResume = false
	m.input.SetValue("")
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case InputView:
		m.input, cmd = m.input.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchTracks(url string) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.opts.Catalog.FetchTracks(m.ctx, url)
		return tracksFetchedMsg(tracks, err)
	}
}

func (m *Model) startConvert() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.updates = make(chan tasks.ProgressUpdate, 64)
	m.done = make(chan convertComplete, 1)

	opts := tasks.RunOptions{
		PlaylistURL: strings.TrimSpace(m.input.Value()),
		Title:       m.opts.Title,
		Description: m.opts.Description,
		ChunkSize:   m.opts.ChunkSize,
		Resume:      m.resume,
	}
	if !m.resume {
		opts.Tracks = m.tracks
	}

	updates, done := m.updates, m.done
	go func() {
		result, err := m.opts.Converter.Run(ctx, opts, updates)
		done <- convertComplete{result: result, err: err}
		close(updates)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	updates, done := m.updates, m.done
	return func() tea.Msg {
		if updates == nil {
			return convertCompleteMsg(m.result, m.err)
		}

		update, ok := <-updates
		if !ok {
			c := <-done
			return convertCompleteMsg(c.result, c.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderInput() string {
	title := styles.title.Render("Convert a Spotify playlist to YouTube")

	var b strings.Builder
	b.WriteString(title + "\n" + m.input.View() + "\n")
	if m.err != nil {
		b.WriteString("\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}
	if m.opts.CanResume {
		b.WriteString("\n" + styles.warn.Render("A saved conversion can be resumed.") + "\n")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	if m.opts.CanResume {
		helpKeys = []key.Binding{m.keys.enter, m.keys.resume, m.keys.quit}
	}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderTrackList() string {
	convertKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "convert"))
	helpKeys := []key.Binding{convertKey, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	var title, info string
	if m.resume {
		title = styles.title.Render("Resume the saved conversion?")
		info = "\nMatching and inserts continue from the last checkpoint.\n"
	} else {
		name := m.opts.Title
		if name == "" {
			name = tasks.DefaultTitle
		}
		title = styles.title.Render(fmt.Sprintf("Create YouTube playlist %q?", name))
		info = fmt.Sprintf("\nTracks: %d\nEach matched video costs quota to insert.\n", len(m.tracks))
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConvert() string {
	title := styles.title.Render("Converting Playlist")

	phase := m.latest.Phase.String()
	if m.latest.Total > 0 && m.latest.Phase != tasks.Milestone {
		phase = fmt.Sprintf("%s (%d/%d)", phase, m.latest.Step, m.latest.Total)
	}
	if m.stopping {
		phase = styles.warn.Render("stopping after the current step...")
	}

	lines := make([]string, len(m.log))
	for i, l := range m.log {
		lines[i] = styles.log.Render(l)
	}

	return fmt.Sprintf("%s\n%s %s\n\n%s\n\n%s\n\n%s",
		title, m.spinner.View(), phase, m.bar.ViewAs(m.percent), strings.Join(lines, "\n"),
		m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.again, m.keys.quit})

	if m.err != nil {
		msg := fmt.Sprintf("Conversion stopped: %v", m.err)
		if m.result != nil && m.result.PlaylistID != "" {
			msg += fmt.Sprintf("\nPlaylist: %s", m.result.PlaylistURL)
		}
		return fmt.Sprintf("%s\n\n%s\n\n%s",
			styles.err.Render(msg), styles.warn.Render("Progress was saved; resume to continue."), helpView)
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Conversion Complete!")
	if !m.result.Complete() {
		title = styles.warn.Render("Partially converted; the rest is deferred to a later run")
	}
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\nMatched: %d\nAdded: %d\nFailed: %d\nDeferred: %d",
		m.result.PlaylistURL, m.result.TrackCount, m.result.MatchedCount,
		m.result.Added, len(m.result.Failed), len(m.result.Deferred))

	var failed string
	if len(m.result.Failed) > 0 {
		failed = "\n\n" + styles.warn.Render("Videos that could not be added:")
		for _, id := range m.result.Failed {
			failed += fmt.Sprintf("\n  • %s", id)
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
