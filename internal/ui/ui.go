package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hitx/internal/formatter"
	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/session"
)

// VolumeStep is the change applied by a single +/- key press.
const VolumeStep = 5

// Session is the part of [session.Controller] the TUI drives.
type Session interface {
	Updates() <-chan session.Update
	Snapshot() session.Snapshot
	Devices(ctx context.Context) ([]playback.Device, error)
	SelectDevice(ctx context.Context, mode string, device *playback.Device) error
	ChangeDevice(ctx context.Context) error
	Toggle(ctx context.Context) (bool, error)
	AdjustVolume(ctx context.Context, delta int) error
	Reveal(ctx context.Context) (*playback.TrackInfo, error)
}

var _ Session = (*session.Controller)(nil)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	session    Session
	localName  string
	snapshot   session.Snapshot
	notice     *session.Notice
	deviceList list.Model
	loading    bool
	selecting  bool
	width      int
	height     int
	help       help.Model
	keys       keyMap
}

// NewModel creates a TUI model for a logged-in session. localName labels this computer in the device list.
func NewModel(ctx context.Context, s Session, localName string) *Model {
	deviceList := list.New(deviceItems(localName, nil), list.NewDefaultDelegate(), 0, 0)
	deviceList.Title = "Choose where to play"

	return &Model{
		ctx:        ctx,
		session:    s,
		localName:  localName,
		snapshot:   s.Snapshot(),
		deviceList: deviceList,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init subscribes to session updates and loads the device list.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForUpdate()}
	if m.snapshot.State == session.StateDeviceSelect {
		cmds = append(cmds, m.fetchDevices())
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.deviceList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.snapshot.State {
		case session.StateDeviceSelect:
			return m.handleDeviceKeys(msg)
		case session.StateScanning:
			return m.handleScanningKeys(msg)
		default:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.snapshot.State == session.StateDeviceSelect {
		var cmd tea.Cmd
		m.deviceList, cmd = m.deviceList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgDevicesFetched:
		data := msg.data.(struct {
			devices []playback.Device
			err     error
		})
		m.loading = false
		if data.err != nil {
			m.notice = &session.Notice{Level: session.LevelError, Message: fmt.Sprintf("Could not list devices: %v", data.err), Err: data.err}
			return m, nil
		}
		cmd := m.deviceList.SetItems(deviceItems(m.localName, data.devices))
		return m, cmd

	case MsgSessionUpdate:
		update := msg.data.(session.Update)
		prev := m.snapshot.State
		m.snapshot = update.Snapshot
		if update.Notice != nil {
			m.notice = update.Notice
		}

		cmds := []tea.Cmd{m.waitForUpdate()}
		if m.snapshot.State != session.StateDeviceSelect {
			m.selecting = false
		} else if prev != session.StateDeviceSelect {
			cmds = append(cmds, m.fetchDevices())
		}
		return m, tea.Batch(cmds...)

	case MsgSessionClosed:
		return m, tea.Quit

	case MsgCommandDone:
		data := msg.data.(struct {
			action string
			err    error
		})
		if data.action == "select" {
			m.selecting = false
		}
		if data.err != nil {
			m.notice = &session.Notice{Level: session.LevelError, Message: fmt.Sprintf("%s failed: %v", data.action, data.err), Err: data.err}
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the session state.
func (m *Model) View() string {
	var body string
	switch m.snapshot.State {
	case session.StateLogin:
		body = m.renderLogin()
	case session.StateDeviceSelect:
		body = m.renderDevices()
	case session.StateScanning:
		body = m.renderScanning()
	}

	if notice := m.renderNotice(); notice != "" {
		body = fmt.Sprintf("%s\n\n%s", body, notice)
	}
	return body
}

func (m *Model) handleDeviceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.deviceList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.deviceList, cmd = m.deviceList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchDevices()
	case key.Matches(msg, m.keys.enter):
		if m.selecting {
			return m, nil
		}
		if item, ok := m.deviceList.SelectedItem().(deviceItem); ok {
			m.selecting = true
			m.notice = nil
			return m, m.selectDevice(item)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.deviceList, cmd = m.deviceList.Update(msg)
	return m, cmd
}

func (m *Model) handleScanningKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		return m, m.run("toggle", func(ctx context.Context) error {
			_, err := m.session.Toggle(ctx)
			return err
		})
	case key.Matches(msg, m.keys.reveal):
		return m, m.run("reveal", func(ctx context.Context) error {
			_, err := m.session.Reveal(ctx)
			return err
		})
	case key.Matches(msg, m.keys.louder):
		return m, m.run("volume", func(ctx context.Context) error {
			return m.session.AdjustVolume(ctx, VolumeStep)
		})
	case key.Matches(msg, m.keys.quieter):
		return m, m.run("volume", func(ctx context.Context) error {
			return m.session.AdjustVolume(ctx, -VolumeStep)
		})
	case key.Matches(msg, m.keys.change):
		m.notice = nil
		return m, m.run("change device", m.session.ChangeDevice)
	}
	return m, nil
}

func (m *Model) waitForUpdate() tea.Cmd {
	updates := m.session.Updates()
	return func() tea.Msg {
		select {
		case update, ok := <-updates:
			if !ok {
				return sessionClosedMsg()
			}
			return sessionUpdateMsg(update)
		case <-m.ctx.Done():
			return sessionClosedMsg()
		}
	}
}

func (m *Model) fetchDevices() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		devices, err := m.session.Devices(m.ctx)
		return devicesFetchedMsg(devices, err)
	}
}

func (m *Model) selectDevice(item deviceItem) tea.Cmd {
	return m.run("select", func(ctx context.Context) error {
		return m.session.SelectDevice(ctx, string(item.mode()), item.device)
	})
}

func (m *Model) run(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg(action, fn(m.ctx))
	}
}

func (m *Model) renderLogin() string {
	title := styles.title.Render("hitx")
	info := "Not signed in to Spotify.\nRun `hitx auth`, then start `hitx play` again."
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, styles.warn.Render(info), helpView)
}

func (m *Model) renderDevices() string {
	var status string
	switch {
	case m.selecting:
		status = styles.help.Render("Connecting...")
	case m.loading:
		status = styles.help.Render("Looking for devices...")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit})
	if status != "" {
		return fmt.Sprintf("%s\n%s\n\n%s", m.deviceList.View(), status, helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.deviceList.View(), helpView)
}

func (m *Model) renderScanning() string {
	s := m.snapshot
	title := styles.title.Render(fmt.Sprintf("Playing on %s (%s)", s.Device, s.Mode))

	var b strings.Builder
	switch {
	case s.Track == nil:
		b.WriteString("Hold a card up to the camera.")
	case s.Revealed:
		b.WriteString(styles.answer.Render(strings.TrimRight(string(formatter.TrackToText(s.Track)), "\n")))
	default:
		b.WriteString(styles.help.Render("Mystery track. Press r to reveal."))
	}
	b.WriteString("\n\n")

	state := styles.warn.Render("⏸ paused")
	if s.Playing {
		state = styles.ok.Render("▶ playing")
	}
	fmt.Fprintf(&b, "%s   volume %s   cards %d", state, volumeBar(s.Volume), s.Scans)

	helpKeys := []key.Binding{m.keys.toggle, m.keys.reveal, m.keys.louder, m.keys.quieter, m.keys.change, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, b.String(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderNotice() string {
	if m.notice == nil || m.notice.Message == "" {
		return ""
	}
	switch m.notice.Level {
	case session.LevelError:
		return styles.err.Render(m.notice.Message)
	case session.LevelWarn:
		return styles.warn.Render(m.notice.Message)
	default:
		return styles.ok.Render(m.notice.Message)
	}
}

// volumeBar draws percent as ten cells followed by the number.
func volumeBar(percent int) string {
	percent = max(0, min(100, percent))
	filled := percent / 10
	return fmt.Sprintf("%s%s %d%%", strings.Repeat("█", filled), strings.Repeat("░", 10-filled), percent)
}
