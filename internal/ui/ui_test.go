package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/session"
)

type fakeSession struct {
	updates  chan session.Update
	snapshot session.Snapshot
	devices  []playback.Device
	err      error
	calls    []string
	selected *playback.Device
	mode     string
	volume   int
}

func newFakeSession(state session.State) *fakeSession {
	return &fakeSession{
		updates:  make(chan session.Update, 4),
		snapshot: session.Snapshot{State: state, Volume: 50},
		devices: []playback.Device{
			{ID: "dev-1", Name: "Kitchen", Type: "Speaker", IsActive: true, VolumePercent: 40},
			{ID: "dev-2", Name: "Laptop", Type: "Computer", VolumePercent: 70},
		},
	}
}

func (f *fakeSession) Updates() <-chan session.Update { return f.updates }
func (f *fakeSession) Snapshot() session.Snapshot     { return f.snapshot }

func (f *fakeSession) Devices(ctx context.Context) ([]playback.Device, error) {
	f.calls = append(f.calls, "devices")
	return f.devices, f.err
}

func (f *fakeSession) SelectDevice(ctx context.Context, mode string, device *playback.Device) error {
	f.calls = append(f.calls, "select")
	f.mode, f.selected = mode, device
	return f.err
}

func (f *fakeSession) ChangeDevice(ctx context.Context) error {
	f.calls = append(f.calls, "change")
	return f.err
}

func (f *fakeSession) Toggle(ctx context.Context) (bool, error) {
	f.calls = append(f.calls, "toggle")
	return true, f.err
}

func (f *fakeSession) AdjustVolume(ctx context.Context, delta int) error {
	f.calls = append(f.calls, "volume")
	f.volume += delta
	return f.err
}

func (f *fakeSession) Reveal(ctx context.Context) (*playback.TrackInfo, error) {
	f.calls = append(f.calls, "reveal")
	return nil, f.err
}

func (f *fakeSession) lastCall() string {
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends k to m and runs the resulting command, feeding its message back.
func press(t *testing.T, m *Model, k tea.KeyMsg) tea.Msg {
	t.Helper()
	_, cmd := m.Update(k)
	if cmd == nil {
		return nil
	}
	msg := cmd()
	m.Update(msg)
	return msg
}

func scanningSnapshot() session.Snapshot {
	return session.Snapshot{
		State:   session.StateScanning,
		Mode:    playback.ModeRemote,
		Device:  "Kitchen",
		Playing: true,
		Volume:  40,
		Scans:   3,
		Track: &playback.TrackInfo{
			ID: "2WfaOiMkCvy7F5fcp2zZ8L", Name: "Take On Me", ArtistString: "a-ha", Year: 1985,
		},
	}
}

func TestDeviceView(t *testing.T) {
	t.Run("lists this computer before remote devices", func(t *testing.T) {
		s := newFakeSession(session.StateDeviceSelect)
		m := NewModel(context.Background(), s, "hitx")
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

		m.Update(m.fetchDevices()())

		items := m.deviceList.Items()
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		if first := items[0].(deviceItem); first.mode() != playback.ModeLocal {
			t.Errorf("expected local first, got %s", first.mode())
		}
		if second := items[1].(deviceItem); second.Title() != "Kitchen ●" {
			t.Errorf("expected active marker, got %q", second.Title())
		}
		if m.loading {
			t.Error("loading should be cleared")
		}
	})

	t.Run("enter selects the highlighted device", func(t *testing.T) {
		s := newFakeSession(session.StateDeviceSelect)
		m := NewModel(context.Background(), s, "hitx")
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
		m.Update(m.fetchDevices()())

		m.Update(tea.KeyMsg{Type: tea.KeyDown})
		press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		if s.lastCall() != "select" {
			t.Fatalf("expected select, got %v", s.calls)
		}
		if s.mode != "remote" || s.selected == nil || s.selected.ID != "dev-1" {
			t.Errorf("unexpected selection %s %+v", s.mode, s.selected)
		}
		if m.selecting {
			t.Error("selecting should clear once the command returns")
		}
	})

	t.Run("local selection passes no device", func(t *testing.T) {
		s := newFakeSession(session.StateDeviceSelect)
		m := NewModel(context.Background(), s, "hitx")

		press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		if s.mode != "local" || s.selected != nil {
			t.Errorf("unexpected selection %s %+v", s.mode, s.selected)
		}
	})

	t.Run("selection failure shows a notice", func(t *testing.T) {
		s := newFakeSession(session.StateDeviceSelect)
		s.err = playback.ErrPremiumRequired
		m := NewModel(context.Background(), s, "hitx")

		press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		if m.notice == nil || !errors.Is(m.notice.Err, playback.ErrPremiumRequired) {
			t.Fatalf("expected premium notice, got %+v", m.notice)
		}
		if !strings.Contains(m.View(), "select failed") {
			t.Errorf("expected notice in view, got %q", m.View())
		}
	})

	t.Run("device listing failure", func(t *testing.T) {
		s := newFakeSession(session.StateDeviceSelect)
		s.err = errors.New("offline")
		m := NewModel(context.Background(), s, "hitx")

		m.Update(m.fetchDevices()())

		if m.notice == nil || !strings.Contains(m.notice.Message, "offline") {
			t.Errorf("expected listing notice, got %+v", m.notice)
		}
		if len(m.deviceList.Items()) != 1 {
			t.Error("local device should remain selectable")
		}
	})

	t.Run("ctrl+r refreshes", func(t *testing.T) {
		s := newFakeSession(session.StateDeviceSelect)
		m := NewModel(context.Background(), s, "hitx")

		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})

		if s.lastCall() != "devices" {
			t.Errorf("expected devices call, got %v", s.calls)
		}
	})
}

func TestScanningView(t *testing.T) {
	setup := func(snap session.Snapshot) (*fakeSession, *Model) {
		s := newFakeSession(session.StateScanning)
		s.snapshot = snap
		return s, NewModel(context.Background(), s, "hitx")
	}

	t.Run("hides the track until revealed", func(t *testing.T) {
		_, m := setup(scanningSnapshot())

		view := m.View()
		if strings.Contains(view, "Take On Me") {
			t.Error("track name must stay hidden")
		}
		if !strings.Contains(view, "Mystery track") {
			t.Errorf("expected hidden placeholder, got %q", view)
		}

		snap := scanningSnapshot()
		snap.Revealed = true
		m.Update(sessionUpdateMsg(session.Update{Snapshot: snap}))

		view = m.View()
		for _, want := range []string{"Take On Me", "a-ha", "1985"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in revealed view", want)
			}
		}
	})

	t.Run("prompts for a card before the first scan", func(t *testing.T) {
		snap := scanningSnapshot()
		snap.Track = nil
		_, m := setup(snap)

		if !strings.Contains(m.View(), "Hold a card up") {
			t.Errorf("unexpected view %q", m.View())
		}
	})

	t.Run("keys drive the session", func(t *testing.T) {
		tests := []struct {
			name string
			key  tea.KeyMsg
			want string
		}{
			{"space toggles", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, "toggle"},
			{"r reveals", runes("r"), "reveal"},
			{"plus raises volume", runes("+"), "volume"},
			{"minus lowers volume", runes("-"), "volume"},
			{"c changes device", runes("c"), "change"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s, m := setup(scanningSnapshot())
				press(t, m, tt.key)
				if s.lastCall() != tt.want {
					t.Errorf("expected %s, got %v", tt.want, s.calls)
				}
			})
		}
	})

	t.Run("volume steps", func(t *testing.T) {
		s, m := setup(scanningSnapshot())

		press(t, m, runes("+"))
		press(t, m, runes("+"))
		press(t, m, runes("-"))

		if s.volume != VolumeStep {
			t.Errorf("expected net delta %d, got %d", VolumeStep, s.volume)
		}
	})

	t.Run("reveal without a track shows the error", func(t *testing.T) {
		s, m := setup(scanningSnapshot())
		s.err = session.ErrNoTrack

		press(t, m, runes("r"))

		if m.notice == nil || m.notice.Level != session.LevelError {
			t.Fatalf("expected error notice, got %+v", m.notice)
		}
	})

	t.Run("session notices are shown", func(t *testing.T) {
		_, m := setup(scanningSnapshot())

		m.Update(sessionUpdateMsg(session.Update{
			Snapshot: scanningSnapshot(),
			Notice:   &session.Notice{Level: session.LevelInfo, Message: "Track ended, scan the next card"},
		}))

		if !strings.Contains(m.View(), "Track ended") {
			t.Errorf("expected notice in view, got %q", m.View())
		}
	})

	t.Run("returning to device select reloads devices", func(t *testing.T) {
		s, m := setup(scanningSnapshot())

		_, cmd := m.Update(sessionUpdateMsg(session.Update{Snapshot: session.Snapshot{State: session.StateDeviceSelect}}))
		if cmd == nil {
			t.Fatal("expected commands")
		}
		if !m.loading {
			t.Error("expected device fetch to start")
		}
		if len(s.calls) != 0 {
			t.Errorf("fetch should run asynchronously, got %v", s.calls)
		}
	})
}

func TestLoginView(t *testing.T) {
	s := newFakeSession(session.StateLogin)
	m := NewModel(context.Background(), s, "hitx")

	if !strings.Contains(m.View(), "hitx auth") {
		t.Errorf("expected auth hint, got %q", m.View())
	}

	_, cmd := m.Update(runes("r"))
	if cmd != nil {
		t.Error("scanning keys should be ignored while logged out")
	}

	_, cmd = m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestWaitForUpdate(t *testing.T) {
	t.Run("delivers updates", func(t *testing.T) {
		s := newFakeSession(session.StateDeviceSelect)
		m := NewModel(context.Background(), s, "hitx")

		s.updates <- session.Update{Snapshot: scanningSnapshot()}
		msg := m.waitForUpdate()().(Msg)
		if msg.kind != MsgSessionUpdate {
			t.Fatalf("expected session update, got %v", msg.kind)
		}

		m.Update(msg)
		if m.snapshot.State != session.StateScanning {
			t.Errorf("expected scanning, got %s", m.snapshot.State)
		}
	})

	t.Run("closed channel quits", func(t *testing.T) {
		s := newFakeSession(session.StateDeviceSelect)
		m := NewModel(context.Background(), s, "hitx")
		close(s.updates)

		msg := m.waitForUpdate()()
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatal("expected quit")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("cancelled context quits", func(t *testing.T) {
		s := newFakeSession(session.StateDeviceSelect)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := NewModel(ctx, s, "hitx")

		if msg := m.waitForUpdate()().(Msg); msg.kind != MsgSessionClosed {
			t.Errorf("expected closed, got %v", msg.kind)
		}
	})
}

func TestVolumeBar(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "░░░░░░░░░░ 0%"},
		{55, "█████░░░░░ 55%"},
		{100, "██████████ 100%"},
		{140, "██████████ 100%"},
		{-3, "░░░░░░░░░░ 0%"},
	}
	for _, tt := range tests {
		if got := volumeBar(tt.in); got != tt.want {
			t.Errorf("volumeBar(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
