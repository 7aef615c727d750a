package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/hitx/internal/playback"
)

var _ list.Item = deviceItem{}

// deviceItem wraps a remote [playback.Device], or this computer when device is nil, to implement [list.Item].
type deviceItem struct {
	device *playback.Device
	name   string
}

func localItem(name string) deviceItem { return deviceItem{name: name} }

func remoteItem(d playback.Device) deviceItem { return deviceItem{device: &d, name: d.Name} }

func (i deviceItem) mode() playback.Mode {
	if i.device == nil {
		return playback.ModeLocal
	}
	return playback.ModeRemote
}

func (i deviceItem) FilterValue() string { return i.name }
func (i deviceItem) Title() string {
	if i.device != nil && i.device.IsActive {
		return i.name + " ●"
	}
	return i.name
}
func (i deviceItem) Description() string {
	if i.device == nil {
		return "This computer • 30s previews"
	}
	return fmt.Sprintf("%s • volume %d%%", i.device.Type, i.device.VolumePercent)
}

// deviceItems lists the local endpoint first, then the remote devices in the order Spotify reports them.
func deviceItems(localName string, devices []playback.Device) []list.Item {
	items := make([]list.Item, 0, len(devices)+1)
	items = append(items, localItem(localName))
	for _, d := range devices {
		items = append(items, remoteItem(d))
	}
	return items
}
