package scanner

import (
	"time"

	"github.com/desertthunder/hitx/internal/trackref"
)

// DefaultCooldown is the minimum time between accepted scans.
const DefaultCooldown = 3 * time.Second

// ScanEvent is an accepted scan of a card.
type ScanEvent struct {
	TrackURI  string
	TrackID   string
	Payload   string
	Strategy  Strategy
	Timestamp time.Time
}

// Gate filters raw decode results down to accepted scans.
//
// A Gate is not safe for concurrent use; the [Loop] owns it from a single goroutine.
type Gate struct {
	cooldown time.Duration
	clock    func() time.Time

	lastPayload    string
	lastAcceptedAt time.Time
}

// NewGate creates a [Gate]. A non-positive cooldown uses [DefaultCooldown]; a nil clock uses [time.Now].
func NewGate(cooldown time.Duration, clock func() time.Time) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if clock == nil {
		clock = time.Now
	}
	return &Gate{cooldown: cooldown, clock: clock}
}

// Cooldown returns the configured global cooldown.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

// Submit returns a [ScanEvent] when res is a track reference that clears both cooldown tiers.
//
// Rejections are silent: malformed payloads and repeats simply produce no event.
func (g *Gate) Submit(res DecodeResult) (ScanEvent, bool) {
	id, ok := trackref.Extract(res.Payload)
	if !ok {
		return ScanEvent{}, false
	}

	now := g.clock()
	if !g.lastAcceptedAt.IsZero() {
		elapsed := now.Sub(g.lastAcceptedAt)
		if elapsed < g.cooldown {
			return ScanEvent{}, false
		}
		if res.Payload == g.lastPayload && elapsed < 2*g.cooldown {
			return ScanEvent{}, false
		}
	}

	g.lastPayload = res.Payload
	g.lastAcceptedAt = now

	return ScanEvent{
		TrackURI:  trackref.URI(id),
		TrackID:   id,
		Payload:   res.Payload,
		Strategy:  res.Strategy,
		Timestamp: now,
	}, true
}

// Reset forgets the last accepted payload so the next valid scan is accepted immediately.
func (g *Gate) Reset() {
	g.lastPayload = ""
	g.lastAcceptedAt = time.Time{}
}
