package scanner

import (
	"context"
	"image"
	"image/draw"
	"sync/atomic"
	"time"
)

// Frame is an RGBA pixel buffer captured from a camera.
//
// Frames are shared by reference once published: neither the publisher nor
// any reader may modify Pix afterwards.
type Frame struct {
	Width     int
	Height    int
	Pix       []byte // RGBA, stride 4*Width
	Timestamp time.Time
	Seq       uint64 // assigned by FrameSlot.Publish
}

// Valid reports whether the frame has non-zero dimensions and a pixel buffer large enough for them.
func (f *Frame) Valid() bool {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return false
	}
	return len(f.Pix) >= 4*f.Width*f.Height
}

// Image wraps the frame's pixels as an [image.RGBA] without copying.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: 4 * f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FrameFromImage copies img into a new RGBA frame.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	return &Frame{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Pix:       rgba.Pix,
		Timestamp: time.Now(),
	}
}

// FrameSource supplies the latest camera frame.
//
// Latest returns false while the source is warming up and has no readable frame yet; that is not an error.
type FrameSource interface {
	Start(ctx context.Context) error
	Latest() (*Frame, bool)
	Close() error
}

// FrameSlot is a single-writer, multi-reader holder for the most recent frame.
//
// Publish overwrites the previous frame; readers always observe a whole frame, never a partially written one.
type FrameSlot struct {
	frame     atomic.Pointer[Frame]
	seq       atomic.Uint64
	published atomic.Uint64
}

// Publish stores f as the latest frame, assigning it the next sequence number.
func (s *FrameSlot) Publish(f *Frame) {
	f.Seq = s.seq.Add(1)
	s.published.Add(1)
	s.frame.Store(f)
}

// Latest returns the most recent frame, or false if nothing has been published since the last reset.
func (s *FrameSlot) Latest() (*Frame, bool) {
	f := s.frame.Load()
	return f, f != nil
}

// Published returns how many frames have been published.
func (s *FrameSlot) Published() uint64 {
	return s.published.Load()
}

// Reset clears the slot so Latest reports not-ready again.
func (s *FrameSlot) Reset() {
	s.frame.Store(nil)
}
