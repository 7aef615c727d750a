package scanner

import (
	"image"
	"image/color"
	"sync"
	"testing"
)

func TestFrame(t *testing.T) {
	t.Run("FrameFromImage copies pixels", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(10, 10, 14, 13))
		src.Set(10, 10, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

		f := FrameFromImage(src)
		if f.Width != 4 || f.Height != 3 {
			t.Fatalf("expected 4x3 frame, got %dx%d", f.Width, f.Height)
		}
		if !f.Valid() {
			t.Fatal("expected frame to be valid")
		}
		if f.Pix[0] != 200 || f.Pix[1] != 100 || f.Pix[2] != 50 {
			t.Errorf("unexpected first pixel %v", f.Pix[:4])
		}
	})

	t.Run("Image shares the buffer", func(t *testing.T) {
		f := &Frame{Width: 2, Height: 2, Pix: make([]byte, 16)}
		img := f.Image()
		img.Pix[0] = 9

		if f.Pix[0] != 9 {
			t.Error("expected Image to wrap the frame buffer")
		}
		if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
			t.Errorf("unexpected bounds %v", img.Bounds())
		}
	})
}

func TestFrameSlot(t *testing.T) {
	t.Run("empty slot is not ready", func(t *testing.T) {
		var slot FrameSlot
		if _, ok := slot.Latest(); ok {
			t.Error("expected empty slot to report not ready")
		}
	})

	t.Run("publish overwrites", func(t *testing.T) {
		var slot FrameSlot
		a := &Frame{Width: 1, Height: 1, Pix: make([]byte, 4)}
		b := &Frame{Width: 1, Height: 1, Pix: make([]byte, 4)}

		slot.Publish(a)
		slot.Publish(b)

		got, ok := slot.Latest()
		if !ok || got != b {
			t.Fatal("expected latest frame to be the last published")
		}
		if a.Seq != 1 || b.Seq != 2 {
			t.Errorf("expected sequence numbers 1 and 2, got %d and %d", a.Seq, b.Seq)
		}
		if slot.Published() != 2 {
			t.Errorf("expected 2 published frames, got %d", slot.Published())
		}
	})

	t.Run("reset", func(t *testing.T) {
		var slot FrameSlot
		slot.Publish(&Frame{Width: 1, Height: 1, Pix: make([]byte, 4)})
		slot.Reset()

		if _, ok := slot.Latest(); ok {
			t.Error("expected reset slot to report not ready")
		}
	})

	t.Run("readers see whole frames", func(t *testing.T) {
		var slot FrameSlot
		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				pix := make([]byte, 16)
				for j := range pix {
					pix[j] = byte(i)
				}
				slot.Publish(&Frame{Width: 2, Height: 2, Pix: pix})
			}
		}()

		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 500 {
					f, ok := slot.Latest()
					if !ok {
						continue
					}
					for _, p := range f.Pix {
						if p != f.Pix[0] {
							t.Error("observed a partially written frame")
							return
						}
					}
				}
			}()
		}
		wg.Wait()
	})
}
