package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/desertthunder/hitx/internal/scanner"
)

// Still serves one image as if it were a camera holding a card perfectly still.
type Still struct {
	path string
	img  image.Image
	slot scanner.FrameSlot
}

// NewStill creates a [Still] that decodes the image at path on Start.
func NewStill(path string) *Still {
	return &Still{path: path}
}

// NewStillImage creates a [Still] over an already decoded image.
func NewStillImage(img image.Image) *Still {
	return &Still{img: img}
}

func (s *Still) Start(ctx context.Context) error {
	img := s.img
	if img == nil {
		var err error
		if img, err = LoadImage(s.path); err != nil {
			return err
		}
	}

	s.slot.Publish(scanner.FrameFromImage(img))
	return nil
}

func (s *Still) Latest() (*scanner.Frame, bool) {
	return s.slot.Latest()
}

func (s *Still) Close() error {
	s.slot.Reset()
	return nil
}

// LoadImage decodes a PNG, JPEG or GIF file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}
