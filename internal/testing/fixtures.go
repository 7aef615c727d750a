package testing

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/skip2/go-qrcode"
)

// QRImage renders content as a size x size QR code. When inverted is set the
// code is drawn light-on-dark, like the inverted card style.
func QRImage(t *testing.T, content string, size int, inverted bool) image.Image {
	t.Helper()

	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		t.Fatalf("failed to encode QR code: %v", err)
	}

	if inverted {
		q.ForegroundColor = color.White
		q.BackgroundColor = color.Black
	}

	return q.Image(size)
}

// WriteQRFile writes a QR code PNG into a temp directory and returns its path.
func WriteQRFile(t *testing.T, content string, inverted bool) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "card.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create QR file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, QRImage(t, content, 512, inverted)); err != nil {
		t.Fatalf("failed to write QR file: %v", err)
	}
	return path
}
