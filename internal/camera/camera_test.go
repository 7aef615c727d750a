package camera

import (
	"context"
	"os"
	"os/exec"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/hitx/internal/scanner"
	tu "github.com/desertthunder/hitx/internal/testing"
)

var _ scanner.FrameSource = (*FFmpeg)(nil)
var _ scanner.FrameSource = (*Still)(nil)

// TestHelperProcess writes two 2x2 RGBA frames and then idles, like a camera would.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("HITX_HELPER_PROCESS") != "1" {
		return
	}

	frame := make([]byte, 2*2*4)
	for i := range frame {
		frame[i] = 0x7f
	}
	os.Stdout.Write(frame)
	os.Stdout.Write(frame)
	time.Sleep(time.Minute)
	os.Exit(0)
}

func helperCommand(name string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "HITX_HELPER_PROCESS=1")
	return cmd
}

func TestFFmpeg(t *testing.T) {
	t.Run("publishes frames", func(t *testing.T) {
		cam := New(Options{Width: 2, Height: 2, Format: "v4l2", Command: helperCommand})

		if _, ok := cam.Latest(); ok {
			t.Fatal("expected no frame before start")
		}
		if err := cam.Start(context.Background()); err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		defer cam.Close()

		deadline := time.Now().Add(5 * time.Second)
		for cam.Stats().Frames < 2 {
			if time.Now().After(deadline) {
				t.Fatalf("expected two frames, got %d", cam.Stats().Frames)
			}
			time.Sleep(10 * time.Millisecond)
		}

		f, ok := cam.Latest()
		if !ok {
			t.Fatal("expected a frame")
		}
		if f.Width != 2 || f.Height != 2 || !f.Valid() || f.Seq != 2 {
			t.Errorf("unexpected frame %+v", f)
		}
		if st := cam.Stats(); !st.Running || st.BytesRead != 32 {
			t.Errorf("unexpected stats %+v", st)
		}
	})

	t.Run("close stops capture", func(t *testing.T) {
		cam := New(Options{Width: 2, Height: 2, Format: "v4l2", Command: helperCommand})
		if err := cam.Start(context.Background()); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		if err := cam.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := cam.Close(); err != nil {
			t.Errorf("unexpected error on second close: %v", err)
		}
		if cam.Stats().Running {
			t.Error("expected capture to be stopped")
		}
		if _, ok := cam.Latest(); ok {
			t.Error("expected no frame after close")
		}
	})

	t.Run("start twice", func(t *testing.T) {
		cam := New(Options{Width: 2, Height: 2, Format: "v4l2", Command: helperCommand})
		if err := cam.Start(context.Background()); err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		defer cam.Close()

		if err := cam.Start(context.Background()); err != ErrAlreadyStarted {
			t.Errorf("expected ErrAlreadyStarted, got %v", err)
		}
	})

	t.Run("args", func(t *testing.T) {
		cam := New(Options{Device: "/dev/video2", Format: "v4l2", Width: 640, Height: 480, Framerate: 30})
		args, err := cam.args()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{"/dev/video2", "640x480", "30", "rgba", "rawvideo", "scale=640:480"} {
			if !slices.Contains(args, want) {
				t.Errorf("expected %q in %v", want, args)
			}
		}
		if args[len(args)-1] != "-" {
			t.Errorf("expected output to stdout, got %v", args)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		cam := New(Options{})
		if cam.opts.Width != 1280 || cam.opts.Height != 720 || cam.opts.Framerate != 15 {
			t.Errorf("unexpected defaults %+v", cam.opts)
		}
	})
}

func TestStill(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := tu.WriteQRFile(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", false)
		still := NewStill(path)

		if err := still.Start(context.Background()); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		f, ok := still.Latest()
		if !ok || f.Width != 512 || f.Height != 512 {
			t.Fatalf("unexpected frame %v %v", f, ok)
		}

		still.Close()
		if _, ok := still.Latest(); ok {
			t.Error("expected no frame after close")
		}
	})

	t.Run("decodes through the scanner", func(t *testing.T) {
		img := tu.QRImage(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", 400, true)
		still := NewStillImage(img)
		if err := still.Start(context.Background()); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		f, _ := still.Latest()
		res, ok := scanner.NewDecoder(scanner.DecoderOptions{}).DecodeInverted(f)
		if !ok || res.Payload != "spotify:track:4uLU6hMCjMI75M1A2tKUQC" {
			t.Errorf("expected inverted card to decode, got %+v %v", res, ok)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if err := NewStill("/does/not/exist.png").Start(context.Background()); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("not an image", func(t *testing.T) {
		path := t.TempDir() + "/card.png"
		os.WriteFile(path, []byte("not a png"), 0644)

		if _, err := LoadImage(path); err == nil {
			t.Error("expected decode error")
		}
	})
}
