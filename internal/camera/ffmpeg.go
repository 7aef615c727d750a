package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hitx/internal/scanner"
)

var ErrAlreadyStarted = errors.New("camera already started")

// Options configures an [FFmpeg] capture.
type Options struct {
	Binary    string // defaults to "ffmpeg"
	Device    string // platform default when empty
	Format    string // input format, platform default when empty
	Width     int
	Height    int
	Framerate int
	Logger    *log.Logger

	// Command is replaced in tests.
	Command func(name string, args ...string) *exec.Cmd
}

// Stats describes a running capture.
type Stats struct {
	Frames    uint64
	BytesRead uint64
	Running   bool
	LastFrame time.Time
}

// FFmpeg captures frames from a camera through ffmpeg.
type FFmpeg struct {
	opts   Options
	logger *log.Logger
	slot   scanner.FrameSlot

	bytesRead atomic.Uint64
	running   atomic.Bool

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	started bool
	closed  bool
}

// New creates an [FFmpeg] capture. Nothing runs until Start.
func New(opts Options) *FFmpeg {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 720
	}
	if opts.Framerate <= 0 {
		opts.Framerate = 15
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Command == nil {
		opts.Command = exec.Command
	}

	return &FFmpeg{opts: opts, logger: opts.Logger.With("component", "camera")}
}

// Start launches ffmpeg and begins publishing frames.
func (c *FFmpeg) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	args, err := c.args()
	if err != nil {
		return err
	}

	cmd := c.opts.Command(c.opts.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe failed: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg failed to start: %w", err)
	}

	c.cmd = cmd
	c.done = make(chan struct{})
	c.started = true
	c.running.Store(true)

	c.logger.Info("capture started", "pid", cmd.Process.Pid, "device", c.device(), "size", fmt.Sprintf("%dx%d", c.opts.Width, c.opts.Height))
	go c.read(stdout)
	return nil
}

// Latest returns the most recent full frame. It reports false until the first frame arrives.
func (c *FFmpeg) Latest() (*scanner.Frame, bool) {
	return c.slot.Latest()
}

// Close stops ffmpeg and waits for the reader to finish. It is safe to call more than once.
func (c *FFmpeg) Close() error {
	c.mu.Lock()
	if c.closed || !c.started {
		c.closed = true
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cmd, done := c.cmd, c.done
	c.mu.Unlock()

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		c.logger.Debug("failed to kill ffmpeg", "err", err)
	}
	<-done
	c.slot.Reset()
	c.logger.Info("capture stopped", "frames", c.slot.Published())
	return nil
}

// Stats returns capture counters.
func (c *FFmpeg) Stats() Stats {
	st := Stats{
		Frames:    c.slot.Published(),
		BytesRead: c.bytesRead.Load(),
		Running:   c.running.Load(),
	}
	if f, ok := c.slot.Latest(); ok {
		st.LastFrame = f.Timestamp
	}
	return st
}

// read publishes each full frame from r until the stream ends.
//
// Every frame gets a fresh buffer: published frames may still be held by a
// decoder, so buffers are never reused.
func (c *FFmpeg) read(r io.Reader) {
	defer close(c.done)
	defer c.running.Store(false)

	w, h := c.opts.Width, c.opts.Height
	size := w * h * 4

	for {
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				c.logger.Warn("capture read failed", "err", err)
			}
			break
		}

		c.bytesRead.Add(uint64(size))
		c.slot.Publish(&scanner.Frame{Width: w, Height: h, Pix: buf, Timestamp: time.Now()})
	}

	if err := c.cmd.Wait(); err != nil {
		c.logger.Debug("ffmpeg exited", "err", err)
	}
}

func (c *FFmpeg) device() string {
	if c.opts.Device != "" {
		return c.opts.Device
	}
	switch runtime.GOOS {
	case "linux":
		return "/dev/video0"
	case "darwin":
		return "0"
	default:
		return "video=Integrated Camera"
	}
}

// args builds the ffmpeg arguments for capturing raw RGBA frames to stdout.
func (c *FFmpeg) args() ([]string, error) {
	format := c.opts.Format
	if format == "" {
		switch runtime.GOOS {
		case "linux":
			format = "v4l2"
		case "darwin":
			format = "avfoundation"
		case "windows":
			format = "dshow"
		default:
			return nil, fmt.Errorf("no default camera input format for %s", runtime.GOOS)
		}
	}

	size := strconv.Itoa(c.opts.Width) + "x" + strconv.Itoa(c.opts.Height)
	return []string{
		"-nostdin", "-loglevel", "error",
		"-f", format,
		"-framerate", strconv.Itoa(c.opts.Framerate),
		"-video_size", size,
		"-i", c.device(),
		"-vf", "scale=" + strconv.Itoa(c.opts.Width) + ":" + strconv.Itoa(c.opts.Height),
		"-pix_fmt", "rgba",
		"-f", "rawvideo",
		"-",
	}, nil
}
