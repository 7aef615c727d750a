package playback

import (
	"io"
	"net/http"

	"github.com/charmbracelet/log"
)

// SelectorOptions holds what the [Selector] passes to the engines it builds.
type SelectorOptions struct {
	BaseURL     string
	HTTPClient  *http.Client
	NewEndpoint func() Endpoint // required for local mode
	Logger      *log.Logger
}

// Selector constructs engines from a mode tag. It performs no I/O.
type Selector struct {
	opts SelectorOptions
}

func NewSelector(opts SelectorOptions) *Selector {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Selector{opts: opts}
}

// Create returns an uninitialized engine for mode ("local" or "remote").
func (s *Selector) Create(mode string) (Engine, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	switch m {
	case ModeLocal:
		if s.opts.NewEndpoint == nil {
			return nil, ErrNoEndpoint
		}
		return NewLocalEngine(s.opts.NewEndpoint(), LocalOptions{
			BaseURL:    s.opts.BaseURL,
			HTTPClient: s.opts.HTTPClient,
			Logger:     s.opts.Logger,
		}), nil
	default:
		return NewRemoteEngine(RemoteOptions{
			BaseURL:    s.opts.BaseURL,
			HTTPClient: s.opts.HTTPClient,
			Logger:     s.opts.Logger,
		}), nil
	}
}
