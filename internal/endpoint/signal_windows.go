//go:build windows

package endpoint

import "os"

func suspend(p *os.Process) error { return ErrUnsupportedPlatform }

func resume(p *os.Process) error { return ErrUnsupportedPlatform }
