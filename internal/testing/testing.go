// package testing contains shared testing utilities: token and I/O doubles, QR fixtures and file assertions
package testing

import (
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

var ErrWrite = errors.New("write failed")

// TokenSource is an [oauth2.TokenSource] test double that counts calls and can be made to fail.
type TokenSource struct {
	mu    sync.Mutex
	token string
	err   error
	calls int
}

// NewTokenSource returns a [TokenSource] handing out token.
func NewTokenSource(token string) *TokenSource {
	return &TokenSource{token: token}
}

func (s *TokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

// Fail makes every later Token call return err.
func (s *TokenSource) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls reports how many times Token was called.
func (s *TokenSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FWriter fails every write with [ErrWrite].
type FWriter struct{}

func (FWriter) Write([]byte) (int, error) { return 0, ErrWrite }

// LimitedWriter passes the first n writes through to target and fails the rest with [ErrWrite].
type LimitedWriter struct {
	n      int
	target io.Writer
}

// NewLimitedWriter allows max writes, minus those already counted as used.
func NewLimitedWriter(max, used int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{n: max - used, target: target}
}

func (l *LimitedWriter) Write(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, ErrWrite
	}
	l.n--
	return l.target.Write(p)
}

// AssertFileExists fails t when path is missing or is a directory.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	switch {
	case err != nil:
		t.Errorf("expected file %s: %v", path, err)
	case info.IsDir():
		t.Errorf("expected file, %s is a directory", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}
