package scanner

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// FrameSource yields raw decoded QR strings until io.EOF.
// The consumer may stop calling Next at any time.
type FrameSource interface {
	Next(ctx context.Context) (string, error)
}

// LineSource reads one frame per line, e.g. from a keyboard-wedge reader.
// Close stops it; a read already blocked in the underlying reader ends with
// that read.
type LineSource struct {
	lines   chan string
	errc    chan error
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewLineSource(r io.Reader) *LineSource {
	s := &LineSource{
		lines:   make(chan string),
		errc:    make(chan error, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.read(r)
	return s
}

func (s *LineSource) read(r io.Reader) {
	defer close(s.stopped)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case s.lines <- line:
		case <-s.done:
			return
		}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	s.errc <- err
	close(s.lines)
}

// Close ends the stream; later calls to Next return io.EOF.
func (s *LineSource) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *LineSource) Next(ctx context.Context) (string, error) {
	select {
	case <-s.done:
		return "", io.EOF
	default:
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", io.EOF
	case line, ok := <-s.lines:
		if !ok {
			return "", <-s.errc
		}
		return line, nil
	}
}

// ChanSource is fed by another goroutine through Push. Frames that arrive
// while the buffer is full are dropped.
type ChanSource struct {
	frames chan string
	done   chan struct{}
}

func NewChanSource(buffer int) *ChanSource {
	if buffer < 1 {
		buffer = 1
	}
	return &ChanSource{
		frames: make(chan string, buffer),
		done:   make(chan struct{}),
	}
}

// Push enqueues a frame and reports whether it was kept.
func (s *ChanSource) Push(raw string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.frames <- raw:
		return true
	default:
		return false
	}
}

// Close ends the stream; Next returns io.EOF once the buffer is drained.
func (s *ChanSource) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *ChanSource) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case raw := <-s.frames:
		return raw, nil
	case <-s.done:
		select {
		case raw := <-s.frames:
			return raw, nil
		default:
			return "", io.EOF
		}
	}
}
