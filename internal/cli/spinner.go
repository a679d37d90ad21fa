package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner draws a progress indicator on stderr until stopped or until its
// context ends. The message can change while it runs.
type Spinner struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	out    io.Writer

	mu      sync.Mutex
	message string
	width   int

	stopOnce sync.Once
	stopped  chan struct{}
}

// newSpinnerWithContext creates a spinner bound to ctx.
func newSpinnerWithContext(parent context.Context, message string) *Spinner {
	ctx, cancel := context.WithCancel(parent)
	return &Spinner{
		parent:  parent,
		ctx:     ctx,
		cancel:  cancel,
		out:     os.Stderr,
		message: message,
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// SetMessage replaces the text next to the spinner.
func (s *Spinner) SetMessage(format string, args ...any) {
	s.mu.Lock()
	s.message = fmt.Sprintf(format, args...)
	s.mu.Unlock()
}

// Stop ends the animation and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.stopped
	})
}

// Cancelled reports whether the parent context ended, as opposed to the
// spinner being stopped normally.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.message)
	pad := max(s.width-len(s.message), 0)
	fmt.Fprintf(s.out, "\r%s%s", line, strings.Repeat(" ", pad))
	s.width = len(s.message)
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width+4))
}
