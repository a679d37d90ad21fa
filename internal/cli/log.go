// Package cli implements the graftwood command-line interface.
//
// Commands build trees from documents and databases, resolve their lazy
// branches, browse them interactively and serve them over HTTP. The CLI is
// built using cobra and logs via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - build: Build a source's tree and print it as an outline, JSON, DOT or SVG
//   - expand: Build a tree and resolve the named lazy nodes
//   - explore: Browse a tree in the terminal, resolving branches on demand
//   - serve: Serve tree sessions over HTTP
//   - cache: Manage the fetched document cache
//
// # Configuration
//
// Fan-out limits, SQL macros and clauses, row limits and the cache backend
// are read from $XDG_CONFIG_HOME/graftwood/config.toml (or --config).
// GRAFTWOOD_CACHE, GRAFTWOOD_REDIS_ADDR and GRAFTWOOD_REDIS_PASSWORD
// override the [cache] section.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Built shop.db: 12 nodes, 3 lazy, 0 grafted (41ms)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
