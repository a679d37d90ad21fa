package balance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matzehuels/graftwood/pkg/tree"
)

// ErrInvalidConfig is returned by [Config.Validate] and [New] when a fan-out
// limit is not positive. A zero limit would never make progress, so it is
// rejected before any tree is touched.
var ErrInvalidConfig = errors.New("invalid balance configuration")

// Continuation marker appended to synthesized group labels.
const ellipsis = " …"

// Config bounds the fan-out of each hierarchy level.
type Config struct {
	// MaxChildrenPerLevel[i] is the largest number of children a node may
	// have at level i, where level 0 is the level just above the leaves.
	// Levels beyond the end of the slice use the last entry.
	MaxChildrenPerLevel []int `toml:"max_children_per_level"`

	// LabelTruncateCount is how many child labels a group label shows before
	// the continuation marker.
	LabelTruncateCount int `toml:"label_truncate_count"`
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{MaxChildrenPerLevel: []int{20, 10}, LabelTruncateCount: 3}
}

// Validate reports ErrInvalidConfig for an empty limit list, a non-positive
// limit, a last limit below 2 or a negative truncate count. The last limit
// applies to every higher level, so it must shrink the list on each pass.
func (c Config) Validate() error {
	if len(c.MaxChildrenPerLevel) == 0 {
		return fmt.Errorf("%w: no fan-out limits", ErrInvalidConfig)
	}
	for i, n := range c.MaxChildrenPerLevel {
		if n <= 0 {
			return fmt.Errorf("%w: level %d limit %d must be positive", ErrInvalidConfig, i, n)
		}
	}
	if last := c.MaxChildrenPerLevel[len(c.MaxChildrenPerLevel)-1]; last < 2 {
		return fmt.Errorf("%w: last level limit %d must be at least 2", ErrInvalidConfig, last)
	}
	if c.LabelTruncateCount < 0 {
		return fmt.Errorf("%w: label truncate count %d is negative", ErrInvalidConfig, c.LabelTruncateCount)
	}
	return nil
}

// Limit returns the fan-out limit for a level, clamped to the last entry.
func (c Config) Limit(level int) int {
	if level >= len(c.MaxChildrenPerLevel) {
		return c.MaxChildrenPerLevel[len(c.MaxChildrenPerLevel)-1]
	}
	return c.MaxChildrenPerLevel[level]
}

// Balancer regroups long child lists into a bounded fan-out hierarchy.
// A Balancer holds no per-call state and can be shared.
type Balancer struct {
	cfg   Config
	style tree.Style
}

// New creates a Balancer. The style is applied to every synthetic group node
// it creates. Returns ErrInvalidConfig if cfg does not validate.
func New(cfg Config, style tree.Style) (*Balancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.MaxChildrenPerLevel = append([]int(nil), cfg.MaxChildrenPerLevel...)
	return &Balancer{cfg: cfg, style: style}, nil
}

// MustNew is like [New] but panics on an invalid configuration. Use it for
// configurations that are compiled into the program.
func MustNew(cfg Config, style tree.Style) *Balancer {
	b, err := New(cfg, style)
	if err != nil {
		panic(err)
	}
	return b
}

// Config returns the balancer's configuration.
func (b *Balancer) Config() Config { return b.cfg }

// Balance takes detached, already-built children of one parent (in display
// order) and returns the list of nodes to attach directly under the parent.
//
// If the list fits under the level-0 limit it is returned unchanged.
// Otherwise it is cut into contiguous runs of that size (the last run may be
// shorter), each run becomes the children of a new group node, and the group
// nodes are processed the same way with the next level's limit until the
// list fits. Leaf order is never changed and input nodes are only touched by
// being attached under their group.
//
// Group nodes are created in t with IDs from [tree.Tree.NewID].
func (b *Balancer) Balance(t *tree.Tree, children []string) ([]string, error) {
	level := 0
	current := children
	for len(current) > b.cfg.Limit(level) {
		limit := b.cfg.Limit(level)
		next := make([]string, 0, (len(current)+limit-1)/limit)
		for start := 0; start < len(current); start += limit {
			run := current[start:min(start+limit, len(current))]
			id, err := b.group(t, run)
			if err != nil {
				return nil, err
			}
			next = append(next, id)
		}
		if len(next) >= len(current) && level >= len(b.cfg.MaxChildrenPerLevel)-1 {
			return nil, fmt.Errorf("%w: level %d limit %d does not reduce %d nodes", ErrInvalidConfig, level, limit, len(current))
		}
		current = next
		level++
	}
	return current, nil
}

// Attach balances children and appends the result under parentID.
func (b *Balancer) Attach(t *tree.Tree, parentID string, children []string) error {
	top, err := b.Balance(t, children)
	if err != nil {
		return err
	}
	return t.AddChildren(parentID, top...)
}

func (b *Balancer) group(t *tree.Tree, run []string) (string, error) {
	g, err := t.CreateNode("", t.NewID("group"))
	if err != nil {
		return "", err
	}
	g.Kind = tree.KindGroup
	g.Style = b.style
	g.Label = b.label(t, run)
	g.Meta["size"] = len(run)
	if err := t.AddChildren(g.ID, run...); err != nil {
		return "", err
	}
	return g.ID, nil
}

func (b *Balancer) label(t *tree.Tree, run []string) string {
	n := min(b.cfg.LabelTruncateCount, len(run))
	labels := make([]string, 0, n)
	for _, id := range run[:n] {
		if node, ok := t.Node(id); ok {
			labels = append(labels, node.Label)
		}
	}
	label := strings.Join(labels, ", ")
	if len(run) > n {
		label += ellipsis
	}
	return strings.TrimSpace(label)
}
