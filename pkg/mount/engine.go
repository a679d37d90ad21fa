package mount

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/observability"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// Engine builds trees through providers and grafts resolved mount points
// into them.
//
// An Engine holds no per-tree state. Trees themselves are not safe for
// concurrent use, so callers serialize Resolve calls on the same tree (and
// on the same provider, whose backend session is shared).
type Engine struct {
	Router Router
	Hooks  observability.MountHooks
	Logger *log.Logger
	Sink   Sink
}

// NewEngine creates an engine that routes sources with r. A nil logger uses
// log.Default(); diagnostics go to a [LogSink] on that logger.
func NewEngine(r Router, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		Router: r,
		Hooks:  observability.Mount(),
		Logger: logger,
		Sink:   LogSink{Logger: logger},
	}
}

// Open builds the tree for a top-level request. When the provider is
// [Guarded], a source equal to the one it was last opened with is refused
// with RECURSION_DETECTED before the backend is touched.
func (e *Engine) Open(ctx context.Context, source string, params map[string]string) (*tree.Tree, error) {
	if err := errs.ValidateSource(source); err != nil {
		return nil, err
	}
	p, err := e.provider(source)
	if err != nil {
		return nil, err
	}
	if g, ok := p.(Guarded); ok {
		if err := g.Guard().Enter(source); err != nil {
			err = errs.Wrap(errs.ErrCodeRecursion, err, "%s refused to reopen %s", p.Name(), source)
			e.sink().Message(errs.UserMessage(err))
			return nil, err
		}
	}
	return e.build(ctx, p, source, params, nil)
}

// Leave tells a [Guarded] provider that the top-level document source is no
// longer shown, so a later Open of the same source is allowed again.
func (e *Engine) Leave(source string) {
	p, err := e.provider(source)
	if err != nil {
		return
	}
	if g, ok := p.(Guarded); ok {
		g.Guard().Leave(source)
	}
}

// Build builds the tree for source without consulting the recursion guard
// and resolves its eager mount points.
func (e *Engine) Build(ctx context.Context, source string, params map[string]string) (*tree.Tree, error) {
	p, err := e.provider(source)
	if err != nil {
		return nil, err
	}
	return e.build(ctx, p, source, params, nil)
}

func (e *Engine) build(ctx context.Context, p Provider, source string, params map[string]string, base *url.URL) (*tree.Tree, error) {
	c, err := ParseContinuation(source)
	if err != nil {
		return nil, err
	}
	merged := c.Values()
	maps.Copy(merged, params)

	ctx = withBuilding(ctx, Canonical(source))
	hooks := e.hooks()
	hooks.OnBuildStart(ctx, p.Name(), source)
	start := time.Now()

	t, err := p.BuildTree(ctx, Request{Source: source, Base: base, Params: merged, Sink: e.sink()})
	if err == nil && t == nil {
		err = errs.New(errs.ErrCodeBackendUnavailable, "%s returned no tree for %s", p.Name(), source)
	}
	nodes := 0
	if t != nil {
		nodes = t.NodeCount()
	}
	hooks.OnBuildComplete(ctx, p.Name(), source, nodes, time.Since(start), err)
	if err != nil {
		if errs.GetCode(err) == "" {
			err = errs.Wrap(errs.ErrCodeBackendUnavailable, err, "%s could not build %s", p.Name(), source)
		}
		return nil, err
	}

	e.absolutize(t)
	e.logger().Debug("built tree", "provider", p.Name(), "source", source, "nodes", nodes, "duration", time.Since(start))

	if err := e.ResolveEager(ctx, t); err != nil {
		e.logger().Debug("eager mounts failed", "source", source, "error", err)
	}
	return t, nil
}

// Resolve fetches the subtree of a mount point and grafts it below the
// placeholder.
//
// The continuation is first checked against the tree's own source, the
// origins recorded on the placeholder's ancestor chain and the documents
// currently being built further up the call stack; a match fails with
// RECURSION_DETECTED without calling any provider. Otherwise the provider is
// invoked and its tree grafted as the placeholder's sole child.
//
// On failure the placeholder keeps its label and stays childless, its mount
// point moves to [tree.MountFailed], the diagnostic is sent to the sink and
// returned. Resolving a failed mount point again retries it. Resolving a node
// whose mount was already grafted is a no-op.
func (e *Engine) Resolve(ctx context.Context, t *tree.Tree, placeholderID string) error {
	n, ok := t.Node(placeholderID)
	if !ok {
		return errs.New(errs.ErrCodeNotFound, "node %s not found", placeholderID)
	}
	if n.Mount == nil {
		if len(t.Children(placeholderID)) > 0 {
			return nil
		}
		return errs.New(errs.ErrCodeNotMountable, "node %s has no mount point", placeholderID)
	}
	mp := n.Mount

	target, err := ResolveReference(t.Source(), mp.Continuation)
	if err != nil {
		return e.fail(ctx, "", mp, errs.Wrap(errs.ErrCodeMountFailed, err, "cannot mount %q at %s", mp.Continuation, placeholderID))
	}
	if origin := e.recursion(ctx, t, placeholderID, Canonical(target)); origin != "" {
		return e.fail(ctx, "", mp, errs.New(errs.ErrCodeRecursion, "%s at %s mounts %s again", target, placeholderID, origin))
	}

	p, err := e.provider(target)
	if err != nil {
		return e.fail(ctx, "", mp, errs.Wrap(errs.ErrCodeMountFailed, err, "cannot mount %s at %s", target, placeholderID))
	}

	start := time.Now()
	sub, err := e.build(ctx, p, target, nil, documentURL(t.Source()))
	if err != nil {
		return e.fail(ctx, p.Name(), mp, errs.Wrap(errs.ErrCodeMountFailed, err, "cannot mount %s at %s", target, placeholderID))
	}
	if _, err := t.Graft(placeholderID, sub); err != nil {
		return e.fail(ctx, p.Name(), mp, errs.Wrap(errs.ErrCodeMountFailed, err, "cannot graft %s at %s", target, placeholderID))
	}

	mp.State, mp.Err = tree.MountResolved, nil
	e.hooks().OnMountResolved(ctx, p.Name(), target, mp.Eager, time.Since(start))
	e.logger().Debug("mounted", "node", placeholderID, "continuation", target, "nodes", sub.NodeCount())
	return nil
}

// ResolveEager drains the tree's queue of eager mount points in the order
// they were queued, including eager mounts queued by the grafts themselves.
// Failures leave their placeholders in the failed state; the joined errors
// are returned after the queue is empty.
func (e *Engine) ResolveEager(ctx context.Context, t *tree.Tree) error {
	var failed []error
	for pending := t.TakePendingMounts(); len(pending) > 0; pending = t.TakePendingMounts() {
		for _, id := range pending {
			n, ok := t.Node(id)
			if !ok || n.Mount == nil {
				continue
			}
			if err := e.Resolve(ctx, t, id); err != nil {
				failed = append(failed, err)
			}
		}
	}
	return errors.Join(failed...)
}

// ExpandAll resolves lazy mount points level by level: each round resolves
// every unresolved mount point present when the round starts, for at most
// rounds rounds. Mount points that failed before or during the call are not
// retried. It returns the number of mount points grafted.
func (e *Engine) ExpandAll(ctx context.Context, t *tree.Tree, rounds int) (int, error) {
	var failed []error
	resolved := 0
	for range rounds {
		var todo []string
		for _, id := range t.MountPoints() {
			if n, _ := t.Node(id); n.Mount.State != tree.MountFailed {
				todo = append(todo, id)
			}
		}
		if len(todo) == 0 {
			break
		}
		for _, id := range todo {
			if err := ctx.Err(); err != nil {
				return resolved, err
			}
			if err := e.Resolve(ctx, t, id); err != nil {
				failed = append(failed, err)
				continue
			}
			resolved++
		}
	}
	return resolved, errors.Join(failed...)
}

func (e *Engine) fail(ctx context.Context, provider string, mp *tree.MountPoint, err error) error {
	mp.State, mp.Err = tree.MountFailed, err
	e.sink().Message(errs.UserMessage(err))
	e.hooks().OnMountFailed(ctx, provider, mp.Continuation, string(errs.GetCode(err)))
	return err
}

// recursion returns the source that key repeats, or "".
func (e *Engine) recursion(ctx context.Context, t *tree.Tree, placeholderID, key string) string {
	if Canonical(t.Source()) == key {
		return t.Source()
	}
	chain := append([]string{placeholderID}, t.Ancestors(placeholderID)...)
	for _, id := range chain {
		n, _ := t.Node(id)
		if origin, ok := n.Meta[tree.MetaOrigin].(string); ok && Canonical(origin) == key {
			return origin
		}
	}
	for _, src := range building(ctx) {
		if src == key {
			return src
		}
	}
	return ""
}

// absolutize rewrites relative continuations against the tree's source so
// they stay meaningful after the tree is grafted into another document.
func (e *Engine) absolutize(t *tree.Tree) {
	for _, id := range t.MountPoints() {
		n, _ := t.Node(id)
		if abs, err := ResolveReference(t.Source(), n.Mount.Continuation); err == nil {
			n.Mount.Continuation = abs
		}
	}
}

func (e *Engine) provider(source string) (Provider, error) {
	if e.Router == nil {
		return nil, errs.New(errs.ErrCodeInternal, "engine has no router")
	}
	p, err := e.Router.ProviderFor(source)
	if err != nil {
		if errs.GetCode(err) == "" {
			err = errs.Wrap(errs.ErrCodeUnsupportedSource, err, "no provider for %s", source)
		}
		return nil, err
	}
	return p, nil
}

func (e *Engine) hooks() observability.MountHooks {
	if e.Hooks == nil {
		return observability.Mount()
	}
	return e.Hooks
}

func (e *Engine) logger() *log.Logger {
	if e.Logger == nil {
		return log.Default()
	}
	return e.Logger
}

func (e *Engine) sink() Sink {
	if e.Sink == nil {
		return LogSink{Logger: e.logger()}
	}
	return e.Sink
}

func documentURL(source string) *url.URL {
	doc := DocumentKey(source)
	if doc == "" {
		return nil
	}
	u, err := url.Parse(doc)
	if err != nil {
		return nil
	}
	return u
}

type buildingKey struct{}

// withBuilding records source on the chain of documents being built.
func withBuilding(ctx context.Context, source string) context.Context {
	chain := building(ctx)
	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, buildingKey{}, append(next, source))
}

func building(ctx context.Context) []string {
	chain, _ := ctx.Value(buildingKey{}).([]string)
	return chain
}

// Describe summarizes a mount point for status lines.
func Describe(mp *tree.MountPoint) string {
	if mp == nil {
		return ""
	}
	mode := "lazy"
	if mp.Eager {
		mode = "eager"
	}
	if mp.State == tree.MountFailed && mp.Err != nil {
		return fmt.Sprintf("%s %s (%s: %s)", mode, mp.Continuation, mp.State, errs.UserMessage(mp.Err))
	}
	return fmt.Sprintf("%s %s (%s)", mode, mp.Continuation, mp.State)
}
