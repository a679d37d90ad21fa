package tree

// MountState is the resolution state of a [MountPoint].
type MountState int

const (
	// MountUnresolved is the initial state: the subtree has not been fetched.
	MountUnresolved MountState = iota
	// MountResolved means the subtree was grafted. Resolved mount points are
	// removed from their node, so this state is only observed transiently.
	MountResolved
	// MountFailed means the last resolution attempt failed. The node keeps
	// its placeholder label and no children; resolving again retries.
	MountFailed
)

func (s MountState) String() string {
	switch s {
	case MountResolved:
		return "resolved"
	case MountFailed:
		return "failed"
	default:
		return "unresolved"
	}
}

// MountPoint describes how to fetch a node's not-yet-materialized subtree.
type MountPoint struct {
	// Continuation is an opaque token handed back to a provider, by
	// convention "<documentURL>?key=value&...".
	Continuation string
	// Eager mount points are resolved while the tree is built; lazy ones on
	// demand.
	Eager bool
	State MountState
	// Err holds the diagnostic of the last failed resolution.
	Err error
}
