// Package dom declares the host tree the engine runs against. The engine never
// inspects nodes itself, it only passes handles back to these collaborators.
package dom

// Node is an opaque handle to an element in the host tree. Handles must be
// comparable and compare equal only when they refer to the same element
// instance (pointer identity).
type Node any

// ObserveOptions mirrors the subset of mutation observer options the engine needs.
type ObserveOptions struct {
	// Subtree delivers insertions anywhere below the target instead of only
	// direct children.
	Subtree bool
}

// Subscription is a live insertion observer.
type Subscription interface {
	// Disconnect stops delivery synchronously, batches already queued are
	// dropped. Calling it more than once is a no-op.
	Disconnect()
}

// Tree is the read/observe side of the host's node tree.
//
// note: fault injection point
type Tree interface {
	// Path returns the path of the current location.
	Path() string
	// Root is the broad root used to detect in-page navigation.
	Root() Node
	// Children returns the element children of n in document order.
	Children(n Node) []Node
	// QueryAll returns the descendants of n matching selector in document order.
	QueryAll(n Node, selector string) []Node
	// Query returns the first descendant of n matching selector or nil.
	Query(n Node, selector string) Node
	// Matches reports whether n itself matches selector.
	Matches(n Node, selector string) bool
	// Observe delivers batches of inserted nodes through the host scheduler.
	Observe(target Node, opts ObserveOptions, fn func(inserted []Node)) Subscription
}

// Painter applies the visual effect of a visibility decision.
//
// note: fault injection point
type Painter interface {
	// Hide suppresses display without removing the node.
	Hide(n Node) error
	// Show undoes Hide.
	Show(n Node) error
	// Remove detaches the node from the tree.
	Remove(n Node) error
	// SetLabel attaches or updates the counter label on n.
	SetLabel(n Node, text string) error
	// ClearLabel removes the counter label from n if present.
	ClearLabel(n Node) error
}
