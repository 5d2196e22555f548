// Package scope models the view tree of the shell. Each Node expects a number of
// children; it becomes complete once it is ready itself and all expected children
// are complete, and then reports to its parent. Nodes also hold the named slots
// observers deliver into.
package scope

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/spf13/cast"

	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/observable"
	"github.com/looplj/shellstate/internal/pkg/xmap"
)

// Node is one scope in the tree. The parent pointer is a back-reference; a node's
// lifetime is governed by Destroy on it or on an ancestor.
type Node struct {
	name     string
	parent   *Node
	expected int

	mu             sync.Mutex
	self           bool
	readyChildren  int
	complete       bool
	destroyed      bool
	children       []*Node
	readyHooks     []func(ctx context.Context)
	teardowns      []func()
	refreshHandler func(ctx context.Context, n *Node)

	slots     *xmap.Map[string, any]
	refreshes atomic.Int64
}

// NewRoot creates a root node that completes once expectedChildren children complete.
func NewRoot(name string, expectedChildren int) *Node {
	return newNode(name, nil, expectedChildren)
}

func newNode(name string, parent *Node, expected int) *Node {
	if expected < 0 {
		panic("scope.Node: expected children must not be negative")
	}

	return &Node{
		name:     name,
		parent:   parent,
		expected: expected,
		slots:    xmap.New[string, any](),
	}
}

// NewChild attaches a child node.
func (n *Node) NewChild(name string, expectedChildren int) *Node {
	child := newNode(name, n, expectedChildren)

	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()

	return child
}

func (n *Node) Name() string {
	return n.name
}

// Parent returns the parent node, nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Path returns the names from the root down to n, joined by "/".
func (n *Node) Path() string {
	if n.parent == nil {
		return n.name
	}

	return n.parent.Path() + "/" + n.name
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	return slices.Clone(n.children)
}

// MarkReady marks the node itself as ready. When this completes the node, ready hooks
// run and the parent is informed. Repeated calls are ignored.
func (n *Node) MarkReady(ctx context.Context) {
	n.mu.Lock()
	if n.self || n.destroyed {
		n.mu.Unlock()
		return
	}

	n.self = true
	done := n.tryCompleteLocked()
	n.mu.Unlock()

	if done {
		n.completed(ctx)
	}
}

func (n *Node) childCompleted(ctx context.Context) {
	n.mu.Lock()
	if n.destroyed {
		n.mu.Unlock()
		return
	}

	n.readyChildren++
	done := n.tryCompleteLocked()
	n.mu.Unlock()

	if done {
		n.completed(ctx)
	}
}

func (n *Node) tryCompleteLocked() bool {
	if n.complete || !n.self || n.readyChildren < n.expected {
		return false
	}

	n.complete = true

	return true
}

func (n *Node) completed(ctx context.Context) {
	n.mu.Lock()
	hooks := slices.Clone(n.readyHooks)
	n.mu.Unlock()

	log.Debug(ctx, "scope ready", log.String("scope", n.Path()))

	for _, hook := range hooks {
		hook(ctx)
	}

	if n.parent != nil {
		n.parent.childCompleted(ctx)
	}
}

// Ready reports whether the node and all expected children are ready.
func (n *Node) Ready() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.complete
}

// Pending returns how many expected children have not completed yet.
func (n *Node) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return max(n.expected-n.readyChildren, 0)
}

// OnReady registers fn to run once when the node completes. If the node is already
// complete, fn runs immediately.
func (n *Node) OnReady(ctx context.Context, fn func(ctx context.Context)) {
	n.mu.Lock()
	if !n.complete {
		n.readyHooks = append(n.readyHooks, fn)
		n.mu.Unlock()

		return
	}
	n.mu.Unlock()

	fn(ctx)
}

// OnRefresh sets the handler invoked by Refresh.
func (n *Node) OnRefresh(fn func(ctx context.Context, n *Node)) {
	n.mu.Lock()
	n.refreshHandler = fn
	n.mu.Unlock()
}

// Assign stores value under slot.
func (n *Node) Assign(slot string, value any) {
	n.slots.Store(slot, value)
}

// Slot returns the value stored under slot.
func (n *Node) Slot(slot string) (any, bool) {
	return n.slots.Load(slot)
}

// Slots returns a copy of all slots.
func (n *Node) Slots() map[string]any {
	return n.slots.Snapshot()
}

func (n *Node) String(slot string) string {
	v, _ := n.slots.Load(slot)
	return cast.ToString(v)
}

func (n *Node) Int(slot string) int {
	v, _ := n.slots.Load(slot)
	return cast.ToInt(v)
}

func (n *Node) Bool(slot string) bool {
	v, _ := n.slots.Load(slot)
	return cast.ToBool(v)
}

// Refresh counts a re-render request and forwards it to the refresh handler.
func (n *Node) Refresh(ctx context.Context) {
	n.refreshes.Add(1)

	n.mu.Lock()
	fn := n.refreshHandler
	n.mu.Unlock()

	if fn != nil {
		fn(ctx, n)
	}
}

// Refreshes returns the number of Refresh calls.
func (n *Node) Refreshes() int64 {
	return n.refreshes.Load()
}

// Defer registers fn to run on Destroy. Teardowns run in reverse registration order.
// On a destroyed node fn runs immediately.
func (n *Node) Defer(fn func()) {
	n.mu.Lock()
	if !n.destroyed {
		n.teardowns = append(n.teardowns, fn)
		n.mu.Unlock()

		return
	}
	n.mu.Unlock()

	fn()
}

// Track releases h when the node is destroyed.
func (n *Node) Track(h observable.Handle) {
	n.Defer(h.Unsubscribe)
}

// Destroy tears down children, newest first, then runs this node's teardowns.
// The node is detached from the tree and stops counting readiness.
func (n *Node) Destroy() {
	n.mu.Lock()
	if n.destroyed {
		n.mu.Unlock()
		return
	}

	n.destroyed = true
	children := n.children
	teardowns := n.teardowns
	n.children = nil
	n.teardowns = nil
	n.readyHooks = nil
	n.refreshHandler = nil
	n.mu.Unlock()

	for _, child := range slices.Backward(children) {
		child.Destroy()
	}

	for _, fn := range slices.Backward(teardowns) {
		fn()
	}

	n.slots.Clear()

	if n.parent != nil {
		n.parent.detach(n)
	}
}

func (n *Node) detach(child *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.children = slices.DeleteFunc(n.children, func(c *Node) bool { return c == child })
}

// Destroyed reports whether Destroy has run.
func (n *Node) Destroyed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.destroyed
}
