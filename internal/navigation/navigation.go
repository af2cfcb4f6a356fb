// Package navigation detects same-document location changes, the kind a
// single-page site makes when it swaps its content without a reload.
package navigation

import (
	"feedwarden/internal/assert"
	"feedwarden/internal/components/telemetry"
	"feedwarden/internal/dom"
)

const report_watcher_transition = "watcher.transition"

// Transition is a change of location path. The first transition emitted by a
// watcher is Initial and has no From.
type Transition struct {
	Initial bool
	From    string
	To      string
}

// Watcher compares the location path after every batch of mutations under the
// tree's root and emits a Transition whenever it differs from the last one seen.
type Watcher struct {
	tree dom.Tree
	tel  telemetry.API

	sub     dom.Subscription
	last    string
	running bool
	emit    func(Transition)
}

func NewWatcher(tree dom.Tree, tel telemetry.API) *Watcher {
	assert.NotNil(tree)
	if tel == nil {
		tel = telemetry.Nop{}
	}
	return &Watcher{
		tree: tree,
		tel:  telemetry.NewScopedAPI("navigation", tel),
	}
}

// Start begins watching and synchronously emits the initial transition to the
// current path. Starting a running watcher is a no-op.
func (w *Watcher) Start(emit func(Transition)) {
	if w.running {
		return
	}
	w.running = true
	w.emit = emit
	w.last = w.tree.Path()
	w.sub = w.tree.Observe(w.tree.Root(), dom.ObserveOptions{Subtree: true}, func([]dom.Node) {
		w.check()
	})

	w.tel.ReportDebug(report_watcher_transition, "", w.last)
	emit(Transition{Initial: true, To: w.last})
}

// check compares the current path against the last one seen, it runs after
// every mutation batch.
func (w *Watcher) check() {
	if !w.running {
		return
	}
	current := w.tree.Path()
	if current == w.last {
		return
	}
	t := Transition{From: w.last, To: current}
	w.last = current
	w.tel.ReportDebug(report_watcher_transition, t.From, t.To)
	w.emit(t)
}

// Stop disconnects the mutation subscription, no transition is emitted after
// it returns.
func (w *Watcher) Stop() {
	if !w.running {
		return
	}
	w.running = false
	w.sub.Disconnect()
	w.sub = nil
	w.emit = nil
}

// Path is the last path the watcher recorded.
func (w *Watcher) Path() string {
	return w.last
}
