// Package orchestrator owns the engine's lifecycle across in-page
// navigation: it waits for the feed container whenever the location enters a
// feed page and keeps exactly one feed observer attached to it until the
// location changes again.
package orchestrator

import (
	"feedwarden/internal/assert"
	"feedwarden/internal/components/dispatch"
	"feedwarden/internal/components/telemetry"
	"feedwarden/internal/counter"
	"feedwarden/internal/dom"
	"feedwarden/internal/feed"
	"feedwarden/internal/kv"
	"feedwarden/internal/navigation"
	"feedwarden/internal/poller"
)

const (
	report_orchestrator_activate   = "orchestrator.activate"
	report_orchestrator_transition = "orchestrator.transition"
)

type Options struct {
	Scheduler  dispatch.Scheduler
	Tree       dom.Tree
	Painter    dom.Painter
	Classifier feed.Classifier

	Storage kv.Store
	Counter counter.Options

	// Match reports whether the feed is shown on a path.
	Match             func(path string) bool
	ContainerSelector string
	Threshold         int
	Poll              poller.Options

	// OnAttach is called after every successful attach.
	OnAttach func(container dom.Node)
	// OnSkip is called when an activation cycle is given up, either because
	// the container never appeared or because attaching failed.
	OnSkip func(err error)

	Tel telemetry.API
}

type Orchestrator struct {
	sched    dispatch.Scheduler
	tree     dom.Tree
	match    func(string) bool
	selector string
	poll     poller.Options
	onAttach func(dom.Node)
	onSkip   func(error)
	tel      telemetry.API

	store    *counter.Store
	watcher  *navigation.Watcher
	observer *feed.Observer
	wait     *poller.Wait
	running  bool
}

func New(opts Options) *Orchestrator {
	assert.NotNil(opts.Scheduler)
	assert.NotNil(opts.Tree)
	assert.NotNil(opts.Storage)
	assert.NotNil(opts.Match)
	assert.NotEmptyStr(opts.ContainerSelector)

	tel := opts.Tel
	if tel == nil {
		tel = telemetry.Nop{}
	}
	counterOpts := opts.Counter
	if counterOpts.Tel == nil {
		counterOpts.Tel = tel
	}
	store := counter.NewStore(opts.Storage, counterOpts)

	return &Orchestrator{
		sched:    opts.Scheduler,
		tree:     opts.Tree,
		match:    opts.Match,
		selector: opts.ContainerSelector,
		poll:     opts.Poll,
		onAttach: opts.OnAttach,
		onSkip:   opts.OnSkip,
		tel:      telemetry.NewScopedAPI("orchestrator", tel),
		store:    store,
		watcher:  navigation.NewWatcher(opts.Tree, tel),
		observer: feed.NewObserver(feed.Options{
			Tree:       opts.Tree,
			Painter:    opts.Painter,
			Classifier: opts.Classifier,
			Counters:   store,
			Threshold:  opts.Threshold,
			Tel:        tel,
		}),
	}
}

// Counters is the counter store shared by every activation cycle.
func (o *Orchestrator) Counters() *counter.Store {
	return o.store
}

// Observer exposes the feed observer, mostly for inspection.
func (o *Orchestrator) Observer() *feed.Observer {
	return o.observer
}

// Waiting reports whether an activation cycle is still looking for its container.
func (o *Orchestrator) Waiting() bool {
	return o.wait != nil
}

// Start begins watching navigation, the current page is handled right away.
func (o *Orchestrator) Start() {
	if o.running {
		return
	}
	o.running = true
	o.watcher.Start(o.transition)
}

// Stop tears down the current activation cycle and stops watching. No timer
// or subscription is left behind.
func (o *Orchestrator) Stop() {
	if !o.running {
		return
	}
	o.running = false
	o.teardown()
	o.watcher.Stop()
}

func (o *Orchestrator) transition(t navigation.Transition) {
	o.teardown()
	matched := o.match(t.To)
	o.tel.ReportDebug(report_orchestrator_transition, t.From, t.To, matched)
	if matched {
		o.activate(t.To)
	}
}

func (o *Orchestrator) teardown() {
	if o.wait != nil {
		o.wait.Cancel()
		o.wait = nil
	}
	o.observer.Detach()
}

func (o *Orchestrator) locate() (dom.Node, error) {
	container := o.tree.Query(o.tree.Root(), o.selector)
	if container == nil {
		return nil, poller.ErrNotReady
	}
	return container, nil
}

func (o *Orchestrator) activate(path string) {
	o.wait = poller.WaitFor(o.sched, o.poll, o.locate, func(container dom.Node, err error) {
		o.wait = nil
		if err != nil {
			o.tel.ReportWarning(report_orchestrator_activate, err, path)
			o.skip(err)
			return
		}

		err = o.observer.Attach(container)
		if err != nil {
			o.teardown()
			o.tel.ReportWarning(report_orchestrator_activate, err, path)
			o.skip(err)
			return
		}
		if o.onAttach != nil {
			o.onAttach(container)
		}
	})
}

func (o *Orchestrator) skip(err error) {
	if o.onSkip != nil {
		o.onSkip(err)
	}
}

// Exclude marks id as not interesting and hides it wherever it is shown.
func (o *Orchestrator) Exclude(id string) error {
	err := o.store.Exclude(id)
	o.observer.Refresh(id)
	return err
}

// Unexclude reverses Exclude.
func (o *Orchestrator) Unexclude(id string) error {
	err := o.store.Unexclude(id)
	o.observer.Refresh(id)
	return err
}
