// Package feed classifies the items of a live feed container as they are
// inserted and drives their visibility.
package feed

import (
	"errors"
	"fmt"

	"feedwarden/internal/assert"
	"feedwarden/internal/components/telemetry"
	"feedwarden/internal/dom"
)

const (
	report_observer_attach   = "observer.attach"
	report_observer_classify = "observer.classify"
	report_observer_apply    = "observer.apply"
	report_observer_persist  = "observer.persist"
	report_observer_hidden   = "observer.hidden"
)

var (
	// ErrClassification wraps a failure to classify or paint a single item.
	// It is reported and the item is left as is, it never aborts a batch.
	ErrClassification = errors.New("item classification failed")
	ErrNoContainer    = errors.New("no container to attach to")
)

// Classifier recognizes items in a feed.
//
// note: fault injection point
type Classifier interface {
	// ExtractID returns the item id of n, "" for nodes that are not items.
	ExtractID(n dom.Node) (string, error)
	// IsSeparator reports whether n is structural filler to be removed.
	IsSeparator(n dom.Node) bool
	// IsBlocked reports whether n must be hidden regardless of its counters.
	IsBlocked(n dom.Node) bool
}

type State int

const (
	Detached State = iota
	Attaching
	Attached
)

func (s State) String() string {
	switch s {
	case Detached:
		return "detached"
	case Attaching:
		return "attaching"
	case Attached:
		return "attached"
	default:
		return "unknown"
	}
}

type phase string

const (
	phaseInitial     phase = "initial"
	phaseIncremental phase = "incremental"
	phaseRefresh     phase = "refresh"
)

type Options struct {
	Tree       dom.Tree
	Painter    dom.Painter
	Classifier Classifier
	Counters   Counters
	// Threshold is the number of sightings after which an item is hidden,
	// 0 disables counting.
	Threshold int
	Tel       telemetry.API
}

// entry is the cached classification of one node instance.
type entry struct {
	id        string
	skip      bool
	separator bool
	blocked   bool
	decision  Decision
	// hidden at least once, the tally counts each node instance once.
	counted bool
	// taken out of the tree by the painter.
	removed bool
}

// Observer is the FeedObserver. All methods must be called on the host
// scheduler.
type Observer struct {
	tree       dom.Tree
	painter    dom.Painter
	classifier Classifier
	counters   Counters
	threshold  int
	tel        telemetry.API

	state      State
	container  dom.Node
	sub        dom.Subscription
	generation int
	cache      map[dom.Node]entry
	hidden     int
}

func NewObserver(opts Options) *Observer {
	assert.NotNil(opts.Tree)
	assert.NotNil(opts.Painter)
	assert.NotNil(opts.Classifier)
	assert.NotNil(opts.Counters)

	tel := opts.Tel
	if tel == nil {
		tel = telemetry.Nop{}
	}
	return &Observer{
		tree:       opts.Tree,
		painter:    opts.Painter,
		classifier: opts.Classifier,
		counters:   opts.Counters,
		threshold:  opts.Threshold,
		tel:        telemetry.NewScopedAPI("feed", tel),
	}
}

func (o *Observer) State() State {
	return o.state
}

// Container is the node the observer is attached to, nil when detached.
func (o *Observer) Container() dom.Node {
	return o.container
}

// Hidden is the number of item nodes hidden or removed so far, a node the host
// re-inserts is counted once.
func (o *Observer) Hidden() int {
	return o.hidden
}

// Attach binds the observer to container. An attached observer is detached
// first. The existing children are classified before Attach returns, using a
// non-destructive hide, and every later insertion is classified as it is
// delivered. On error the observer is left detached.
func (o *Observer) Attach(container dom.Node) (err error) {
	if o.state != Detached {
		o.Detach()
	}
	if container == nil {
		return ErrNoContainer
	}

	o.state = Attaching
	o.generation++
	o.container = container
	o.cache = map[dom.Node]entry{}
	gen := o.generation

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("attach panicked: %v", r)
		}
		if err != nil {
			o.tel.ReportWarning(report_observer_attach, err)
			o.Detach()
		}
	}()

	o.process(gen, o.tree.Children(container), phaseInitial)
	if o.generation != gen {
		return errors.New("detached during the initial pass")
	}
	o.sub = o.tree.Observe(container, dom.ObserveOptions{}, func(inserted []dom.Node) {
		o.process(gen, inserted, phaseIncremental)
	})
	o.state = Attached
	return nil
}

// Detach disconnects the observer synchronously, no node is touched after it
// returns. Detaching a detached observer is a no-op.
func (o *Observer) Detach() {
	if o.state == Detached {
		return
	}
	if o.sub != nil {
		o.sub.Disconnect()
		o.sub = nil
	}
	o.state = Detached
	o.generation++
	o.container = nil
	o.cache = nil
}

func (o *Observer) live(gen int) bool {
	return o.generation == gen && o.state != Detached
}

func (o *Observer) process(gen int, nodes []dom.Node, ph phase) {
	if !o.live(gen) {
		return
	}
	for _, n := range nodes {
		if !o.live(gen) {
			return
		}
		o.classify(n, ph)
	}
	if !o.live(gen) {
		return
	}

	verb := "removed"
	if ph == phaseInitial {
		verb = "hidden"
	}
	o.tel.ReportCount(report_observer_hidden, int64(o.hidden))
	o.tel.ReportDebug(report_observer_hidden, o.hidden, verb)
}

func (o *Observer) classify(n dom.Node, ph phase) {
	id := ""
	defer func() {
		if r := recover(); r != nil {
			o.tel.ReportWarning(report_observer_classify, fmt.Errorf("%w: %v", ErrClassification, r), id, string(ph))
		}
	}()

	if cached, ok := o.cache[n]; ok {
		// re-inserted by the host, the decision stands and is not recounted
		o.paint(n, cached, ph)
		return
	}

	if o.classifier.IsSeparator(n) {
		e := entry{separator: true}
		o.cache[n] = e
		o.paint(n, e, ph)
		return
	}

	id, err := o.classifier.ExtractID(n)
	if err != nil {
		o.cache[n] = entry{skip: true}
		o.tel.ReportWarning(report_observer_classify, fmt.Errorf("%w: %w", ErrClassification, err), "", string(ph))
		return
	}
	if id == "" {
		o.cache[n] = entry{skip: true}
		return
	}

	e := entry{id: id}
	if o.classifier.IsBlocked(n) {
		e.blocked = true
		e.decision = Decision{Kind: Hidden}
	} else {
		e.decision, err = Decide(o.counters, id, o.threshold)
		if err != nil {
			o.tel.ReportWarning(report_observer_persist, err, id)
		}
	}
	o.cache[n] = e
	o.paint(n, e, ph)
}

// paint applies e to n and keeps the outcome in the cache, unless the
// observer was detached by the painter meanwhile.
func (o *Observer) paint(n dom.Node, e entry, ph phase) {
	gen := o.generation
	e = o.apply(n, e, ph)
	if o.generation == gen && o.cache != nil {
		o.cache[n] = e
	}
}

func (o *Observer) apply(n dom.Node, e entry, ph phase) entry {
	if e.skip {
		return e
	}
	e.removed = false
	if e.separator {
		err := o.painter.Remove(n)
		e.removed = err == nil
		o.report(e, ph, err)
		return e
	}

	switch e.decision.Kind {
	case Hidden:
		var err error
		if ph == phaseIncremental {
			err = o.painter.Remove(n)
		} else {
			err = o.painter.Hide(n)
		}
		if err == nil {
			if !e.counted {
				e.counted = true
				o.hidden++
			}
			e.removed = ph == phaseIncremental
		}
		o.report(e, ph, err)
	case Annotated:
		err := o.painter.Show(n)
		if err == nil {
			err = o.painter.SetLabel(n, Label(e.decision.Count))
		}
		o.report(e, ph, err)
	case Visible:
		err := o.painter.Show(n)
		if err == nil {
			err = o.painter.ClearLabel(n)
		}
		o.report(e, ph, err)
	}
	return e
}

func (o *Observer) report(e entry, ph phase, err error) {
	if err == nil {
		return
	}
	o.tel.ReportWarning(report_observer_apply, fmt.Errorf("%w: %w", ErrClassification, err), e.id, string(ph))
}

// Label is the text of the counter label for a count.
func Label(count int) string {
	return fmt.Sprintf("%d Impression(s)", count)
}

// Refresh re-applies the decision of every attached node with the given id
// after its exclusion changed. Nothing is counted: an excluded item is hidden
// in place and an item no longer excluded shows its current count again.
func (o *Observer) Refresh(id string) {
	if o.state != Attached {
		return
	}
	gen := o.generation
	excluded := o.counters.IsExcluded(id)

	for n, e := range o.cache {
		if !o.live(gen) {
			return
		}
		if e.id != id || e.blocked || e.removed {
			continue
		}
		switch {
		case excluded:
			e.decision = Decision{Kind: Hidden}
		case e.decision.Kind == Hidden:
			count := o.counters.Get(id)
			switch {
			case o.threshold > 0 && count >= o.threshold-1:
				continue
			case o.threshold == 0:
				e.decision = Decision{Kind: Visible}
			default:
				e.decision = Decision{Kind: Annotated, Count: count}
			}
		default:
			continue
		}
		o.paint(n, e, phaseRefresh)
	}
}
