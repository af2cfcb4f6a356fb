// Package htmldom is a mutable HTML document implementing the dom
// collaborators on top of golang.org/x/net/html. Insertion observers deliver
// their batches through a dispatch.Scheduler the same way a browser delivers
// mutation records as a microtask: every insertion made during one task is
// coalesced into a single callback per observer.
package htmldom

import (
	"fmt"
	"io"
	"strings"

	"feedwarden/internal/assert"
	"feedwarden/internal/components/dispatch"
	"feedwarden/internal/dom"
	"feedwarden/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultLabelClass    = "feedwarden-count"
	DefaultLabelSelector = "a"
)

type Options struct {
	// LabelClass is the class of the element SetLabel creates.
	LabelClass string
	// LabelSelector picks the element inside an item the label is appended
	// to, the item itself is used when nothing matches.
	LabelSelector string
}

type Document struct {
	sched     dispatch.Scheduler
	root      *html.Node
	path      string
	opts      Options
	observers []*observer
}

type observer struct {
	doc     *Document
	target  *html.Node
	subtree bool
	fn      func([]dom.Node)

	pending []dom.Node
	queued  bool
	active  bool
}

func Parse(r io.Reader, path string, sched dispatch.Scheduler, opts Options) (*Document, error) {
	assert.NotNil(sched)
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if opts.LabelClass == "" {
		opts.LabelClass = DefaultLabelClass
	}
	if opts.LabelSelector == "" {
		opts.LabelSelector = DefaultLabelSelector
	}
	return &Document{
		sched: sched,
		root:  root,
		path:  path,
		opts:  opts,
	}, nil
}

func ParseString(s, path string, sched dispatch.Scheduler, opts Options) (*Document, error) {
	return Parse(strings.NewReader(s), path, sched, opts)
}

func element(n dom.Node) *html.Node {
	h, _ := n.(*html.Node)
	return h
}

func (d *Document) Path() string {
	return d.path
}

// SetPath changes the location without touching the tree, like a history
// push. Observers only notice on the next mutation.
func (d *Document) SetPath(path string) {
	d.path = path
}

func (d *Document) Root() dom.Node {
	return d.root
}

func (d *Document) Children(n dom.Node) []dom.Node {
	parent := element(n)
	if parent == nil {
		return nil
	}
	var out []dom.Node
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func (d *Document) QueryAll(n dom.Node, selector string) []dom.Node {
	h := element(n)
	if h == nil {
		return nil
	}
	nodes := goquery.NewDocumentFromNode(h).Find(selector).Nodes
	out := make([]dom.Node, len(nodes))
	for i, node := range nodes {
		out[i] = node
	}
	return out
}

func (d *Document) Query(n dom.Node, selector string) dom.Node {
	h := element(n)
	if h == nil {
		return nil
	}
	sel := goquery.NewDocumentFromNode(h).Find(selector)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

func (d *Document) Matches(n dom.Node, selector string) bool {
	h := element(n)
	if h == nil || h.Type != html.ElementNode {
		return false
	}
	return goquery.NewDocumentFromNode(h).Is(selector)
}

// Find is Query against the whole document.
func (d *Document) Find(selector string) dom.Node {
	return d.Query(d.root, selector)
}

func (d *Document) Observe(target dom.Node, opts dom.ObserveOptions, fn func([]dom.Node)) dom.Subscription {
	h := element(target)
	assert.NotNil(h)
	o := &observer{
		doc:     d,
		target:  h,
		subtree: opts.Subtree,
		fn:      fn,
		active:  true,
	}
	d.observers = append(d.observers, o)
	return o
}

// ObserverCount is the number of subscriptions that have not been disconnected.
func (d *Document) ObserverCount() int {
	return len(d.observers)
}

func (o *observer) Disconnect() {
	if !o.active {
		return
	}
	o.active = false
	o.pending = nil
	for i, candidate := range o.doc.observers {
		if candidate == o {
			o.doc.observers = append(o.doc.observers[:i], o.doc.observers[i+1:]...)
			break
		}
	}
}

func (o *observer) watches(parent *html.Node) bool {
	if parent == o.target {
		return true
	}
	if !o.subtree {
		return false
	}
	for p := parent; p != nil; p = p.Parent {
		if p == o.target {
			return true
		}
	}
	return false
}

func (o *observer) flush() {
	o.queued = false
	if !o.active || len(o.pending) == 0 {
		return
	}
	batch := o.pending
	o.pending = nil
	o.fn(batch)
}

func (d *Document) inserted(parent, child *html.Node) {
	if child.Type != html.ElementNode {
		return
	}
	for _, o := range d.observers {
		if !o.watches(parent) {
			continue
		}
		o.pending = append(o.pending, child)
		if !o.queued {
			o.queued = true
			d.sched.Post(o.flush)
		}
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// AppendChild moves child to the end of parent's children.
func (d *Document) AppendChild(parent, child dom.Node) {
	p, c := element(parent), element(child)
	assert.NotNil(p)
	assert.NotNil(c)
	detach(c)
	p.AppendChild(c)
	d.inserted(p, c)
}

// InsertBefore moves child in front of ref, which must be a child of parent.
// A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref dom.Node) {
	p, c, r := element(parent), element(child), element(ref)
	assert.NotNil(p)
	assert.NotNil(c)
	detach(c)
	p.InsertBefore(c, r)
	d.inserted(p, c)
}

// RemoveNode detaches n from its parent.
func (d *Document) RemoveNode(n dom.Node) {
	if h := element(n); h != nil {
		detach(h)
	}
}

// Fragment parses markup in the context of parent without inserting it.
func (d *Document) Fragment(parent dom.Node, markup string) ([]dom.Node, error) {
	p := element(parent)
	assert.NotNil(p)
	context := p
	if p.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	out := make([]dom.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out, nil
}

// AppendHTML parses markup and appends the resulting nodes to parent, it
// returns the inserted element nodes.
func (d *Document) AppendHTML(parent dom.Node, markup string) ([]dom.Node, error) {
	nodes, err := d.Fragment(parent, markup)
	if err != nil {
		return nil, err
	}
	var out []dom.Node
	for _, n := range nodes {
		d.AppendChild(parent, n)
		if element(n).Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out, nil
}

// ReplaceChildren swaps every child of parent for the nodes parsed from markup.
func (d *Document) ReplaceChildren(parent dom.Node, markup string) ([]dom.Node, error) {
	p := element(parent)
	assert.NotNil(p)
	nodes, err := d.Fragment(parent, markup)
	if err != nil {
		return nil, err
	}
	for p.FirstChild != nil {
		p.RemoveChild(p.FirstChild)
	}
	var out []dom.Node
	for _, n := range nodes {
		d.AppendChild(parent, n)
		if element(n).Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out, nil
}

// Navigate performs an in-page navigation: the location changes to path and
// the content of target is replaced with markup.
func (d *Document) Navigate(path string, target dom.Node, markup string) error {
	d.SetPath(path)
	_, err := d.ReplaceChildren(target, markup)
	return err
}

func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var sb strings.Builder
	if err := d.Render(&sb); err != nil {
		return ""
	}
	return sb.String()
}

// Text returns the text content of n.
func (d *Document) Text(n dom.Node) string {
	return htmlutil.GetText(element(n))
}

// Attached reports whether n is still connected to the document.
func (d *Document) Attached(n dom.Node) bool {
	for p := element(n); p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}
