package htmldom

import (
	"errors"
	"strings"

	"feedwarden/internal/dom"
	"feedwarden/lib/htmlutil"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var errNotElement = errors.New("htmldom: not an element node")

func elementOrErr(n dom.Node) (*html.Node, error) {
	h := element(n)
	if h == nil || h.Type != html.ElementNode {
		return nil, errNotElement
	}
	return h, nil
}

// declarations parses an inline style. A style that does not parse is kept
// verbatim as a single declaration without property.
func declarations(style string) []*css.Declaration {
	if strings.TrimSpace(style) == "" {
		return nil
	}
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		return []*css.Declaration{{Value: style}}
	}
	return decls
}

func isDisplay(decl *css.Declaration) bool {
	return strings.EqualFold(strings.TrimSpace(decl.Property), "display")
}

func withoutDisplay(decls []*css.Declaration) []*css.Declaration {
	out := decls[:0]
	for _, decl := range decls {
		if isDisplay(decl) {
			continue
		}
		out = append(out, decl)
	}
	return out
}

func setStyle(h *html.Node, decls []*css.Declaration) {
	if len(decls) == 0 {
		htmlutil.RemoveAttr(h, "style")
		return
	}
	parts := make([]string, len(decls))
	for i, decl := range decls {
		if decl.Property == "" {
			parts[i] = strings.TrimRight(strings.TrimSpace(decl.Value), ";")
			continue
		}
		parts[i] = decl.String()
	}
	htmlutil.SetAttr(h, "style", strings.Join(parts, "; "))
}

func (d *Document) Hide(n dom.Node) error {
	h, err := elementOrErr(n)
	if err != nil {
		return err
	}
	style, _ := htmlutil.GetAttr(h, "style")
	decls := withoutDisplay(declarations(style))
	setStyle(h, append(decls, &css.Declaration{Property: "display", Value: "none"}))
	return nil
}

func (d *Document) Show(n dom.Node) error {
	h, err := elementOrErr(n)
	if err != nil {
		return err
	}
	style, _ := htmlutil.GetAttr(h, "style")
	setStyle(h, withoutDisplay(declarations(style)))
	return nil
}

// Hidden reports whether n carries the inline style Hide applies.
func (d *Document) Hidden(n dom.Node) bool {
	h := element(n)
	style, _ := htmlutil.GetAttr(h, "style")
	for _, decl := range declarations(style) {
		if isDisplay(decl) && strings.EqualFold(strings.TrimSpace(decl.Value), "none") {
			return true
		}
	}
	return false
}

func (d *Document) Remove(n dom.Node) error {
	h, err := elementOrErr(n)
	if err != nil {
		return err
	}
	detach(h)
	return nil
}

func (d *Document) labelSelector() string {
	return "div." + d.opts.LabelClass
}

// Label returns the text of the counter label on n, ok is false when n has none.
func (d *Document) Label(n dom.Node) (text string, ok bool) {
	label := d.Query(n, d.labelSelector())
	if label == nil {
		return "", false
	}
	return htmlutil.GetText(element(label)), true
}

func (d *Document) SetLabel(n dom.Node, text string) error {
	h, err := elementOrErr(n)
	if err != nil {
		return err
	}
	if existing := element(d.Query(h, d.labelSelector())); existing != nil {
		for existing.FirstChild != nil {
			existing.RemoveChild(existing.FirstChild)
		}
		existing.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		return nil
	}

	host := h
	if d.opts.LabelSelector != "" {
		if m := element(d.Query(h, d.opts.LabelSelector)); m != nil {
			host = m
		}
	}
	label := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: d.opts.LabelClass}},
	}
	label.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	d.AppendChild(host, label)
	return nil
}

func (d *Document) ClearLabel(n dom.Node) error {
	h, err := elementOrErr(n)
	if err != nil {
		return err
	}
	for _, label := range d.QueryAll(h, d.labelSelector()) {
		detach(element(label))
	}
	return nil
}
