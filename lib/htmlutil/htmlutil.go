package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("feedwarden.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// GetAttr returns the value of the attribute key on node.
func GetAttr(node *html.Node, key string) (string, bool) {
	if node == nil {
		return "", false
	}
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr replaces or adds the attribute key on node.
func SetAttr(node *html.Node, key, value string) {
	for i, a := range node.Attr {
		if a.Key == key {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}

// RemoveAttr deletes the attribute key from node if present.
func RemoveAttr(node *html.Node, key string) {
	for i, a := range node.Attr {
		if a.Key == key {
			node.Attr = append(node.Attr[:i], node.Attr[i+1:]...)
			return
		}
	}
}

type Anchor struct {
	Name string
	Href string
	URL  *url.URL
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

func parseAnchor(n *html.Node) (Anchor, error) {
	href, _ := GetAttr(n, "href")
	link, err := url.Parse(href)
	if err != nil {
		return Anchor{}, err
	}
	return Anchor{
		Name: CleanText(GetText(n)),
		Href: link.String(),
		URL:  link,
	}, nil
}

func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	ctx, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		anchor, err := parseAnchor(n)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}
		anchors = append(anchors, anchor)
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", anchor.Name),
			attribute.String("url", anchor.Href),
		))
	}

	return anchors
}

// FirstAnchor returns the first element below (or at) node matching selector
// that carries an href. found is false when there is none, err is set when
// the href does not parse.
func FirstAnchor(ctx context.Context, node *html.Node, selector string) (anchor Anchor, found bool, err error) {
	_, span := tracer.Start(ctx, "FirstAnchor")
	defer span.End()

	sel := goquery.NewDocumentFromNode(node).Selection
	candidates := sel.Filter(selector).AddSelection(sel.Find(selector))
	for _, n := range candidates.Nodes {
		if _, ok := GetAttr(n, "href"); !ok {
			continue
		}
		anchor, err := parseAnchor(n)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			return Anchor{}, true, err
		}
		span.SetAttributes(attribute.String("url", anchor.Href))
		return anchor, true, nil
	}
	return Anchor{}, false, nil
}
