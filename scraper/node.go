package scraper

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Node is the query surface the page handlers need: select by CSS, read an
// attribute, read the text of matched elements, or take the raw markup.
type Node interface {
	Find(selector string) []Node
	Attr(name string) (string, bool)
	// SelectText returns the text nodes that are direct children of any
	// descendant matching selector, in document order, untrimmed.
	SelectText(selector string) []string
	HTML() (string, error)
}

type selectionNode struct {
	sel *goquery.Selection
}

// ParseDocument parses an HTML body into a Node rooted at the document.
func ParseDocument(r io.Reader) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return selectionNode{sel: doc.Selection}, nil
}

func (n selectionNode) Find(selector string) []Node {
	found := n.sel.Find(selector)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, selectionNode{sel: s})
	})
	return nodes
}

func (n selectionNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n selectionNode) SelectText(selector string) []string {
	matched := n.sel.Find(selector)
	texts := []string{}
	if matched.Length() == 0 {
		return texts
	}

	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) != "#text" {
				walk(c)
				return
			}
			// nested matches interleave with their parent's text
			if matched.IsSelection(c.Parent()) {
				texts = append(texts, c.Text())
			}
		})
	}
	walk(n.sel)
	return texts
}

func (n selectionNode) HTML() (string, error) {
	return goquery.OuterHtml(n.sel)
}
