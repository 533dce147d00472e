// Package mpdtree parses DASH manifest text into a generic attribute/children
// tree. Repeated child tags are always exposed as ordered sequences, so callers
// never deal with the "single value or list" shape of the raw document.
package mpdtree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

var (
	ErrEmptyDocument = errors.New("mpdtree: empty document")
	ErrNoRoot        = errors.New("mpdtree: missing root element")
)

// ParseError reports malformed manifest text.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Reason, e.Err)
	}
	return "parse error: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Node is one element of the parsed document.
type Node struct {
	// Tag is the local element name, Space its namespace prefix
	Tag   string
	Space string
	// Text is the trimmed character data of a leaf element
	Text string

	attrs     map[string]Scalar
	attrOrder []string
	children  []*Node
	byTag     map[string][]*Node
	parent    *Node
}

// Parse reads a manifest document and returns its root node.
func Parse(text string) (*Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Reason: "document is empty", Err: ErrEmptyDocument}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, &ParseError{Reason: "malformed XML", Err: err}
	}

	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Reason: "no root element", Err: ErrNoRoot}
	}
	return build(root, nil), nil
}

func build(el *etree.Element, parent *Node) *Node {
	n := &Node{
		Tag:    el.Tag,
		Space:  el.Space,
		attrs:  make(map[string]Scalar, len(el.Attr)),
		byTag:  make(map[string][]*Node),
		parent: parent,
	}

	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		v := Coerce(a.Value)
		full := a.FullKey()
		n.setAttr(full, v)
		// prefixed attributes (cenc:default_KID) are also reachable by local name
		if a.Space != "" {
			if _, exists := n.attrs[a.Key]; !exists {
				n.setAttr(a.Key, v)
			}
		}
	}

	for _, child := range el.ChildElements() {
		c := build(child, n)
		n.children = append(n.children, c)
		n.byTag[c.Tag] = append(n.byTag[c.Tag], c)
	}

	if len(n.children) == 0 {
		n.Text = strings.TrimSpace(el.Text())
	}
	return n
}

func (n *Node) setAttr(name string, v Scalar) {
	if _, exists := n.attrs[name]; !exists {
		n.attrOrder = append(n.attrOrder, name)
	}
	n.attrs[name] = v
}

// Parent returns the enclosing element, nil for the root.
func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

// Attr returns the coerced attribute value.
func (n *Node) Attr(name string) (Scalar, bool) {
	if n == nil {
		return Scalar{}, false
	}
	v, ok := n.attrs[name]
	return v, ok
}

// Has reports whether the attribute is present.
func (n *Node) Has(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// String returns the raw attribute text, or "" when absent.
func (n *Node) String(name string) string {
	v, _ := n.Attr(name)
	return strings.TrimSpace(v.Raw)
}

// Float returns the numeric attribute value.
func (n *Node) Float(name string) (float64, bool) {
	v, ok := n.Attr(name)
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Int returns the attribute value truncated to an integer.
func (n *Node) Int(name string) (int64, bool) {
	f, ok := n.Float(name)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// AttrNames returns the attribute names in document order.
func (n *Node) AttrNames() []string {
	if n == nil {
		return nil
	}
	return append([]string{}, n.attrOrder...)
}

// Children returns every child element in document order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// All returns the child elements with the given tag, in document order.
// The result is empty, never nil-checked by callers, when none exist.
func (n *Node) All(tag string) []*Node {
	if n == nil {
		return nil
	}
	return n.byTag[tag]
}

// Child returns the first child element with the given tag.
func (n *Node) Child(tag string) *Node {
	c := n.All(tag)
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Find walks a slash separated path of tags and returns every match.
func (n *Node) Find(path string) []*Node {
	if n == nil {
		return nil
	}
	current := []*Node{n}
	for _, tag := range strings.Split(path, "/") {
		if tag == "" {
			continue
		}
		var next []*Node
		for _, c := range current {
			next = append(next, c.All(tag)...)
		}
		current = next
	}
	return current
}

// Walk visits n and all of its descendants depth first in document order.
// Returning false from fn skips the subtree of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Descendants returns every element below n with the given tag.
func (n *Node) Descendants(tag string) []*Node {
	var out []*Node
	for _, c := range n.Children() {
		c.Walk(func(d *Node) bool {
			if d.Tag == tag {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}
