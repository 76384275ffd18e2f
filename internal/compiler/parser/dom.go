package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ============================================================
// Document tree
// ============================================================

// Node is one element (or character-data run) of a parsed SVG document.
// Names keep their raw prefixes ("inkscape:label" has Space "inkscape") so
// that decorative markup can be written back the way it was authored.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Node
	Text     string
}

// IsText reports whether the node is a character-data run.
func (n *Node) IsText() bool {
	return n.Name.Local == ""
}

// Attr returns an unprefixed attribute.
func (n *Node) Attr(local string) string {
	return n.AttrNS("", local)
}

// AttrNS returns an attribute by raw prefix and local name.
func (n *Node) AttrNS(prefix, local string) string {
	for _, a := range n.Attrs {
		if a.Name.Space == prefix && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// ID returns the element id attribute.
func (n *Node) ID() string {
	return n.Attr("id")
}

// InkscapeLabel returns the inkscape:label attribute.
func (n *Node) InkscapeLabel() string {
	return n.AttrNS("inkscape", "label")
}

// Elements returns element children, skipping character data.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if !c.IsText() {
			out = append(out, c)
		}
	}
	return out
}

// InnerText concatenates every descendant character-data run.
func (n *Node) InnerText() string {
	var b strings.Builder
	n.walkText(&b)
	return b.String()
}

func (n *Node) walkText(b *strings.Builder) {
	if n.IsText() {
		b.WriteString(n.Text)
		return
	}
	for _, c := range n.Children {
		c.walkText(b)
	}
}

// Walk visits the node and its element descendants depth-first in document
// order. Returning false from visit skips the node's subtree.
func (n *Node) Walk(visit func(*Node) bool) {
	if n.IsText() {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// Markup serialises the subtree. Elements for which skip returns true are
// left out together with their descendants.
func (n *Node) Markup(skip func(*Node) bool) string {
	var b strings.Builder
	n.writeMarkup(&b, skip)
	return b.String()
}

func (n *Node) writeMarkup(b *strings.Builder, skip func(*Node) bool) {
	if n.IsText() {
		_ = xml.EscapeText(writerOf(b), []byte(n.Text))
		return
	}
	if skip != nil && skip(n) {
		return
	}

	name := qualified(n.Name)
	b.WriteByte('<')
	b.WriteString(name)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(qualified(a.Name))
		b.WriteString(`="`)
		_ = xml.EscapeText(writerOf(b), []byte(a.Value))
		b.WriteByte('"')
	}
	if len(n.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range n.Children {
		c.writeMarkup(b, skip)
	}
	b.WriteString("</")
	b.WriteString(name)
	b.WriteByte('>')
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

type builderWriter struct{ b *strings.Builder }

func (w builderWriter) Write(p []byte) (int, error) { return w.b.Write(p) }

func writerOf(b *strings.Builder) io.Writer { return builderWriter{b: b} }

// ============================================================
// Parsing
// ============================================================

// ParseDocument reads a complete XML document into a Node tree.
func ParseDocument(r io.Reader) (*Node, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = true

	var (
		root  *Node
		stack []*Node
	)

	for {
		tok, err := decoder.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name, Attrs: append([]xml.Attr{}, t.Attr...)}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected closing tag </%s>", qualified(t.Name))
			}
			top := stack[len(stack)-1]
			if top.Name != t.Name {
				return nil, fmt.Errorf("element <%s> closed by </%s>", qualified(top.Name), qualified(t.Name))
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("character data outside root element")
				}
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{Text: string(t)})
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("unexpected EOF: <%s> not closed", qualified(stack[len(stack)-1].Name))
	}
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return root, nil
}
