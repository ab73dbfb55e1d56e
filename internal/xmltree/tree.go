// =============================================================================
// ISA Atributo - XML Tree
// =============================================================================
//
// A minimal element tree built from encoding/xml tokens. Fiscal documents in
// the wild declare their namespaces in every style imaginable (default
// namespace, prefixed, missing, wrong case), so lookups here work on local
// names only and never on namespace URIs.
//
// LOOKUP:
//   FindFirstByLocalName and FindAllByLocalName are generic over any tree
//   whose nodes expose a local name and their child elements. Both search in
//   two tiers:
//     1. exact local-name match over all descendants, in document order
//     2. case-insensitive local-name match, only when tier 1 found nothing
//
// =============================================================================

package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

var (
	// ErrNoRootElement is returned when the input contains no element at all.
	ErrNoRootElement = errors.New("xml document has no root element")

	// ErrContentOutsideRoot is returned for a second top-level element or for
	// non-whitespace text outside the root element.
	ErrContentOutsideRoot = errors.New("content outside root element")
)

// Tree is the view of a node the lookup functions need.
type Tree[E any] interface {
	LocalName() string
	ChildElements() []E
}

// Node is a single XML element.
type Node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Node

	// content holds character data and child elements in document order.
	content []segment
}

// segment is either a run of character data or a child element.
type segment struct {
	text  string
	child *Node
}

// LocalName returns the element name without any namespace or prefix.
func (n *Node) LocalName() string {
	local := n.Name.Local
	if i := strings.LastIndexByte(local, ':'); i >= 0 {
		local = local[i+1:]
	}
	return local
}

// ChildElements returns the direct child elements.
func (n *Node) ChildElements() []*Node {
	return n.Children
}

// Attribute returns the value of the first attribute whose local name equals
// one of names. Names are tried in order.
func (n *Node) Attribute(names ...string) (string, bool) {
	for _, name := range names {
		for _, a := range n.Attr {
			if a.Name.Local == name {
				return a.Value, true
			}
		}
	}
	return "", false
}

// Text returns the concatenated character data of the element and all its
// descendants, in document order.
func (n *Node) Text() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	for _, c := range n.content {
		if c.child != nil {
			c.child.writeText(b)
			continue
		}
		b.WriteString(c.text)
	}
}

// Parse reads a whole XML document and returns a synthetic document node
// whose children are the top-level elements. Non-UTF-8 encodings declared in
// the prolog are converted on the fly.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	doc := &Node{}
	stack := []*Node{doc}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 1 && len(doc.Children) > 0 {
				return nil, fmt.Errorf("failed to parse xml: %w: <%s>", ErrContentOutsideRoot, t.Name.Local)
			}
			node := &Node{Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...)}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			parent.content = append(parent.content, segment{child: node})
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 1 {
				cur := stack[len(stack)-1]
				cur.content = append(cur.content, segment{text: string(t)})
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("failed to parse xml: %w", ErrContentOutsideRoot)
			}
		}
	}

	if len(doc.Children) == 0 {
		return nil, ErrNoRootElement
	}
	return doc, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*Node, error) {
	return Parse(bytes.NewReader(data))
}

// FindFirstByLocalName returns the first descendant of root, in document
// order, whose local name is name. When no descendant matches exactly, the
// first case-insensitive match is returned instead.
func FindFirstByLocalName[E Tree[E]](root E, name string) (E, bool) {
	if found, ok := findFirst(root, func(e E) bool { return e.LocalName() == name }); ok {
		return found, true
	}
	lower := strings.ToLower(name)
	return findFirst(root, func(e E) bool { return strings.ToLower(e.LocalName()) == lower })
}

// FindAllByLocalName returns every descendant of root whose local name is
// name, in document order, with the same case-insensitive fallback as
// FindFirstByLocalName.
func FindAllByLocalName[E Tree[E]](root E, name string) []E {
	if found := findAll(root, func(e E) bool { return e.LocalName() == name }); len(found) > 0 {
		return found
	}
	lower := strings.ToLower(name)
	return findAll(root, func(e E) bool { return strings.ToLower(e.LocalName()) == lower })
}

func findFirst[E Tree[E]](root E, match func(E) bool) (E, bool) {
	for _, child := range root.ChildElements() {
		if match(child) {
			return child, true
		}
		if found, ok := findFirst(child, match); ok {
			return found, true
		}
	}
	var zero E
	return zero, false
}

func findAll[E Tree[E]](root E, match func(E) bool) []E {
	var out []E
	var walk func(E)
	walk = func(cur E) {
		for _, child := range cur.ChildElements() {
			if match(child) {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(root)
	return out
}

// ChildText returns the trimmed text of the first descendant of root named
// name, or "" when there is none.
func ChildText(root *Node, name string) string {
	if root == nil {
		return ""
	}
	el, ok := FindFirstByLocalName(root, name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(el.Text())
}
