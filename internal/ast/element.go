package ast

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/roach88/mtrans/internal/diag"
)

// Element is a node in the document tree.
type Element interface {
	// ElementType is the node's tag, used in rendering and messages.
	ElementType() string
	// Parent returns the owning node, or nil for the root.
	Parent() Element
	// Range returns the node's own source range, if it has one.
	Range() *diag.Range
	// SetRange records the node's source range.
	SetRange(r diag.Range)
	// Children returns the named children in registration order.
	Children() []Child

	setParent(p Element)
}

// Child is one named child slot: a single node or an ordered list.
type Child struct {
	Name   string
	Node   Element
	List   []Element
	IsList bool
}

// node is embedded by every Element.
type node struct {
	parent   Element
	rng      *diag.Range
	children []Child
}

func (n *node) Parent() Element       { return n.parent }
func (n *node) Range() *diag.Range    { return n.rng }
func (n *node) Children() []Child     { return n.children }
func (n *node) setParent(p Element)   { n.parent = p }
func (n *node) SetRange(r diag.Range) { n.rng = &r }

// has registers kid under name and makes self its parent. A nil kid is
// ignored. Registering a name twice replaces the earlier child.
func (n *node) has(self Element, name string, kid Element) {
	if isNil(kid) {
		return
	}
	kid.setParent(self)
	n.put(Child{Name: name, Node: kid})
}

// hasList registers an ordered list of kids under name.
func (n *node) hasList(self Element, name string, kids []Element) {
	for _, k := range kids {
		k.setParent(self)
	}
	n.put(Child{Name: name, List: kids, IsList: true})
}

func (n *node) put(c Child) {
	for i := range n.children {
		if n.children[i].Name == c.Name {
			n.children[i] = c
			return
		}
	}
	n.children = append(n.children, c)
}

func elements[T Element](kids []T) []Element {
	out := make([]Element, len(kids))
	for i, k := range kids {
		out[i] = k
	}
	return out
}

func isNil(e Element) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// adopt makes parent the parent of an element created during resolution,
// so that diagnostics it logs are located at the parent.
func adopt[T Element](parent Element, kid T) T {
	kid.setParent(parent)
	return kid
}

// Location returns the effective range of e: its own range or the range of
// its nearest ancestor that has one.
func Location(e Element) *diag.Range {
	for cur := e; !isNil(cur); cur = cur.Parent() {
		if r := cur.Range(); r != nil {
			return r
		}
	}
	return nil
}

// Render returns a canonical multi-line rendering of the tree rooted at e.
// Two trees with the same structure and attributes render identically.
func Render(e Element) string {
	var b strings.Builder
	render(&b, e, "", 0)
	return b.String()
}

func render(b *strings.Builder, e Element, prefix string, indent int) {
	left := strings.Repeat(" ", indent)
	fmt.Fprintf(b, "%s%s<%s>%s", left, prefix, e.ElementType(), attributes(e))
	for _, c := range e.Children() {
		if !c.IsList {
			b.WriteString("\n")
			render(b, c.Node, c.Name+": ", indent+2)
			continue
		}
		fmt.Fprintf(b, "\n%s  %s: [", left, c.Name)
		if len(c.List) > 0 {
			for _, k := range c.List {
				b.WriteString("\n")
				render(b, k, "", indent+4)
			}
			fmt.Fprintf(b, "\n%s  ", left)
		}
		b.WriteString("]")
	}
}

// attributes renders the scalar exported fields of e as " key=value" and
// booleans as " key" or " !key".
func attributes(e Element) string {
	v := reflect.ValueOf(e)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}
	var b strings.Builder
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		key := lowerFirst(sf.Name)
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Bool:
			if fv.Bool() {
				b.WriteString(" " + key)
			} else {
				b.WriteString(" !" + key)
			}
		case reflect.String:
			fmt.Fprintf(&b, " %s=%s", key, fv.String())
		case reflect.Int, reflect.Int64:
			fmt.Fprintf(&b, " %s=%d", key, fv.Int())
		}
	}
	return b.String()
}

func lowerFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
