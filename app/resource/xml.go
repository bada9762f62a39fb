package resource

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Namespace URIs found in resource documents.
const (
	NamespaceDC          = "http://purl.org/dc/elements/1.1/"
	NamespaceALM         = "http://jazz.net/xmlns/alm/v0.1/"
	NamespaceALMQM       = "http://jazz.net/xmlns/alm/qm/v0.1/"
	NamespaceAdapterTask = "http://jazz.net/xmlns/alm/qm/qmadapter/task/v0.1"
	NamespaceXHTML       = "http://www.w3.org/1999/xhtml"
)

// Parse reads a resource document.
func Parse(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(bytes.TrimSpace(data)); err != nil {
		return nil, fmt.Errorf("failed to parse resource XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("resource XML has no root element")
	}
	return doc, nil
}

// Render serializes doc with two space indentation.
func Render(doc *etree.Document) (string, error) {
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to write resource XML: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Indent pretty prints a resource document.
func Indent(data []byte) (string, error) {
	doc, err := Parse(data)
	if err != nil {
		return "", err
	}
	return Render(doc)
}

// Child returns the first direct child of el named local in namespace.
func Child(el *etree.Element, namespace, local string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if c.Tag == local && c.NamespaceURI() == namespace {
			return c
		}
	}
	return nil
}

// Children returns every direct child of el named local in namespace.
func Children(el *etree.Element, namespace, local string) []*etree.Element {
	var out []*etree.Element
	if el == nil {
		return out
	}
	for _, c := range el.ChildElements() {
		if c.Tag == local && c.NamespaceURI() == namespace {
			out = append(out, c)
		}
	}
	return out
}

// ChildText returns the trimmed text of Child, or "" when it is absent.
func ChildText(el *etree.Element, namespace, local string) string {
	if c := Child(el, namespace, local); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

// SetChildText replaces the text of the named child, appending it with the
// prefix already bound to namespace when missing.
func SetChildText(el *etree.Element, namespace, local, text string) *etree.Element {
	c := Child(el, namespace, local)
	if c == nil {
		tag := local
		if prefix := prefixFor(el, namespace); prefix != "" {
			tag = prefix + ":" + local
		}
		c = el.CreateElement(tag)
	}
	c.SetText(text)
	return c
}

func prefixFor(el *etree.Element, namespace string) string {
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if a.Space == "xmlns" && a.Value == namespace {
				return a.Key
			}
		}
	}
	return ""
}
