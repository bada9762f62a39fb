package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
)

// Header describes the wrapping feed written by Generator.
type Header struct {
	Title         string
	ID            string
	AlternateLink string
	SelfLink      string
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run renders resources as an Atom feed whose entries carry each resource's
// XML as application/xml content.
func (g *Generator) Run(header Header, resources []Resource) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("<feed xmlns=\"%s\">\n", NamespaceAtom))

	g.writeElement(&buf, `title type="text"`, "title", header.Title, 2)
	g.writeElement(&buf, "id", "id", header.ID, 2)
	if header.AlternateLink != "" {
		buf.WriteString(fmt.Sprintf("  <link href=\"%s\" rel=\"alternate\"/>\n", html.EscapeString(header.AlternateLink)))
	}
	if header.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("  <link href=\"%s\" rel=\"self\"/>\n", html.EscapeString(header.SelfLink)))
	}

	for _, r := range resources {
		if err := g.writeEntry(&buf, r); err != nil {
			return "", err
		}
	}

	buf.WriteString("</feed>\n")

	return buf.String(), nil
}

func (g *Generator) writeEntry(buf *bytes.Buffer, r Resource) error {
	content := strings.TrimSpace(stripDeclaration(r.XML))
	if content == "" {
		return fmt.Errorf("resource %q has no content", r.Link)
	}

	buf.WriteString("  <entry>\n")
	g.writeElement(buf, "id", "id", r.ID, 4)
	g.writeElement(buf, `title type="text"`, "title", r.Title, 4)
	buf.WriteString("    <summary type=\"text\"></summary>\n")
	g.writeElement(buf, "updated", "updated", r.Updated, 4)
	if r.Link != "" {
		buf.WriteString(fmt.Sprintf("    <link href=\"%s\" rel=\"alternate\" type=\"application/xml\"/>\n", html.EscapeString(r.Link)))
	}
	buf.WriteString("    <content type=\"application/xml\">\n")
	buf.WriteString(content)
	buf.WriteString("\n    </content>\n")
	buf.WriteString("  </entry>\n")

	return nil
}

// writeElement always writes id, title and updated so every entry has the
// same shape, even when the resource leaves them empty.
func (g *Generator) writeElement(buf *bytes.Buffer, open, tag, content string, indent int) {
	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(open)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func stripDeclaration(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<?xml") {
		if end := strings.Index(s, "?>"); end >= 0 {
			return s[end+2:]
		}
	}
	return s
}
