package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/mmcdole/gofeed/atom"
)

type Parser struct {
	atomParser *atom.Parser
}

func NewParser() *Parser {
	return &Parser{
		atomParser: &atom.Parser{},
	}
}

func (p *Parser) Run(data []byte) (*Page, error) {
	doc, err := p.atomParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	flags, err := p.flags(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	page := &Page{
		Entries: make([]Entry, 0, len(doc.Entries)),
	}

	for _, link := range doc.Links {
		if link != nil && link.Rel == "last" {
			page.LastHref = link.Href
		}
	}

	for i, e := range doc.Entries {
		if e == nil {
			continue
		}
		entry := Entry{
			ID:      strings.TrimSpace(e.ID),
			Title:   e.Title,
			Updated: e.Updated,
		}
		if i < len(flags) {
			entry.Archived = flags[i].archived
			entry.Purged = flags[i].purged
		}
		if e.Content != nil {
			entry.Content = e.Content.Value
		}
		page.Entries = append(page.Entries, entry)
	}

	return page, nil
}

type entryFlags struct {
	archived bool
	purged   bool
}

// flags reads the QM archived and purged elements of every entry in document
// order. The elements count only when bound to the QM namespace, whatever the
// prefix, including a default namespace which gofeed does not report as an
// extension.
func (p *Parser) flags(data []byte) ([]entryFlags, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}

	root := doc.Root()
	if root == nil {
		return nil, nil
	}

	var flags []entryFlags
	for _, el := range root.ChildElements() {
		if el.Tag != "entry" {
			continue
		}
		if ns := el.NamespaceURI(); ns != NamespaceAtom && ns != "" {
			continue
		}

		var f entryFlags
		for _, child := range el.ChildElements() {
			if child.NamespaceURI() != NamespaceQM {
				continue
			}
			switch child.Tag {
			case "archived":
				f.archived = isTrue(child.Text())
			case "purged":
				f.purged = isTrue(child.Text())
			}
		}
		flags = append(flags, f)
	}
	return flags, nil
}

func isTrue(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}
