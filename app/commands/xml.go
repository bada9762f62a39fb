package commands

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/lysyi3m/etm-api/app/resource"
)

// renderWithoutDeclaration pretty prints doc without its XML declaration.
func renderWithoutDeclaration(doc *etree.Document) (string, error) {
	out, err := resource.Render(doc)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(out, "<?xml") {
		if end := strings.Index(out, "?>"); end >= 0 {
			out = strings.TrimSpace(out[end+2:])
		}
	}
	return out, nil
}
