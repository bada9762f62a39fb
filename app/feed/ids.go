package feed

import "strings"

const idEndTag = "</id>"

// ExtractID derives the resource ID from an entry id URI. The request feed
// emits IDs without a slash after the type token, so it is matched without
// slashes and one separator character is skipped.
func ExtractID(id, resourceType string) string {
	if resourceType == "request" {
		if i := strings.Index(id, resourceType); i >= 0 {
			start := min(i+len(resourceType)+1, len(id))
			id = id[start:]
		}
	} else {
		marker := "/" + resourceType + "/"
		if i := strings.Index(id, marker); i >= 0 {
			id = id[i+len(marker):]
		}
	}
	return strings.ReplaceAll(id, idEndTag, "")
}

// IDs maps entries to resource IDs in entry order. Entries without an id are
// skipped and duplicates are kept.
func IDs(entries []Entry, resourceType string) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		ids = append(ids, ExtractID(e.ID, resourceType))
	}
	return ids
}
