package feed

// Namespace URIs used in integration service feeds.
const (
	NamespaceAtom = "http://www.w3.org/2005/Atom"
	NamespaceQM   = "http://jazz.net/xmlns/alm/qm/v0.1/"
)

// Entry is one resource summary from a feed page.
type Entry struct {
	ID       string
	Title    string
	Updated  string
	Archived bool
	Purged   bool
	Content  string
}

// Page is a single parsed feed document.
type Page struct {
	Entries []Entry
	// LastHref is the href of the rel="last" link, empty for single-page feeds.
	LastHref string
}

// Resource is one fetched resource written by Generator.
type Resource struct {
	ID      string
	Title   string
	Updated string
	Link    string
	XML     string
}
