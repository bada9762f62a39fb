package feed

// IncludeMode selects entries by archival state. The zero value is unset and
// includes everything.
type IncludeMode int

const (
	IncludeUnset IncludeMode = iota
	ActiveOnly
	ArchivedOnly
	PurgedOnly
	ActiveAndArchived
	ArchivedAndPurged
	ActiveAndArchivedAndPurged
)

var includeModeNames = map[IncludeMode]string{
	IncludeUnset:               "unset",
	ActiveOnly:                 "active",
	ArchivedOnly:               "archived",
	PurgedOnly:                 "purged",
	ActiveAndArchived:          "active+archived",
	ArchivedAndPurged:          "archived+purged",
	ActiveAndArchivedAndPurged: "active+archived+purged",
}

func (m IncludeMode) String() string {
	if name, ok := includeModeNames[m]; ok {
		return name
	}
	return "unknown"
}

// RequestsArchived reports whether the server must be asked for archived
// entries.
func (m IncludeMode) RequestsArchived() bool {
	switch m {
	case ArchivedOnly, ActiveAndArchived, ArchivedAndPurged, ActiveAndArchivedAndPurged:
		return true
	}
	return false
}

func (m IncludeMode) RequestsPurged() bool {
	switch m {
	case PurgedOnly, ArchivedAndPurged, ActiveAndArchivedAndPurged:
		return true
	}
	return false
}

// ShouldInclude reports whether an entry with the given flags survives mode.
// ActiveAndArchivedAndPurged and IncludeUnset both accept every entry.
func ShouldInclude(mode IncludeMode, isArchived, isPurged bool) bool {
	switch mode {
	case ActiveOnly:
		return !isArchived && !isPurged
	case ArchivedOnly:
		return isArchived && !isPurged
	case PurgedOnly:
		return isPurged
	case ActiveAndArchived:
		return !isPurged
	case ArchivedAndPurged:
		return isArchived || isPurged
	}
	return true
}
