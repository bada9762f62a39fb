package feed

import "testing"

func TestShouldInclude(t *testing.T) {
	type flags struct{ archived, purged bool }
	active := flags{false, false}
	archived := flags{true, false}
	purged := flags{false, true}
	both := flags{true, true}

	tests := []struct {
		mode IncludeMode
		want map[flags]bool
	}{
		{IncludeUnset, map[flags]bool{active: true, archived: true, purged: true, both: true}},
		{ActiveOnly, map[flags]bool{active: true, archived: false, purged: false, both: false}},
		{ArchivedOnly, map[flags]bool{active: false, archived: true, purged: false, both: false}},
		{PurgedOnly, map[flags]bool{active: false, archived: false, purged: true, both: true}},
		{ActiveAndArchived, map[flags]bool{active: true, archived: true, purged: false, both: false}},
		{ArchivedAndPurged, map[flags]bool{active: false, archived: true, purged: true, both: true}},
		{ActiveAndArchivedAndPurged, map[flags]bool{active: true, archived: true, purged: true, both: true}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			for f, want := range tt.want {
				if got := ShouldInclude(tt.mode, f.archived, f.purged); got != want {
					t.Errorf("ShouldInclude(%s, archived=%t, purged=%t) = %t, want %t",
						tt.mode, f.archived, f.purged, got, want)
				}
			}
		})
	}
}

func TestIncludeMode_RequestsArchivedOrPurged(t *testing.T) {
	tests := []struct {
		mode     IncludeMode
		archived bool
		purged   bool
	}{
		{IncludeUnset, false, false},
		{ActiveOnly, false, false},
		{ArchivedOnly, true, false},
		{PurgedOnly, false, true},
		{ActiveAndArchived, true, false},
		{ArchivedAndPurged, true, true},
		{ActiveAndArchivedAndPurged, true, true},
	}

	for _, tt := range tests {
		if got := tt.mode.RequestsArchived(); got != tt.archived {
			t.Errorf("%s.RequestsArchived() = %t, want %t", tt.mode, got, tt.archived)
		}
		if got := tt.mode.RequestsPurged(); got != tt.purged {
			t.Errorf("%s.RequestsPurged() = %t, want %t", tt.mode, got, tt.purged)
		}
	}
}
