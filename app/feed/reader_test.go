package feed

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type getCall struct {
	uri   string
	query string
}

// mockGetter serves pages keyed by query string.
type mockGetter struct {
	pages map[string]string
	errs  map[string]error
	calls []getCall
}

func (m *mockGetter) Get(ctx context.Context, uri, query string) ([]byte, error) {
	m.calls = append(m.calls, getCall{uri: uri, query: query})
	if err, ok := m.errs[query]; ok {
		return nil, err
	}
	return []byte(m.pages[query]), nil
}

const (
	feedURI   = "https://qm/service/com.ibm.rqm.integration.service.IIntegrationService/resources/P/testcase"
	testToken = "_ABCDEFGHIJKLMNOPQRSTUV"
)

func TestReader_Entries_ThreePages(t *testing.T) {
	last := feedURI + "?token=" + testToken + "&page=3"
	getter := &mockGetter{pages: map[string]string{
		"": atomPage(last,
			Entry{ID: feedURI + "/1"},
			Entry{ID: feedURI + "/2"}),
		"token=" + testToken + "&page=2": atomPage(last, Entry{ID: feedURI + "/3"}),
		"token=" + testToken + "&page=3": atomPage(last, Entry{ID: feedURI + "/4"}, Entry{ID: feedURI + "/5"}),
	}}

	reader := NewReader(getter)
	ids, err := reader.IDs(context.Background(), feedURI, "testcase", false, IncludeUnset)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"1", "2", "3", "4", "5"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("IDs = %v, want %v", ids, want)
	}

	wantCalls := []getCall{
		{uri: feedURI, query: ""},
		{uri: feedURI, query: "token=" + testToken + "&page=2"},
		{uri: feedURI, query: "token=" + testToken + "&page=3"},
	}
	if !reflect.DeepEqual(getter.calls, wantCalls) {
		t.Errorf("calls = %+v, want %+v", getter.calls, wantCalls)
	}
}

func TestReader_Entries_SinglePage(t *testing.T) {
	getter := &mockGetter{pages: map[string]string{
		"": atomPage("", Entry{ID: feedURI + "/1"}),
	}}

	entries, err := NewReader(getter).Entries(context.Background(), feedURI, "testcase", false, IncludeUnset)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
	if len(getter.calls) != 1 {
		t.Errorf("Expected exactly 1 request, got %d", len(getter.calls))
	}
}

func TestReader_Entries_UnparseableLastLinkDegrades(t *testing.T) {
	getter := &mockGetter{pages: map[string]string{
		"": atomPage(feedURI+"?page=4", Entry{ID: feedURI + "/1"}),
	}}

	entries, err := NewReader(getter).Entries(context.Background(), feedURI, "testcase", false, IncludeUnset)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 1 || len(getter.calls) != 1 {
		t.Errorf("Expected single-page traversal, got %d entries and %d calls", len(entries), len(getter.calls))
	}
}

func TestReader_Entries_EmptyPageDoesNotStopTraversal(t *testing.T) {
	last := feedURI + "?token=" + testToken + "&page=3"
	getter := &mockGetter{pages: map[string]string{
		"":                               atomPage(last, Entry{ID: feedURI + "/1"}),
		"token=" + testToken + "&page=2": "",
		"token=" + testToken + "&page=3": atomPage(last, Entry{ID: feedURI + "/3"}),
	}}

	ids, err := NewReader(getter).IDs(context.Background(), feedURI, "testcase", false, IncludeUnset)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"1", "3"}) {
		t.Errorf("IDs = %v, want [1 3]", ids)
	}
	if len(getter.calls) != 3 {
		t.Errorf("Expected 3 requests, got %d", len(getter.calls))
	}
}

func TestReader_Entries_ArchivedAndPurged(t *testing.T) {
	getter := &mockGetter{pages: map[string]string{
		"includeArchived=true": atomPage("",
			Entry{ID: "a", Archived: true},
			Entry{ID: "b"},
			Entry{ID: "c", Purged: true}),
	}}

	ids, err := NewReader(getter).IDs(context.Background(), feedURI, "executionresult", false, ArchivedAndPurged)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a", "c"}) {
		t.Errorf("IDs = %v, want [a c]", ids)
	}
	if getter.calls[0].query != "includeArchived=true" {
		t.Errorf("Expected includeArchived query, got %q", getter.calls[0].query)
	}
}

func TestReader_Entries_PageQueryKeepsIncludeArchived(t *testing.T) {
	last := feedURI + "?token=" + testToken + "&page=2"
	getter := &mockGetter{pages: map[string]string{
		"includeArchived=true": atomPage(last, Entry{ID: "a", Archived: true}),
		"includeArchived=true&token=" + testToken + "&page=2": atomPage(last, Entry{ID: "b", Archived: true}),
	}}

	ids, err := NewReader(getter).IDs(context.Background(), feedURI, "testcase", false, ArchivedOnly)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Errorf("IDs = %v, want [a b]", ids)
	}
}

func TestReader_Entries_PageErrors(t *testing.T) {
	last := feedURI + "?token=" + testToken + "&page=3"
	pages := map[string]string{
		"":                               atomPage(last, Entry{ID: feedURI + "/1"}),
		"token=" + testToken + "&page=3": atomPage(last, Entry{ID: feedURI + "/3"}),
	}
	errs := map[string]error{"token=" + testToken + "&page=2": errors.New("boom")}

	t.Run("ignored", func(t *testing.T) {
		getter := &mockGetter{pages: pages, errs: errs}
		ids, err := NewReader(getter).IDs(context.Background(), feedURI, "testcase", true, IncludeUnset)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if !reflect.DeepEqual(ids, []string{"1", "3"}) {
			t.Errorf("IDs = %v, want [1 3]", ids)
		}
	})

	t.Run("fatal", func(t *testing.T) {
		getter := &mockGetter{pages: pages, errs: errs}
		if _, err := NewReader(getter).IDs(context.Background(), feedURI, "testcase", false, IncludeUnset); err == nil {
			t.Fatal("Expected error when page read fails")
		}
		if len(getter.calls) != 2 {
			t.Errorf("Expected traversal to stop after failing page, got %d calls", len(getter.calls))
		}
	})
}

func TestReader_Entries_FirstPageError(t *testing.T) {
	getter := &mockGetter{errs: map[string]error{"": errors.New("unreachable")}}

	entries, err := NewReader(getter).Entries(context.Background(), feedURI, "testcase", true, IncludeUnset)
	if err != nil {
		t.Fatalf("Expected error to be swallowed, got: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}

	if _, err := NewReader(getter).Entries(context.Background(), feedURI, "testcase", false, IncludeUnset); err == nil {
		t.Error("Expected error when first page fails")
	}
}
