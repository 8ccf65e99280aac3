package annotation

import "testing"

func TestIndex_SyncAndSearch(t *testing.T) {
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	m := map[string]Annotation{
		"a": {ID: "a", Selector: "#submit-btn", Comment: "button should be disabled", Status: StatusPending},
		"b": {ID: "b", Selector: ".nav", Comment: "navigation overlaps the header", Status: StatusPending},
	}
	if err := idx.Sync(m); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	ids, err := idx.Search("disabled", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 1 || ids[0] != "a" {
		t.Errorf("Search: got %v, want [a]", ids)
	}
}

func TestIndex_SyncRemovesDeleted(t *testing.T) {
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	m := map[string]Annotation{
		"a": {ID: "a", Comment: "flaky spinner", Status: StatusPending},
	}
	if err := idx.Sync(m); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := idx.Sync(map[string]Annotation{}); err != nil {
		t.Fatalf("Sync empty: %v", err)
	}

	ids, err := idx.Search("spinner", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Search after delete: got %v, want none", ids)
	}
}
