// internal/storage/document_store_test.go
package storage

import (
	"testing"
)

type fixtureDoc struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

func TestSaveAndLoadDoc(t *testing.T) {
	ds, err := NewDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocumentStore: %v", err)
	}

	in := fixtureDoc{Name: "pilot", Version: 1}
	if err := ds.SaveDoc("users/u1/story_bibles", "sb1", in); err != nil {
		t.Fatalf("SaveDoc: %v", err)
	}

	var out fixtureDoc
	if err := ds.LoadDoc("users/u1/story_bibles", "sb1", &out); err != nil {
		t.Fatalf("LoadDoc: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestLoadDocMissing(t *testing.T) {
	ds, err := NewDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocumentStore: %v", err)
	}

	var out fixtureDoc
	err = ds.LoadDoc("users/u1/story_bibles", "absent", &out)
	if err == nil {
		t.Fatal("expected error for missing document")
	}
	if !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestOverwriteInvalidatesCache(t *testing.T) {
	ds, err := NewDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocumentStore: %v", err)
	}

	if err := ds.SaveDoc("shared", "s1", fixtureDoc{Name: "v1", Version: 1}); err != nil {
		t.Fatalf("SaveDoc: %v", err)
	}
	var first fixtureDoc
	if err := ds.LoadDoc("shared", "s1", &first); err != nil {
		t.Fatalf("LoadDoc: %v", err)
	}

	if err := ds.SaveDoc("shared", "s1", fixtureDoc{Name: "v2", Version: 2}); err != nil {
		t.Fatalf("SaveDoc overwrite: %v", err)
	}
	var second fixtureDoc
	if err := ds.LoadDoc("shared", "s1", &second); err != nil {
		t.Fatalf("LoadDoc after overwrite: %v", err)
	}
	if second.Name != "v2" || second.Version != 2 {
		t.Errorf("stale read after overwrite: %+v", second)
	}
}

func TestListDocIDs(t *testing.T) {
	ds, err := NewDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocumentStore: %v", err)
	}

	for _, id := range []string{"episode_2", "episode_1", "arc_0"} {
		if err := ds.SaveDoc("users/u1/story_bibles/sb1/preproduction", id, fixtureDoc{Name: id}); err != nil {
			t.Fatalf("SaveDoc %s: %v", id, err)
		}
	}

	ids, err := ds.ListDocIDs("users/u1/story_bibles/sb1/preproduction")
	if err != nil {
		t.Fatalf("ListDocIDs: %v", err)
	}
	want := []string{"arc_0", "episode_1", "episode_2"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	// Empty/missing collection is not an error.
	ids, err = ds.ListDocIDs("users/u2/story_bibles")
	if err != nil || ids != nil {
		t.Errorf("missing collection: ids=%v err=%v", ids, err)
	}
}
