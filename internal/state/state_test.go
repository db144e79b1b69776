package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)
	ctx := context.Background()

	rec := InstanceRecord{
		Key:        "web_z1_0",
		Group:      "web",
		Name:       "web-z1-0",
		Provider:   "aws",
		InstanceID: "i-abc123",
		Zone:       "z1",
		PrivateIP:  "10.0.0.1",
		PublicIP:   "203.0.113.1",
		SecretPath: "amoebius/ssh/deadbeef",
		Phase:      "SecretStored",
		CreatedAt:  time.Now(),
	}

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	got, ok, err := store.Get(ctx, "web-z1-0")
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if !ok {
		t.Fatal("Get() did not find saved record")
	}
	if got.SecretPath != rec.SecretPath || got.InstanceID != rec.InstanceID {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}

	// A second store over the same file sees the persisted record.
	reopened := NewFileStore(path)
	records, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List(): %v", err)
	}
	if len(records) != 1 || records[0].Name != "web-z1-0" {
		t.Errorf("List() after reopen = %+v", records)
	}

	if err := store.Delete(ctx, "web-z1-0"); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, ok, _ := store.Get(ctx, "web-z1-0"); ok {
		t.Error("record survived Delete()")
	}
}

func TestFileStoreListSorted(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if err := store.Save(ctx, InstanceRecord{Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "bravo", "charlie"}
	for i, name := range want {
		if records[i].Name != name {
			t.Errorf("List()[%d].Name = %q, want %q", i, records[i].Name, name)
		}
	}
}

func TestFileStoreDeleteMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err := store.Delete(context.Background(), "never-existed"); err != nil {
		t.Errorf("Delete() of missing record: %v", err)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	_, ok, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if ok {
		t.Error("Get() found a record in an empty store")
	}
}
