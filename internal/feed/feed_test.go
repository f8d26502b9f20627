package feed

import (
	"context"
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		wantErr bool
		dup     bool
	}{
		{"empty", nil, false, false},
		{"ok", []Item{{ID: "a", MediaRef: "m"}, {ID: "b", MediaRef: "m"}}, false, false},
		{"missing id", []Item{{MediaRef: "m"}}, true, false},
		{"missing media is per item", []Item{{ID: "a"}, {ID: "b", MediaRef: "m"}}, false, false},
		{"duplicate", []Item{{ID: "a", MediaRef: "m"}, {ID: "a", MediaRef: "n"}}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.items)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.dup && !errors.Is(err, ErrDuplicateID) {
				t.Errorf("expected ErrDuplicateID, got %v", err)
			}
		})
	}
}

func TestRequireMedia(t *testing.T) {
	if err := RequireMedia(DefaultCatalog()); err != nil {
		t.Errorf("catalog rejected: %v", err)
	}
	for _, ref := range []string{"", "  "} {
		err := RequireMedia([]Item{{ID: "a", MediaRef: "m"}, {ID: "b", MediaRef: ref}})
		if !errors.Is(err, ErrNoMediaRef) {
			t.Errorf("ref %q: err = %v, want ErrNoMediaRef", ref, err)
		}
	}
}

func TestMemoryStoreListAndGet(t *testing.T) {
	s, err := NewMemoryStore(DefaultCatalog())
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx := context.Background()

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 8 {
		t.Fatalf("expected 8 items, got %d", len(items))
	}
	if items[3].ID != "4" {
		t.Errorf("expected sparse id 4 at position 3, got %q", items[3].ID)
	}

	// Mutating the returned slice must not leak into the store.
	items[0].Caption = "changed"
	again, _ := s.List(ctx)
	if again[0].Caption == "changed" {
		t.Error("List returned an aliased slice")
	}

	got, err := s.Get(ctx, "10")
	if err != nil || got == nil {
		t.Fatalf("Get(10) = %v, %v", got, err)
	}
	if got.MediaRef != cdn+"video23.mp4" {
		t.Errorf("unexpected media ref %q", got.MediaRef)
	}

	missing, err := s.Get(ctx, "3")
	if err != nil || missing != nil {
		t.Errorf("Get(3) = %v, %v; want nil, nil", missing, err)
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	s, _ := NewMemoryStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.List(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestIndexOf(t *testing.T) {
	items := DefaultCatalog()
	if i := IndexOf(items, "12"); i != 7 {
		t.Errorf("IndexOf(12) = %d, want 7", i)
	}
	if i := IndexOf(items, "nope"); i != -1 {
		t.Errorf("IndexOf(nope) = %d, want -1", i)
	}
}

func TestHasStill(t *testing.T) {
	if (Item{}).HasStill() {
		t.Error("empty item should have no still")
	}
	if !(Item{CoverImageRef: "c"}).HasStill() {
		t.Error("cover image counts as a still")
	}
}
