package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/abelbrown/reel/internal/feed"
)

var (
	_ Backend    = (*Store)(nil)
	_ Backend    = (*PostgresStore)(nil)
	_ feed.Store = (*Store)(nil)
)

func openMem(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenCreatesTable(t *testing.T) {
	st := openMem(t)
	var name string
	err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='feed_items'").Scan(&name)
	if err != nil || name != "feed_items" {
		t.Fatalf("feed_items table not created: %v", err)
	}
}

func TestSaveItemsKeepsOrder(t *testing.T) {
	st := openMem(t)
	ctx := context.Background()

	n, err := st.SaveItems(ctx, feed.DefaultCatalog(), "catalog")
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Errorf("inserted %d, want 8", n)
	}

	items, err := st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := feed.DefaultCatalog()
	if len(items) != len(want) {
		t.Fatalf("List returned %d items", len(items))
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, items[i], want[i])
		}
	}
}

func TestSaveItemsAppendsAndIgnoresDuplicates(t *testing.T) {
	st := openMem(t)
	ctx := context.Background()

	first := []feed.Item{{ID: "b", MediaRef: "m"}, {ID: "a", MediaRef: "m"}}
	if _, err := st.SaveItems(ctx, first, "one"); err != nil {
		t.Fatal(err)
	}
	second := []feed.Item{{ID: "a", MediaRef: "changed"}, {ID: "c", MediaRef: "m"}}
	n, err := st.SaveItems(ctx, second, "two")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("new = %d, want 1", n)
	}

	items, _ := st.List(ctx)
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "a" || ids[2] != "c" {
		t.Errorf("order = %v, want [b a c]", ids)
	}
	if items[1].MediaRef != "m" {
		t.Error("duplicate overwrote the original")
	}
}

func TestSaveItemsRejectsInvalid(t *testing.T) {
	st := openMem(t)
	if _, err := st.SaveItems(context.Background(), []feed.Item{{ID: "x"}}, "bad"); err == nil {
		t.Error("item without media ref accepted")
	}
}

func TestGet(t *testing.T) {
	st := openMem(t)
	ctx := context.Background()
	st.SaveItems(ctx, feed.DefaultCatalog(), "catalog")

	it, err := st.Get(ctx, "5")
	if err != nil || it == nil {
		t.Fatalf("Get(5) = %v, %v", it, err)
	}
	if it.AuthorName != "food_lover" {
		t.Errorf("author = %q", it.AuthorName)
	}
	missing, err := st.Get(ctx, "3")
	if err != nil || missing != nil {
		t.Errorf("Get(3) = %v, %v; want nil, nil", missing, err)
	}
}

func TestSetPreview(t *testing.T) {
	st := openMem(t)
	ctx := context.Background()
	if _, err := st.SaveItems(ctx, []feed.Item{{ID: "a", MediaRef: "m.mp4"}}, "test"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetPreview(ctx, "a", "/previews/preview-a.jpg"); err != nil {
		t.Fatal(err)
	}
	it, err := st.Get(ctx, "a")
	if err != nil || it == nil || it.PreviewImageRef != "/previews/preview-a.jpg" {
		t.Errorf("Get(a) = %+v, %v", it, err)
	}
	if err := st.SetPreview(ctx, "missing", "/x.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPreview(missing) = %v, want ErrNotFound", err)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	st := openMem(t)
	ctx := context.Background()
	n, err := SeedIfEmpty(ctx, st, feed.DefaultCatalog(), "catalog")
	if err != nil || n != 8 {
		t.Fatalf("first seed = %d, %v", n, err)
	}
	n, err = SeedIfEmpty(ctx, st, []feed.Item{{ID: "z", MediaRef: "m"}}, "catalog")
	if err != nil || n != 0 {
		t.Errorf("second seed = %d, %v", n, err)
	}
	if c, _ := st.Count(ctx); c != 8 {
		t.Errorf("Count = %d", c)
	}
}

func TestFileBackedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reel.db")
	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	st.SaveItems(context.Background(), feed.DefaultCatalog()[:2], "catalog")
	st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if c, _ := st.Count(context.Background()); c != 2 {
		t.Errorf("reopened Count = %d", c)
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := openMem(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st.SaveItems(ctx, []feed.Item{{ID: string(rune('a' + i)), MediaRef: "m"}}, "c")
			st.List(ctx)
		}(i)
	}
	wg.Wait()
	if c, _ := st.Count(ctx); c != 10 {
		t.Errorf("Count = %d, want 10", c)
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	b, err := OpenBackend(ctx, "memory", "")
	if err != nil {
		t.Fatal(err)
	}
	b.Close()
	if _, err := OpenBackend(ctx, "mongo", ""); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("REEL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("REEL_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	st, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, err := st.pool.Exec(ctx, "TRUNCATE feed_items"); err != nil {
		t.Fatal(err)
	}

	n, err := st.SaveItems(ctx, feed.DefaultCatalog(), "catalog")
	if err != nil || n != 8 {
		t.Fatalf("SaveItems = %d, %v", n, err)
	}
	if n, _ := st.SaveItems(ctx, feed.DefaultCatalog(), "catalog"); n != 0 {
		t.Errorf("duplicate insert added %d", n)
	}
	items, err := st.List(ctx)
	if err != nil || len(items) != 8 || items[3].ID != "4" {
		t.Errorf("List = %v, %v", items, err)
	}
	it, err := st.Get(ctx, "12")
	if err != nil || it == nil || it.MediaRef == "" {
		t.Errorf("Get(12) = %v, %v", it, err)
	}
	if missing, err := st.Get(ctx, "nope"); missing != nil || err != nil {
		t.Errorf("Get(nope) = %v, %v", missing, err)
	}
	if err := st.SetPreview(ctx, "12", "/previews/preview-12.jpg"); err != nil {
		t.Errorf("SetPreview: %v", err)
	}
	if err := st.SetPreview(ctx, "nope", "/x.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPreview(nope) = %v", err)
	}
}
