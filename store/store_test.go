package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"digitalindian/pkg/site"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() }) //nolint:errcheck // test cleanup
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	v, err := s.CurrentVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != SchemaVersion() {
		t.Errorf("CurrentVersion() = %d, want %d", v, SchemaVersion())
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	lite := &Store{driver: DriverSQLite}
	q := "UPDATE t SET a = ?, b = ? WHERE id = ?"
	if got := pg.rebind(q); got != "UPDATE t SET a = $1, b = $2 WHERE id = $3" {
		t.Errorf("postgres rebind = %q", got)
	}
	if got := lite.rebind(q); got != q {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestSubscribers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSubscriber(ctx, "a@x.com"); err != nil {
		t.Fatalf("AddSubscriber() error = %v", err)
	}
	if err := s.AddSubscriber(ctx, "b@x.com"); err != nil {
		t.Fatalf("AddSubscriber() error = %v", err)
	}
	if err := s.AddSubscriber(ctx, "  A@X.com "); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate AddSubscriber() error = %v, want ErrDuplicate", err)
	}

	emails, err := s.ListEmails(ctx)
	if err != nil {
		t.Fatalf("ListEmails() error = %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("ListEmails() = %v, want 2 addresses", emails)
	}
	seen := map[string]bool{}
	for _, e := range emails {
		seen[e] = true
	}
	if !seen["a@x.com"] || !seen["b@x.com"] {
		t.Errorf("ListEmails() = %v", emails)
	}

	subs, err := s.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("ListSubscribers() error = %v", err)
	}
	for _, sub := range subs {
		if sub.CreatedAt.IsZero() {
			t.Errorf("subscriber %s has zero CreatedAt", sub.Email)
		}
	}
}

func TestRemoveSubscriber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSubscriber(ctx, "a@x.com"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveSubscriber(ctx, "A@x.com"); err != nil {
		t.Fatalf("RemoveSubscriber() error = %v", err)
	}
	if err := s.RemoveSubscriber(ctx, "a@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveSubscriber() error = %v, want ErrNotFound", err)
	}
	// The address can subscribe again once removed.
	if err := s.AddSubscriber(ctx, "a@x.com"); err != nil {
		t.Errorf("AddSubscriber() after removal error = %v", err)
	}
}

func TestListEmailsEmpty(t *testing.T) {
	emails, err := newTestStore(t).ListEmails(context.Background())
	if err != nil {
		t.Fatalf("ListEmails() error = %v", err)
	}
	if len(emails) != 0 {
		t.Errorf("ListEmails() = %v, want none", emails)
	}
}

func TestPostLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := &site.Post{Title: "Old", Content: "<p>old</p>", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &site.Post{Title: "New 5G Rollout", Content: "<p>Towers <b>everywhere</b></p>", Author: "Team", Category: "Telecom", ImageURL: "/uploads/posts/a.jpg"}
	for _, p := range []*site.Post{older, newer} {
		if err := s.CreatePost(ctx, p); err != nil {
			t.Fatalf("CreatePost() error = %v", err)
		}
		if p.ID == "" || p.CreatedAt.IsZero() {
			t.Fatalf("CreatePost() did not assign ID/CreatedAt: %+v", p)
		}
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(posts) != 2 || posts[0].ID != newer.ID {
		t.Fatalf("ListPosts() not newest first: %+v", posts)
	}

	newer.Title = "New 5G Rollout (updated)"
	if err := s.UpdatePost(ctx, newer); err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	got, err := s.GetPost(ctx, newer.ID)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if got.Title != "New 5G Rollout (updated)" || got.ImageURL != "/uploads/posts/a.jpg" {
		t.Errorf("GetPost() = %+v", got)
	}

	item, err := s.ContentItem(ctx, site.KindPost, newer.ID)
	if err != nil {
		t.Fatalf("ContentItem() error = %v", err)
	}
	if item.Kind != site.KindPost || item.Summary != "Towers everywhere" {
		t.Errorf("ContentItem() = %+v", item)
	}

	urls, err := s.ImageURLs(ctx)
	if err != nil {
		t.Fatalf("ImageURLs() error = %v", err)
	}
	if len(urls) != 1 || urls[0] != "/uploads/posts/a.jpg" {
		t.Errorf("ImageURLs() = %v", urls)
	}

	if err := s.DeletePost(ctx, newer.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	if _, err := s.GetPost(ctx, newer.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPost() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeletePost(ctx, newer.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeletePost() error = %v, want ErrNotFound", err)
	}
}

func TestUpdatesJobsGallery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &site.CompanyUpdate{Title: "Office move", Content: "We moved."}
	if err := s.CreateUpdate(ctx, u); err != nil {
		t.Fatalf("CreateUpdate() error = %v", err)
	}
	u.Content = "We moved to Kolkata."
	if err := s.UpdateUpdate(ctx, u); err != nil {
		t.Fatalf("UpdateUpdate() error = %v", err)
	}
	updates, err := s.ListUpdates(ctx)
	if err != nil || len(updates) != 1 || updates[0].Content != "We moved to Kolkata." {
		t.Errorf("ListUpdates() = %+v, %v", updates, err)
	}

	j := &site.JobOpening{Title: "GIS Analyst", Description: "Map things", Location: "Remote", Type: "Full-time", Department: "Geospatial"}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	item, err := s.ContentItem(ctx, site.KindJob, j.ID)
	if err != nil || item.Title != "GIS Analyst" || item.Kind != site.KindJob {
		t.Errorf("ContentItem(job) = %+v, %v", item, err)
	}
	if err := s.DeleteJob(ctx, j.ID); err != nil {
		t.Fatalf("DeleteJob() error = %v", err)
	}

	g := &site.GalleryItem{Title: "Team day", Hint: "team outing", ImageURL: "/uploads/gallery/b.png"}
	if err := s.CreateGalleryItem(ctx, g); err != nil {
		t.Fatalf("CreateGalleryItem() error = %v", err)
	}
	g.Hint = "annual offsite"
	if err := s.UpdateGalleryItem(ctx, g); err != nil {
		t.Fatalf("UpdateGalleryItem() error = %v", err)
	}
	got, err := s.GetGalleryItem(ctx, g.ID)
	if err != nil || got.Hint != "annual offsite" {
		t.Errorf("GetGalleryItem() = %+v, %v", got, err)
	}
	if err := s.UpdateGalleryItem(ctx, &site.GalleryItem{ID: "missing", Title: "x", Hint: "y"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateGalleryItem(missing) error = %v, want ErrNotFound", err)
	}
}

func TestContentItemErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.ContentItem(ctx, site.KindUpdate, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ContentItem(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.ContentItem(ctx, site.ContentKind("gallery"), "x"); err == nil {
		t.Error("ContentItem(unknown kind) error = nil")
	}
}

func TestDBTimeScan(t *testing.T) {
	want := time.Date(2026, 1, 5, 10, 30, 0, 123, time.UTC)
	tests := []any{
		want,
		want.Format(timeLayout),
		[]byte(want.Format(time.RFC3339Nano)),
	}
	for _, src := range tests {
		var got dbTime
		if err := got.Scan(src); err != nil {
			t.Errorf("Scan(%v) error = %v", src, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("Scan(%v) = %v, want %v", src, got.Time, want)
		}
	}
	var bad dbTime
	if err := bad.Scan("yesterday"); err == nil {
		t.Error("Scan(\"yesterday\") error = nil")
	}
}
