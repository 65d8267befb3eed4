package repository

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/agricagent/agricagent/internal/core/domain"
	"github.com/agricagent/agricagent/internal/logger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(path, logger.New(slog.LevelError, os.Stderr))
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAssignsID(t *testing.T) {
	repo := newTestRepo(t)

	i := &domain.Interaction{
		TraceID:  "t1",
		Sender:   "whatsapp:+1555",
		Body:     "check my soil",
		Category: domain.CategorySoil,
		Analysis: "Looks sandy.",
	}
	if err := repo.Save(context.Background(), i); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if i.ID == 0 {
		t.Error("expected an assigned ID")
	}
	if i.CreatedAt.IsZero() {
		t.Error("expected a creation timestamp")
	}
}

func TestListRecent_MostRecentFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, body := range []string{"first", "second", "third"} {
		err := repo.Save(ctx, &domain.Interaction{
			TraceID:  "t",
			Sender:   "api",
			Body:     body,
			Category: domain.CategoryUnknown,
			Analysis: "a",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Body != "third" || got[1].Body != "second" {
		t.Errorf("wrong order: %q, %q", got[0].Body, got[1].Body)
	}
}

func TestSave_NullableMediaColumns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	withMedia := &domain.Interaction{
		TraceID:   "t",
		Sender:    "api",
		Body:      "photo",
		MediaMime: "image/jpeg",
		MediaPath: "/tmp/x.jpg",
		Category:  domain.CategoryCrop,
		Analysis:  "a",
	}
	withoutMedia := &domain.Interaction{
		TraceID:  "t",
		Sender:   "api",
		Body:     "text only",
		Category: domain.CategoryUnknown,
		Analysis: "a",
	}
	if err := repo.Save(ctx, withMedia); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, withoutMedia); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].MediaMime != "" {
		t.Errorf("expected empty media mime, got %q", got[0].MediaMime)
	}
	if got[1].MediaMime != "image/jpeg" || got[1].MediaPath != "/tmp/x.jpg" {
		t.Errorf("media columns not round-tripped: %+v", got[1])
	}
}
