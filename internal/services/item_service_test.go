package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inventar-backend/internal/models"
)

func TestItemCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	missing := int64(404)

	cases := []*models.CreateItemRequest{
		{Name: "   "},
		{Name: strings.Repeat("x", maxNameLength+1)},
		{Name: "Kabel", LocationID: &missing},
	}
	for _, req := range cases {
		if _, err := env.items.Create(ctx, req, nil); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
	if env.changelogCount(t) != 0 {
		t.Fatal("rejected creates must not be logged")
	}
}

func TestItemCreateNormalisesInput(t *testing.T) {
	env := newTestEnv(t)
	item, err := env.items.Create(context.Background(), &models.CreateItemRequest{
		Name:  "  Lötzinn ",
		Tags:  []string{"Elektronik", " elektronik", "", "Verbrauch"},
		Links: []string{" https://example.org ", ""},
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Name != "Lötzinn" {
		t.Fatalf("name not trimmed: %q", item.Name)
	}
	if len(item.Tags) != 2 || item.Tags[0] != "elektronik" || item.Tags[1] != "verbrauch" {
		t.Fatalf("unexpected tags %v", item.Tags)
	}
	if len(item.Links) != 1 || item.Links[0] != "https://example.org" {
		t.Fatalf("unexpected links %v", item.Links)
	}

	entry := env.latestEntry(t, models.EntityItem, item.ID)
	for _, f := range entry.ChangedFields {
		if f == "id" || f == "created_at" || f == "updated_at" {
			t.Fatalf("create entry lists %q", f)
		}
	}
}

func TestItemUpdateWithoutChangesWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t, "Schraubstock", "groß")
	before := env.changelogCount(t)

	got := env.updateItem(t, item, "Schraubstock", " groß ")
	if got.Name != "Schraubstock" {
		t.Fatalf("unexpected item %+v", got)
	}
	if env.changelogCount(t) != before {
		t.Fatal("no-op update appended an entry")
	}
}

func TestItemUpdateRecordsChangedFields(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t, "Leiter", "")
	env.updateItem(t, item, "Stehleiter", "Alu")

	entry := env.latestEntry(t, models.EntityItem, item.ID)
	if entry.ChangeType != models.ChangeUpdate {
		t.Fatalf("unexpected change type %s", entry.ChangeType)
	}
	if len(entry.ChangedFields) != 2 || entry.ChangedFields[0] != "name" || entry.ChangedFields[1] != "description" {
		t.Fatalf("unexpected changed fields %v", entry.ChangedFields)
	}
	if name, _ := entry.BeforeValues.Name(); name != "Leiter" {
		t.Fatalf("before name = %q", name)
	}
	if name, _ := entry.AfterValues.Name(); name != "Stehleiter" {
		t.Fatalf("after name = %q", name)
	}
}

func TestItemTagsCachedUntilChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.cache.Now = func() time.Time { return now }

	if _, err := env.items.Create(ctx, &models.CreateItemRequest{Name: "Brett", Tags: []string{"holz"}}, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	tags, err := env.items.Tags(ctx)
	if err != nil || len(tags) != 1 {
		t.Fatalf("tags: %v %v", tags, err)
	}

	// a write that bypasses the service leaves the cached list in place
	if err := env.store.Items().Create(ctx, &models.Item{Name: "Blech", Tags: []string{"metall"}}); err != nil {
		t.Fatalf("raw create: %v", err)
	}
	if tags, _ = env.items.Tags(ctx); len(tags) != 1 {
		t.Fatalf("expected cached tags, got %v", tags)
	}

	now = now.Add(2 * time.Minute)
	if tags, _ = env.items.Tags(ctx); len(tags) != 2 {
		t.Fatalf("expected expired cache to reload, got %v", tags)
	}

	if _, err := env.items.Create(ctx, &models.CreateItemRequest{Name: "Filz", Tags: []string{"textil"}}, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	tags, _ = env.items.Tags(ctx)
	if len(tags) != 3 || tags[0] != "holz" || tags[1] != "metall" || tags[2] != "textil" {
		t.Fatalf("expected invalidated cache, got %v", tags)
	}
}

func TestItemSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	shelf, err := env.locations.Create(ctx, &models.CreateLocationRequest{Name: "Regal"}, nil)
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	for _, req := range []*models.CreateItemRequest{
		{Name: "Bandschleifer", Tags: []string{"holz", "elektro"}, LocationID: &shelf.ID},
		{Name: "Schleifpapier", Tags: []string{"holz"}},
		{Name: "Lötkolben", Tags: []string{"elektro"}},
	} {
		if _, err := env.items.Create(ctx, req, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := env.items.Search(ctx, models.ItemFilter{Query: "schleif"})
	if err != nil || len(got) != 2 {
		t.Fatalf("query search: %d %v", len(got), err)
	}
	got, err = env.items.Search(ctx, models.ItemFilter{Tags: []string{"Holz", "elektro"}})
	if err != nil || len(got) != 1 || got[0].Name != "Bandschleifer" {
		t.Fatalf("tag search: %v %v", got, err)
	}
	got, err = env.items.Search(ctx, models.ItemFilter{LocationID: &shelf.ID})
	if err != nil || len(got) != 1 {
		t.Fatalf("location search: %v %v", got, err)
	}
	got, err = env.items.Search(ctx, models.ItemFilter{Query: "nichts"})
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
}
