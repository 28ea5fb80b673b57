package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"inventar-backend/internal/cache"
	"inventar-backend/internal/database"
	"inventar-backend/internal/models"
	"inventar-backend/internal/repositories/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	if err := database.NewSQLiteMigrator(st.DB()).RunMigrations(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

type recordingNotifier struct {
	mu      sync.Mutex
	entries []*models.ChangelogEntry
}

func (n *recordingNotifier) ChangelogAppended(e *models.ChangelogEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, e)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

type testEnv struct {
	store     *sqlite.Store
	cache     *cache.MemoryCache
	notifier  *recordingNotifier
	items     *ItemService
	locations *LocationService
	changelog *ChangelogService
	undo      *UndoService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := newTestStore(t)
	c := cache.NewMemoryCache()
	n := &recordingNotifier{}
	feed := NewChangeFeed(c, n)
	handlers := DefaultEntityHandlers()
	return &testEnv{
		store:     st,
		cache:     c,
		notifier:  n,
		items:     NewItemService(st, c, time.Minute, feed),
		locations: NewLocationService(st, feed),
		changelog: NewChangelogService(st, 0, 0, handlers...),
		undo:      NewUndoService(st, feed, handlers...),
	}
}

// latestEntry returns the newest changelog entry of an entity
func (e *testEnv) latestEntry(t *testing.T, entityType models.EntityType, id int64) *models.ChangelogEntry {
	t.Helper()
	entries, err := e.store.Changelog().ListByEntity(context.Background(), entityType, id)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("no changelog entries for %s %d", entityType, id)
	}
	return entries[0]
}

func (e *testEnv) changelogCount(t *testing.T) int {
	t.Helper()
	n, err := e.store.Changelog().Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func (e *testEnv) createItem(t *testing.T, name, description string) *models.Item {
	t.Helper()
	item, err := e.items.Create(context.Background(), &models.CreateItemRequest{Name: name, Description: description}, nil)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func (e *testEnv) updateItem(t *testing.T, item *models.Item, name, description string) *models.Item {
	t.Helper()
	updated, err := e.items.Update(context.Background(), item.ID, &models.UpdateItemRequest{
		Name:        name,
		Description: description,
		Category:    item.Category,
		Tags:        item.Tags,
		Links:       item.Links,
		Images:      item.Images,
		LocationID:  item.LocationID,
	}, nil)
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	return updated
}
