package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventar-backend/internal/database"
	"inventar-backend/internal/models"
	"inventar-backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)
	if err := database.NewSQLiteMigrator(s.DB()).RunMigrations(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestItemRoundTripAndInsertWithID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	item := &models.Item{Name: "Lötstation", Tags: []string{"elektronik", "werkzeug"}}
	if err := s.Items().Create(ctx, item); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.Items().Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Lötstation" || len(got.Tags) != 2 || got.LocationID != nil {
		t.Fatalf("unexpected item %+v", got)
	}

	if err := s.Items().Delete(ctx, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Items().Get(ctx, item.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	restored := &models.Item{ID: item.ID, Name: "Lötstation"}
	if err := s.Items().InsertWithID(ctx, restored); err != nil {
		t.Fatalf("insert with id: %v", err)
	}
	if restored.ID != item.ID {
		t.Fatalf("id changed: %d != %d", restored.ID, item.ID)
	}
	if err := s.Items().InsertWithID(ctx, &models.Item{ID: item.ID, Name: "dup"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	next := &models.Item{Name: "Multimeter"}
	if err := s.Items().Create(ctx, next); err != nil {
		t.Fatalf("create next: %v", err)
	}
	if next.ID <= item.ID {
		t.Fatalf("new id %d reuses space of %d", next.ID, item.ID)
	}
}

func TestDeletedIDIsNotReused(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := &models.Item{Name: "a"}
	if err := s.Items().Create(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.Items().Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	second := &models.Item{Name: "b"}
	if err := s.Items().Create(ctx, second); err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatalf("id %d was reused", first.ID)
	}
}

func TestChangelogSnapshotsAndOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	userID := int64(7)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	create := &models.ChangelogEntry{
		EntityType:    models.EntityItem,
		EntityID:      1,
		ChangeType:    models.ChangeCreate,
		UserID:        &userID,
		ChangedAt:     at,
		AfterValues:   models.Snapshot{"name": "Bohrer", "tags": []any{"werkzeug"}},
		ChangedFields: []string{"name", "tags"},
	}
	first := &models.ChangelogEntry{
		EntityType: models.EntityItem, EntityID: 1, ChangeType: models.ChangeUpdate, ChangedAt: at.Add(time.Minute),
		BeforeValues: models.Snapshot{"name": "Bohrer"}, AfterValues: models.Snapshot{"name": "Akkubohrer"},
		ChangedFields: []string{"name"},
	}
	// same timestamp as first, later id
	second := &models.ChangelogEntry{
		EntityType: models.EntityItem, EntityID: 1, ChangeType: models.ChangeUpdate, ChangedAt: at.Add(time.Minute),
		BeforeValues: models.Snapshot{"category": ""}, AfterValues: models.Snapshot{"category": "Werkzeug"},
		ChangedFields: []string{"category"},
	}
	other := &models.ChangelogEntry{
		EntityType: models.EntityLocation, EntityID: 1, ChangeType: models.ChangeCreate, ChangedAt: at.Add(time.Hour),
		AfterValues: models.Snapshot{"name": "Regal A"}, ChangedFields: []string{"name"},
	}
	for _, e := range []*models.ChangelogEntry{create, first, second, other} {
		if err := s.Changelog().Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Changelog().Get(ctx, create.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BeforeValues != nil {
		t.Errorf("before values should stay nil, got %v", got.BeforeValues)
	}
	if name, _ := got.AfterValues.Name(); name != "Bohrer" {
		t.Errorf("after name = %q", name)
	}
	if got.UserID == nil || *got.UserID != userID {
		t.Errorf("user id not round tripped: %v", got.UserID)
	}
	if !got.ChangedAt.Equal(at) {
		t.Errorf("changed_at = %v, want %v", got.ChangedAt, at)
	}

	later, err := s.Changelog().ListAfter(ctx, models.EntityItem, 1, first.ChangedAt, first.ID)
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	if len(later) != 1 || later[0].ID != second.ID {
		t.Fatalf("expected only entry %d after %d, got %+v", second.ID, first.ID, later)
	}

	byEntity, err := s.Changelog().ListByEntity(ctx, models.EntityItem, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(byEntity) != 3 || byEntity[0].ID != second.ID || byEntity[2].ID != create.ID {
		t.Fatalf("unexpected entity history order")
	}

	page, err := s.Changelog().List(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID != other.ID {
		t.Fatalf("newest entry should come first")
	}
	if n, _ := s.Changelog().Count(ctx); n != 4 {
		t.Fatalf("count = %d", n)
	}
}

func TestChangelogIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := &models.ChangelogEntry{
		EntityType: models.EntityItem, EntityID: 1, ChangeType: models.ChangeCreate,
		AfterValues: models.Snapshot{"name": "x"}, ChangedFields: []string{"name"},
	}
	if err := s.Changelog().Append(ctx, e); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DB().ExecContext(ctx, `UPDATE changelog SET entity_id = 2 WHERE id = ?`, e.ID); err == nil {
		t.Fatal("update on changelog should be rejected")
	}
	if _, err := s.DB().ExecContext(ctx, `DELETE FROM changelog WHERE id = ?`, e.ID); err == nil {
		t.Fatal("delete on changelog should be rejected")
	}
}

func TestLocationDependentsAndForeignKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	shelf := &models.Location{Name: "Regal"}
	if err := s.Locations().Create(ctx, shelf); err != nil {
		t.Fatal(err)
	}
	item := &models.Item{Name: "Schraubendreher", LocationID: &shelf.ID}
	if err := s.Items().Create(ctx, item); err != nil {
		t.Fatal(err)
	}

	used, err := s.Locations().HasDependents(ctx, shelf.ID)
	if err != nil || !used {
		t.Fatalf("expected dependents, got %v %v", used, err)
	}
	if err := s.Locations().Delete(ctx, shelf.ID); !errors.Is(err, store.ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}

	child := &models.Location{Name: "Fach", ParentID: &shelf.ID}
	if err := s.Locations().Create(ctx, child); err != nil {
		t.Fatal(err)
	}
	if err := s.Items().Delete(ctx, item.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Locations().Delete(ctx, shelf.ID); !errors.Is(err, store.ErrInUse) {
		t.Fatalf("parent of a sub-location: expected ErrInUse, got %v", err)
	}

	counts, err := s.Items().CountByLocation(ctx)
	if err != nil || counts[shelf.ID] != 1 {
		t.Fatalf("count by location = %v, %v", counts, err)
	}
}

func TestItemSearchAndTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, it := range []*models.Item{
		{Name: "3D-Drucker", Category: "Maschinen", Tags: []string{"druck", "maschine"}},
		{Name: "Filament PLA", Description: "für den Drucker", Tags: []string{"druck"}},
		{Name: "Säge", Tags: []string{"holz"}},
	} {
		if err := s.Items().Create(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	found, err := s.Items().List(ctx, models.ItemFilter{Query: "drucker"})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 {
		t.Fatalf("query matched %d items, want 2", len(found))
	}

	tagged, err := s.Items().List(ctx, models.ItemFilter{Tags: []string{"druck", "maschine"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(tagged) != 1 || tagged[0].Name != "3D-Drucker" {
		t.Fatalf("tag filter returned %+v", tagged)
	}

	tags, err := s.Items().Tags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"druck", "holz", "maschine"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tags = %v, want %v", tags, want)
		}
	}
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.InEntityTx(ctx, models.EntityItem, 1, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Items().Create(ctx, &models.Item{Name: "temp"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n, _ := s.Items().Count(ctx); n != 0 {
		t.Fatalf("rolled back insert is visible, count = %d", n)
	}
}

func TestUsersDisplayNames(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := &models.User{Name: "Anna", Email: "Anna@Example.org", PasswordHash: "x"}
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	if u.Role != models.RoleMember {
		t.Fatalf("default role = %q", u.Role)
	}
	stored, err := s.Users().Get(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.IsActive {
		t.Fatal("inactive user stored as active")
	}
	byEmail, err := s.Users().GetByEmail(ctx, "anna@example.org")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("get by email: %v %v", byEmail, err)
	}
	names, err := s.Users().DisplayNames(ctx, []int64{u.ID, 999})
	if err != nil {
		t.Fatal(err)
	}
	if names[u.ID] != "Anna" {
		t.Fatalf("names = %v", names)
	}
	if _, ok := names[999]; ok {
		t.Fatal("unknown user should be absent")
	}
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.Items().Create(ctx, &models.Item{Name: "halb"}); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	done := make(chan error, 1)
	go func() {
		done <- s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.Items().Create(ctx, &models.Item{Name: "ganz"})
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("transaction after panic: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("store stayed locked after a panicking transaction")
	}
	if n, _ := s.Items().Count(ctx); n != 1 {
		t.Fatalf("count = %d, want only the committed item", n)
	}
}
