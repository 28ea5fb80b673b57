package services

import (
	"context"
	"fmt"
	"testing"

	"inventar-backend/internal/models"
)

func TestChangelogPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		env.createItem(t, fmt.Sprintf("Teil %d", i), "")
	}

	page, err := env.changelog.ListPaginated(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || page.TotalPages != 3 || page.PageSize != 2 || len(page.Items) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].EntityName != "Teil 4" || page.Items[1].EntityName != "Teil 3" {
		t.Fatalf("expected newest first, got %q, %q", page.Items[0].EntityName, page.Items[1].EntityName)
	}

	last, err := env.changelog.ListPaginated(ctx, 3, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(last.Items) != 1 || last.Items[0].EntityName != "Teil 0" {
		t.Fatalf("unexpected last page %+v", last.Items)
	}

	beyond, err := env.changelog.ListPaginated(ctx, 9, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(beyond.Items) != 0 || beyond.Items == nil {
		t.Fatalf("expected empty non-nil page, got %v", beyond.Items)
	}
}

func TestChangelogPageSizeClamping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	page, err := env.changelog.ListPaginated(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Page != 1 || page.PageSize != DefaultPageSize || page.TotalPages != 0 {
		t.Fatalf("unexpected defaults %+v", page)
	}

	page, err = env.changelog.ListPaginated(ctx, 1, 10_000)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.PageSize != MaxPageSize {
		t.Fatalf("page size not clamped: %d", page.PageSize)
	}
}

func TestChangelogEnrichment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := &models.User{Name: "Kim", Email: "kim@example.org", PasswordHash: "x", Role: models.RoleMember, IsActive: true}
	if err := env.store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	kept, err := env.items.Create(ctx, &models.CreateItemRequest{Name: "Oszilloskop"}, &user.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gone := env.createItem(t, "Netzteil", "")
	if err := env.items.Delete(ctx, gone.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}

	views, err := env.changelog.ListByEntity(ctx, models.EntityItem, kept.ID)
	if err != nil {
		t.Fatalf("list by entity: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one entry, got %d", len(views))
	}
	v := views[0]
	if v.UserName == nil || *v.UserName != "Kim" || v.EntityName != "Oszilloskop" || !v.EntityExists {
		t.Fatalf("unexpected view %+v", v)
	}

	views, err = env.changelog.ListByEntity(ctx, models.EntityItem, gone.ID)
	if err != nil {
		t.Fatalf("list by entity: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected create and delete, got %d", len(views))
	}
	for _, v := range views {
		if v.EntityExists || v.EntityName != "Netzteil" || v.UserName != nil {
			t.Fatalf("unexpected view for deleted item %+v", v)
		}
	}
	if views[0].ChangeType != models.ChangeDelete {
		t.Fatalf("expected delete entry first, got %s", views[0].ChangeType)
	}

	one, err := env.changelog.Get(ctx, views[1].ID)
	if err != nil || one.ChangeType != models.ChangeCreate {
		t.Fatalf("get: %+v %v", one, err)
	}
}
