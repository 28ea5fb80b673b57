package services

import (
	"context"

	"inventar-backend/internal/models"
	"inventar-backend/internal/store"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type ChangelogService struct {
	store           store.Store
	handlers        map[models.EntityType]EntityHandler
	defaultPageSize int
	maxPageSize     int
}

func NewChangelogService(st store.Store, defaultPageSize, maxPageSize int, handlers ...EntityHandler) *ChangelogService {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = MaxPageSize
	}
	s := &ChangelogService{
		store:           st,
		handlers:        make(map[models.EntityType]EntityHandler),
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
	for _, h := range handlers {
		s.handlers[h.Type()] = h
	}
	return s
}

// ListPaginated returns one page of the changelog, newest first. page is
// clamped to >= 1, pageSize <= 0 means the default.
func (s *ChangelogService) ListPaginated(ctx context.Context, page, pageSize int) (*models.ChangelogPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	total, err := s.store.Changelog().Count(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Changelog().List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, entries)
	if err != nil {
		return nil, err
	}

	return &models.ChangelogPage{
		Items:      views,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

func (s *ChangelogService) Get(ctx context.Context, id int64) (*models.ChangelogView, error) {
	entry, err := s.store.Changelog().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, []*models.ChangelogEntry{entry})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListByEntity returns the history of one entity, newest first
func (s *ChangelogService) ListByEntity(ctx context.Context, entityType models.EntityType, entityID int64) ([]*models.ChangelogView, error) {
	entries, err := s.store.Changelog().ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, entries)
}

// enrich adds user display names and entity names with one lookup per store
func (s *ChangelogService) enrich(ctx context.Context, entries []*models.ChangelogEntry) ([]*models.ChangelogView, error) {
	views := make([]*models.ChangelogView, 0, len(entries))
	if len(entries) == 0 {
		return views, nil
	}

	userIDs := make([]int64, 0)
	entityIDs := make(map[models.EntityType][]int64)
	for _, e := range entries {
		if e.UserID != nil {
			userIDs = append(userIDs, *e.UserID)
		}
		entityIDs[e.EntityType] = append(entityIDs[e.EntityType], e.EntityID)
	}

	userNames, err := s.store.Users().DisplayNames(ctx, uniqueIDs(userIDs))
	if err != nil {
		return nil, err
	}
	entityNames := make(map[models.EntityType]map[int64]string)
	for entityType, ids := range entityIDs {
		h, ok := s.handlers[entityType]
		if !ok {
			continue
		}
		names, err := h.Names(ctx, s.store, uniqueIDs(ids))
		if err != nil {
			return nil, err
		}
		entityNames[entityType] = names
	}

	for _, e := range entries {
		view := &models.ChangelogView{ChangelogEntry: e}
		if e.UserID != nil {
			if name, ok := userNames[*e.UserID]; ok {
				view.UserName = &name
			}
		}
		if name, ok := entityNames[e.EntityType][e.EntityID]; ok {
			view.EntityName = name
			view.EntityExists = true
		} else if name, ok := e.AfterValues.Name(); ok {
			view.EntityName = name
		} else if name, ok := e.BeforeValues.Name(); ok {
			view.EntityName = name
		}
		views = append(views, view)
	}
	return views, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
