package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"inventar-backend/internal/cache"
	"inventar-backend/internal/models"
	"inventar-backend/internal/store"
)

const maxNameLength = 200

type ItemService struct {
	store    store.Store
	cache    cache.Cache
	cacheTTL time.Duration
	feed     *ChangeFeed
}

func NewItemService(st store.Store, c cache.Cache, cacheTTL time.Duration, feed *ChangeFeed) *ItemService {
	return &ItemService{store: st, cache: c, cacheTTL: cacheTTL, feed: feed}
}

func (s *ItemService) Create(ctx context.Context, req *models.CreateItemRequest, userID *int64) (*models.Item, error) {
	item := &models.Item{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Tags:        normaliseTags(req.Tags),
		Links:       cleanList(req.Links),
		Images:      cleanList(req.Images),
		LocationID:  req.LocationID,
	}
	if err := validateName(item.Name); err != nil {
		return nil, err
	}

	var entry *models.ChangelogEntry
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := requireLocation(ctx, tx, item.LocationID); err != nil {
			return err
		}
		if err := tx.Items().Create(ctx, item); err != nil {
			return err
		}
		after := item.Snapshot()
		entry = &models.ChangelogEntry{
			EntityType:    models.EntityItem,
			EntityID:      item.ID,
			ChangeType:    models.ChangeCreate,
			UserID:        userID,
			AfterValues:   after,
			ChangedFields: recordedFields(after, models.ItemFields),
		}
		return tx.Changelog().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	s.feed.Committed(ctx, entry)
	return item, nil
}

// Update replaces the editable fields. Nothing is written when no field changes.
func (s *ItemService) Update(ctx context.Context, id int64, req *models.UpdateItemRequest, userID *int64) (*models.Item, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	var updated *models.Item
	var entry *models.ChangelogEntry
	err := s.store.InEntityTx(ctx, models.EntityItem, id, func(ctx context.Context, tx store.Tx) error {
		entry = nil
		current, err := tx.Items().Get(ctx, id)
		if err != nil {
			return err
		}
		before := current.Snapshot()

		next := *current
		next.Name = name
		next.Description = strings.TrimSpace(req.Description)
		next.Category = strings.TrimSpace(req.Category)
		next.Tags = normaliseTags(req.Tags)
		next.Links = cleanList(req.Links)
		next.Images = cleanList(req.Images)
		next.LocationID = req.LocationID

		changed := changedFields(before, next.Snapshot(), models.ItemFields)
		if len(changed) == 0 {
			updated = current
			return nil
		}
		if err := requireLocation(ctx, tx, next.LocationID); err != nil {
			return err
		}
		if err := tx.Items().Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		entry = &models.ChangelogEntry{
			EntityType:    models.EntityItem,
			EntityID:      id,
			ChangeType:    models.ChangeUpdate,
			UserID:        userID,
			BeforeValues:  before,
			AfterValues:   next.Snapshot(),
			ChangedFields: changed,
		}
		return tx.Changelog().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	if entry != nil {
		s.feed.Committed(ctx, entry)
	}
	return updated, nil
}

func (s *ItemService) Delete(ctx context.Context, id int64, userID *int64) error {
	var entry *models.ChangelogEntry
	err := s.store.InEntityTx(ctx, models.EntityItem, id, func(ctx context.Context, tx store.Tx) error {
		current, err := tx.Items().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Items().Delete(ctx, id); err != nil {
			return err
		}
		before := current.Snapshot()
		entry = &models.ChangelogEntry{
			EntityType:    models.EntityItem,
			EntityID:      id,
			ChangeType:    models.ChangeDelete,
			UserID:        userID,
			BeforeValues:  before,
			ChangedFields: recordedFields(before, models.ItemFields),
		}
		return tx.Changelog().Append(ctx, entry)
	})
	if err != nil {
		return err
	}
	s.feed.Committed(ctx, entry)
	return nil
}

func (s *ItemService) Get(ctx context.Context, id int64) (*models.Item, error) {
	return s.store.Items().Get(ctx, id)
}

// Search lists items matching free text, all given tags and the location
func (s *ItemService) Search(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Tags = normaliseTags(filter.Tags)
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	items, err := s.store.Items().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Item{}
	}
	return items, nil
}

// Tags returns every tag in use, sorted. Served from cache until an item
// changes or the TTL expires.
func (s *ItemService) Tags(ctx context.Context) ([]string, error) {
	var tags []string
	if cache.GetJSON(ctx, s.cache, cache.TagsKey, &tags) {
		return tags, nil
	}
	tags, err := s.store.Items().Tags(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	cache.SetJSON(ctx, s.cache, cache.TagsKey, tags, s.cacheTTL)
	return tags, nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrValidation, maxNameLength)
	}
	return nil
}

func requireLocation(ctx context.Context, tx store.Tx, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := tx.Locations().Get(ctx, *id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: location %d does not exist", ErrValidation, *id)
		}
		return err
	}
	return nil
}

// normaliseTags trims, lower-cases, drops empties and duplicates, and sorts
func normaliseTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// cleanList trims entries and drops empty ones, keeping order
func cleanList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
