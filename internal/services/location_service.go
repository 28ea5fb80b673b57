package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"inventar-backend/internal/models"
	"inventar-backend/internal/store"
)

type LocationService struct {
	store store.Store
	feed  *ChangeFeed
}

func NewLocationService(st store.Store, feed *ChangeFeed) *LocationService {
	return &LocationService{store: st, feed: feed}
}

func (s *LocationService) Create(ctx context.Context, req *models.CreateLocationRequest, userID *int64) (*models.Location, error) {
	loc := &models.Location{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		ParentID:    req.ParentID,
		Images:      cleanList(req.Images),
	}
	if err := validateName(loc.Name); err != nil {
		return nil, err
	}

	var entry *models.ChangelogEntry
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := requireParent(ctx, tx, loc.ParentID); err != nil {
			return err
		}
		if err := tx.Locations().Create(ctx, loc); err != nil {
			return err
		}
		after := loc.Snapshot()
		entry = &models.ChangelogEntry{
			EntityType:    models.EntityLocation,
			EntityID:      loc.ID,
			ChangeType:    models.ChangeCreate,
			UserID:        userID,
			AfterValues:   after,
			ChangedFields: recordedFields(after, models.LocationFields),
		}
		return tx.Changelog().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	s.feed.Committed(ctx, entry)
	return loc, nil
}

func (s *LocationService) Update(ctx context.Context, id int64, req *models.UpdateLocationRequest, userID *int64) (*models.Location, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	var updated *models.Location
	var entry *models.ChangelogEntry
	err := s.store.InEntityTx(ctx, models.EntityLocation, id, func(ctx context.Context, tx store.Tx) error {
		entry = nil
		current, err := tx.Locations().Get(ctx, id)
		if err != nil {
			return err
		}
		before := current.Snapshot()

		next := *current
		next.Name = name
		next.Description = strings.TrimSpace(req.Description)
		next.ParentID = req.ParentID
		next.Images = cleanList(req.Images)

		changed := changedFields(before, next.Snapshot(), models.LocationFields)
		if len(changed) == 0 {
			updated = current
			return nil
		}
		if err := checkParent(ctx, tx.Locations(), id, next.ParentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: parent location does not exist", ErrValidation)
			}
			return err
		}
		if err := tx.Locations().Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		entry = &models.ChangelogEntry{
			EntityType:    models.EntityLocation,
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

// Delete removes an empty location; ErrLocationInUse otherwise
func (s *LocationService) Delete(ctx context.Context, id int64, userID *int64) error {
	var entry *models.ChangelogEntry
	err := s.store.InEntityTx(ctx, models.EntityLocation, id, func(ctx context.Context, tx store.Tx) error {
		current, err := tx.Locations().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := (LocationHandler{}).Delete(ctx, tx, id); err != nil {
			return err
		}
		before := current.Snapshot()
		entry = &models.ChangelogEntry{
			EntityType:    models.EntityLocation,
			EntityID:      id,
			ChangeType:    models.ChangeDelete,
			UserID:        userID,
			BeforeValues:  before,
			ChangedFields: recordedFields(before, models.LocationFields),
		}
		return tx.Changelog().Append(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, store.ErrInUse) {
			return ErrLocationInUse
		}
		return err
	}
	s.feed.Committed(ctx, entry)
	return nil
}

func (s *LocationService) Get(ctx context.Context, id int64) (*models.Location, error) {
	return s.store.Locations().Get(ctx, id)
}

func (s *LocationService) List(ctx context.Context) ([]*models.Location, error) {
	locations, err := s.store.Locations().List(ctx)
	if err != nil {
		return nil, err
	}
	if locations == nil {
		locations = []*models.Location{}
	}
	return locations, nil
}

// Tree nests all locations under their parents, roots and children sorted by name
func (s *LocationService) Tree(ctx context.Context) ([]*models.LocationNode, error) {
	locations, err := s.store.Locations().List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Items().CountByLocation(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*models.LocationNode, len(locations))
	for _, loc := range locations {
		nodes[loc.ID] = &models.LocationNode{Location: *loc, ItemCount: counts[loc.ID], Children: []*models.LocationNode{}}
	}

	roots := []*models.LocationNode{}
	for _, loc := range locations {
		node := nodes[loc.ID]
		if loc.ParentID != nil {
			if parent, ok := nodes[*loc.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	sortNodes(roots)
	return roots, nil
}

// Path returns the chain of locations from the root down to id
func (s *LocationService) Path(ctx context.Context, id int64) ([]*models.Location, error) {
	var path []*models.Location
	seen := make(map[int64]bool)
	for next := &id; next != nil; {
		if seen[*next] {
			return nil, ErrLocationCycle
		}
		seen[*next] = true
		loc, err := s.store.Locations().Get(ctx, *next)
		if err != nil {
			return nil, err
		}
		path = append(path, loc)
		next = loc.ParentID
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

func requireParent(ctx context.Context, tx store.Tx, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if _, err := tx.Locations().Get(ctx, *parentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: parent location %d does not exist", ErrValidation, *parentID)
		}
		return err
	}
	return nil
}

func sortNodes(nodes []*models.LocationNode) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := strings.ToLower(nodes[i].Name), strings.ToLower(nodes[j].Name)
		if a == b {
			return nodes[i].ID < nodes[j].ID
		}
		return a < b
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
