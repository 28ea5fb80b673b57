package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"inventar-backend/internal/models"
	"inventar-backend/internal/objectstore"
	"inventar-backend/internal/store"
	"inventar-backend/internal/timeutil"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// BackupService exports the whole inventory and its changelog as a zip of JSON files
type BackupService struct {
	store   store.Store
	objects objectstore.Store // nil when uploads are not configured
	prefix  string
	now     func() time.Time
}

func NewBackupService(st store.Store, objects objectstore.Store, prefix string) *BackupService {
	return &BackupService{store: st, objects: objects, prefix: prefix, now: timeutil.Now}
}

// FileName is the suggested download name for an archive created now
func (s *BackupService) FileName() string {
	return fmt.Sprintf("inventar-%s.zip", s.now().Format(timeutil.FileLayout))
}

// Export writes the archive to w. Everything is read in one transaction so
// the three files agree with each other.
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	var (
		items     []*models.Item
		locations []*models.Location
		changelog []*models.ChangelogEntry
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if items, err = tx.Items().List(ctx, models.ItemFilter{}); err != nil {
			return fmt.Errorf("read items: %w", err)
		}
		if locations, err = tx.Locations().List(ctx); err != nil {
			return fmt.Errorf("read locations: %w", err)
		}
		if changelog, err = tx.Changelog().All(ctx); err != nil {
			return fmt.Errorf("read changelog: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	files := []struct {
		name string
		data any
	}{
		{"items.json", nonNilSlice(items)},
		{"locations.json", nonNilSlice(locations)},
		{"changelog.json", nonNilSlice(changelog)},
	}
	for _, f := range files {
		fw, err := zw.Create(f.name)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(fw)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f.data); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return zw.Close()
}

// Upload builds an archive and stores it in the bucket
func (s *BackupService) Upload(ctx context.Context) (*objectstore.ObjectInfo, error) {
	if s.objects == nil {
		return nil, ErrBackupUploadDisabled
	}
	var buf bytes.Buffer
	if err := s.Export(ctx, &buf); err != nil {
		return nil, err
	}

	now := s.now()
	key := path.Join(s.prefix, fmt.Sprintf("inventar-%s-%s.zip", now.Format(timeutil.FileLayout), uuid.NewString()))
	if err := s.objects.Put(ctx, key, bytes.NewReader(buf.Bytes()), "application/zip"); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"component": "backup", "key": key, "bytes": buf.Len()}).Info("backup uploaded")
	return &objectstore.ObjectInfo{Key: key, Size: int64(buf.Len()), LastModified: now}, nil
}

// List returns uploaded backups, newest first
func (s *BackupService) List(ctx context.Context) ([]objectstore.ObjectInfo, error) {
	if s.objects == nil {
		return nil, ErrBackupUploadDisabled
	}
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}
	infos, err := s.objects.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []objectstore.ObjectInfo{}
	}
	return infos, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
