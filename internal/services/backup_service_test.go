package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"inventar-backend/internal/models"
	"inventar-backend/internal/objectstore"
)

type memoryObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryObjects) Put(_ context.Context, key string, body io.ReadSeeker, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryObjects) List(_ context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	var out []objectstore.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, objectstore.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	files := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		files[f.Name], _ = io.ReadAll(rc)
		_ = rc.Close()
	}
	return files
}

func TestBackupExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createLocation(t, env, "Regal", nil)
	item := env.createItem(t, "Zollstock", "")
	env.updateItem(t, item, "Gliedermaßstab", "")

	var buf bytes.Buffer
	if err := NewBackupService(env.store, nil, "").Export(ctx, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	files := readZip(t, buf.Bytes())

	var items []models.Item
	if err := json.Unmarshal(files["items.json"], &items); err != nil || len(items) != 1 || items[0].Name != "Gliedermaßstab" {
		t.Fatalf("items.json: %v %+v", err, items)
	}
	var locations []models.Location
	if err := json.Unmarshal(files["locations.json"], &locations); err != nil || len(locations) != 1 {
		t.Fatalf("locations.json: %v %+v", err, locations)
	}
	var changelog []models.ChangelogEntry
	if err := json.Unmarshal(files["changelog.json"], &changelog); err != nil || len(changelog) != 3 {
		t.Fatalf("changelog.json: %v %d", err, len(changelog))
	}
	if changelog[0].ChangeType != models.ChangeCreate || changelog[2].ChangeType != models.ChangeUpdate {
		t.Fatalf("expected oldest first, got %s..%s", changelog[0].ChangeType, changelog[2].ChangeType)
	}
}

func TestBackupUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createItem(t, "Wasserwaage", "")

	if _, err := NewBackupService(env.store, nil, "backups").Upload(ctx); !errors.Is(err, ErrBackupUploadDisabled) {
		t.Fatalf("expected upload disabled, got %v", err)
	}

	objects := &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
	svc := NewBackupService(env.store, objects, "backups")
	info, err := svc.Upload(ctx)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(info.Key, "backups/inventar-") || !strings.HasSuffix(info.Key, ".zip") {
		t.Fatalf("unexpected key %q", info.Key)
	}
	if objects.types[info.Key] != "application/zip" {
		t.Fatalf("unexpected content type %q", objects.types[info.Key])
	}
	if files := readZip(t, objects.objects[info.Key]); len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 || list[0].Key != info.Key {
		t.Fatalf("list: %+v %v", list, err)
	}
}

func TestChangelogPDF(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "Heißklebepistole", "")
	if err := env.items.Delete(ctx, item.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}

	pdf, err := NewReportService(env.changelog, 100).ChangelogPDF(ctx)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", pdf[:min(len(pdf), 8)])
	}
}
