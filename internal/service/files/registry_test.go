package files

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ekorkmaz/voxboard/internal/model/file"
)

type fakeGateway struct {
	listed    []file.UploadedFile
	listErr   error
	uploadErr map[string]error
	deleteErr error

	uploads []string
	deletes []int64
	nextID  int64
}

func (g *fakeGateway) ListFiles(ctx context.Context) ([]file.UploadedFile, error) {
	return g.listed, g.listErr
}

func (g *fakeGateway) UploadFile(ctx context.Context, name string, contents io.Reader) (file.UploadedFile, error) {
	if err := g.uploadErr[name]; err != nil {
		return file.UploadedFile{}, err
	}
	g.uploads = append(g.uploads, name)
	g.nextID++
	return file.UploadedFile{ID: g.nextID, Name: name, Type: file.Category(name)}, nil
}

func (g *fakeGateway) DeleteFile(ctx context.Context, id int64) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deletes = append(g.deletes, id)
	return nil
}

func writeTempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("payload"), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadReplacesVisibleList(t *testing.T) {
	gw := &fakeGateway{listed: []file.UploadedFile{{ID: 1, Name: "a.png"}, {ID: 2, Name: "b.mp3"}}}
	reg := NewRegistry(gw)

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(reg.Files()); got != 2 {
		t.Fatalf("expected 2 files, got %d", got)
	}

	gw.listed = []file.UploadedFile{{ID: 3, Name: "c.jpg"}}
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	files := reg.Files()
	if len(files) != 1 || files[0].ID != 3 {
		t.Fatalf("expected reload to replace the list, got %+v", files)
	}
}

func TestUploadFiltersRejectedCategories(t *testing.T) {
	gw := &fakeGateway{uploadErr: map[string]error{}}
	reg := NewRegistry(gw)

	selection := []Local{
		{Path: writeTempFile(t, "photo.png")},
		{Path: writeTempFile(t, "notes.txt")},
		{Path: writeTempFile(t, "song.mp3"), MediaType: "audio/mpeg"},
	}

	results, err := reg.Upload(context.Background(), selection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results after filtering, got %d", len(results))
	}
	if len(gw.uploads) != 2 || gw.uploads[0] != "photo.png" || gw.uploads[1] != "song.mp3" {
		t.Fatalf("unexpected upload set: %v", gw.uploads)
	}
	if got := len(reg.Files()); got != 2 {
		t.Fatalf("expected 2 files visible after upload, got %d", got)
	}
}

func TestUploadAllRejectedIsValidationError(t *testing.T) {
	gw := &fakeGateway{}
	reg := NewRegistry(gw)

	selection := []Local{
		{Path: writeTempFile(t, "a.txt")},
		{Path: writeTempFile(t, "b.pdf")},
	}

	if _, err := reg.Upload(context.Background(), selection); !errors.Is(err, ErrNoAcceptedFiles) {
		t.Fatalf("expected ErrNoAcceptedFiles, got %v", err)
	}
	if len(gw.uploads) != 0 {
		t.Fatal("expected no network call for an all-rejected selection")
	}
}

func TestUploadContinuesPastPerFileFailure(t *testing.T) {
	gw := &fakeGateway{uploadErr: map[string]error{"bad.png": errors.New("413 too large")}}
	reg := NewRegistry(gw)

	selection := []Local{
		{Path: writeTempFile(t, "bad.png")},
		{Path: writeTempFile(t, "good.jpg")},
	}

	results, err := reg.Upload(context.Background(), selection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected per-file results, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Fatal("expected first result to carry the upload error")
	}
	if results[1].Err != nil {
		t.Fatalf("expected second upload to succeed, got %v", results[1].Err)
	}

	files := reg.Files()
	if len(files) != 1 || files[0].Name != "good.jpg" {
		t.Fatalf("expected only the successful upload visible, got %+v", files)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	gw := &fakeGateway{}
	reg := NewRegistry(gw)

	if err := reg.Delete(context.Background(), 1, false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if len(gw.deletes) != 0 {
		t.Fatal("expected no delete call before confirmation")
	}
}

func TestDeleteRemovesEntryOnSuccess(t *testing.T) {
	gw := &fakeGateway{listed: []file.UploadedFile{{ID: 1, Name: "a.png"}, {ID: 2, Name: "b.mp3"}}}
	reg := NewRegistry(gw)
	reg.Load(context.Background())

	if err := reg.Delete(context.Background(), 1, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	files := reg.Files()
	if len(files) != 1 || files[0].ID != 2 {
		t.Fatalf("expected entry 1 removed, got %+v", files)
	}
}

func TestDeleteFailureLeavesListUnchanged(t *testing.T) {
	gw := &fakeGateway{
		listed:    []file.UploadedFile{{ID: 1, Name: "a.png"}},
		deleteErr: errors.New("404 not found"),
	}
	reg := NewRegistry(gw)
	reg.Load(context.Background())

	if err := reg.Delete(context.Background(), 1, true); err == nil {
		t.Fatal("expected delete error to surface")
	}
	if got := len(reg.Files()); got != 1 {
		t.Fatalf("expected list unchanged after failed delete, got %d entries", got)
	}
}
