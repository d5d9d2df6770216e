package files

import (
	"context"
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/ekorkmaz/voxboard/internal/model/file"
)

var (
	// ErrNoAcceptedFiles means the whole selection was filtered out before
	// any network call was made.
	ErrNoAcceptedFiles = errors.New("selection contains no image (.png, .jpg, .jpeg) or audio files")
	// ErrNotConfirmed means the user has not confirmed a delete yet.
	ErrNotConfirmed = errors.New("delete not confirmed")
)

// Gateway is the slice of the backend API the registry needs.
type Gateway interface {
	ListFiles(ctx context.Context) ([]file.UploadedFile, error)
	UploadFile(ctx context.Context, name string, contents io.Reader) (file.UploadedFile, error)
	DeleteFile(ctx context.Context, id int64) error
}

// Local describes one file picked for upload. MediaType may be left empty,
// in which case it is derived from the extension.
type Local struct {
	Path      string
	Name      string
	MediaType string
}

// UploadResult reports the outcome for one file of a selection. A failure on
// one file never aborts the rest of the batch.
type UploadResult struct {
	Name string
	File file.UploadedFile
	Err  error
}

// Registry mirrors the user's uploaded-file list against the backend. It has
// no independent authority: the visible list always reflects backend state
// at last sync.
type Registry struct {
	gw Gateway

	mu    sync.Mutex
	files []file.UploadedFile
}

// NewRegistry builds an empty registry over the gateway.
func NewRegistry(gw Gateway) *Registry {
	return &Registry{gw: gw}
}

// Load replaces the visible list with the backend's records.
func (r *Registry) Load(ctx context.Context) error {
	listed, err := r.gw.ListFiles(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.files = listed
	r.mu.Unlock()
	return nil
}

// Files returns a copy of the visible list.
func (r *Registry) Files() []file.UploadedFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]file.UploadedFile, len(r.files))
	copy(copied, r.files)
	return copied
}

// Upload filters the selection to accepted categories and uploads the
// survivors one at a time, appending each to the visible list as its upload
// succeeds. An empty filtered selection is a validation error and performs
// no network call.
func (r *Registry) Upload(ctx context.Context, selection []Local) ([]UploadResult, error) {
	accepted := make([]Local, 0, len(selection))
	for _, l := range selection {
		if l.Name == "" {
			l.Name = filepath.Base(l.Path)
		}
		if l.MediaType == "" {
			l.MediaType = mime.TypeByExtension(filepath.Ext(l.Name))
		}
		if file.Accepted(l.Name, l.MediaType) {
			accepted = append(accepted, l)
		}
	}

	if len(accepted) == 0 {
		return nil, ErrNoAcceptedFiles
	}

	results := make([]UploadResult, 0, len(accepted))
	for _, l := range accepted {
		uploaded, err := r.uploadOne(ctx, l)
		if err != nil {
			results = append(results, UploadResult{Name: l.Name, Err: err})
			continue
		}

		r.mu.Lock()
		r.files = append(r.files, uploaded)
		r.mu.Unlock()
		results = append(results, UploadResult{Name: l.Name, File: uploaded})
	}
	return results, nil
}

func (r *Registry) uploadOne(ctx context.Context, l Local) (file.UploadedFile, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return file.UploadedFile{}, err
	}
	defer f.Close()

	return r.gw.UploadFile(ctx, l.Name, f)
}

// Delete removes one file after explicit confirmation. On success the entry
// leaves the visible list; on failure the list stays unchanged.
func (r *Registry) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	if err := r.gw.DeleteFile(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.files[:0]
	for _, f := range r.files {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	r.files = kept
	return nil
}
