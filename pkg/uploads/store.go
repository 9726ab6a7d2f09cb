// Package uploads keeps the files an applicant uploaded but has not yet
// submitted. Readers always receive a point-in-time copy of the list.
package uploads

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-appform/pkg/entries"
)

var (
	// ErrNotFound is returned when removing an unknown upload.
	ErrNotFound = errors.New("uploads: upload not found")
	// ErrFieldRequired is returned when adding an upload without a field.
	ErrFieldRequired = errors.New("uploads: field identifier is required")
)

// Store holds pending uploads.
type Store interface {
	List(ctx context.Context) ([]entries.Attachment, error)
	Add(ctx context.Context, field, name string) (entries.Attachment, error)
	Remove(ctx context.Context, id entries.AttachmentID) error
}

// IDFunc generates ids for new uploads.
type IDFunc func() entries.AttachmentID

func newID() entries.AttachmentID {
	return entries.AttachmentID(uuid.NewString())
}

// MemoryStore is a process local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	pending []entries.Attachment
	nextID  IDFunc
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore seeds a store with existing uploads.
func NewMemoryStore(seed ...entries.Attachment) *MemoryStore {
	return &MemoryStore{
		pending: append([]entries.Attachment{}, seed...),
		nextID:  newID,
	}
}

func (s *MemoryStore) List(ctx context.Context) ([]entries.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entries.Attachment{}, s.pending...), nil
}

func (s *MemoryStore) Add(ctx context.Context, field, name string) (entries.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return entries.Attachment{}, err
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return entries.Attachment{}, ErrFieldRequired
	}
	upload := entries.Attachment{ID: s.nextID(), Field: field, Name: strings.TrimSpace(name)}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, upload)
	return upload, nil
}

func (s *MemoryStore) Remove(ctx context.Context, id entries.AttachmentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := without(s.pending, id)
	if !ok {
		return ErrNotFound
	}
	s.pending = next
	return nil
}

func without(list []entries.Attachment, id entries.AttachmentID) ([]entries.Attachment, bool) {
	out := make([]entries.Attachment, 0, len(list))
	found := false
	for _, item := range list {
		if item.ID == id {
			found = true
			continue
		}
		out = append(out, item)
	}
	return out, found
}
