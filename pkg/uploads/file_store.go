package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/goliatone/go-appform/pkg/entries"
)

const (
	defaultLockTimeout = 3 * time.Second
	lockRetryInterval  = 50 * time.Millisecond
)

type fileData struct {
	Pending   []entries.Attachment `json:"pending"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) FileOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLockTimeout bounds how long operations wait for the lock file.
func WithLockTimeout(timeout time.Duration) FileOption {
	return func(s *FileStore) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// WithIDFunc overrides id generation.
func WithIDFunc(fn IDFunc) FileOption {
	return func(s *FileStore) {
		if fn != nil {
			s.nextID = fn
		}
	}
}

// FileStore persists pending uploads as JSON. A sibling ".lock" file guards
// against concurrent processes; the mutex guards goroutines.
type FileStore struct {
	path        string
	lock        *flock.Flock
	mu          sync.Mutex
	lockTimeout time.Duration
	nextID      IDFunc
	logger      *zap.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by path. The file is created on first
// write.
func NewFileStore(path string, options ...FileOption) *FileStore {
	s := &FileStore{
		path:        filepath.Clean(path),
		lock:        flock.New(filepath.Clean(path) + ".lock"),
		lockTimeout: defaultLockTimeout,
		nextID:      newID,
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) List(ctx context.Context) ([]entries.Attachment, error) {
	var out []entries.Attachment
	err := s.withLock(ctx, func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		out = data.Pending
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entries.Attachment{}
	}
	return out, nil
}

func (s *FileStore) Add(ctx context.Context, field, name string) (entries.Attachment, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return entries.Attachment{}, ErrFieldRequired
	}
	upload := entries.Attachment{ID: s.nextID(), Field: field, Name: strings.TrimSpace(name)}
	err := s.withLock(ctx, func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		data.Pending = append(data.Pending, upload)
		return s.write(data)
	})
	if err != nil {
		return entries.Attachment{}, err
	}
	s.logger.Debug("pending upload added",
		zap.String("id", string(upload.ID)),
		zap.String("field", upload.Field),
	)
	return upload, nil
}

func (s *FileStore) Remove(ctx context.Context, id entries.AttachmentID) error {
	err := s.withLock(ctx, func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		next, ok := without(data.Pending, id)
		if !ok {
			return ErrNotFound
		}
		data.Pending = next
		return s.write(data)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("pending upload removed", zap.String("id", string(id)))
	return nil
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("uploads: mkdir: %w", err)
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("uploads: acquire lock: %w", err)
	}
	if !locked {
		return errors.New("uploads: could not acquire file lock")
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("release upload lock", zap.Error(err))
		}
	}()
	return fn()
}

func (s *FileStore) read() (fileData, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fileData{}, nil
	}
	if err != nil {
		return fileData{}, fmt.Errorf("uploads: read %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return fileData{}, nil
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fileData{}, fmt.Errorf("uploads: decode %s: %w", s.path, err)
	}
	return data, nil
}

// write replaces the file atomically through a temp file in the same dir.
func (s *FileStore) write(data fileData) error {
	if data.Pending == nil {
		data.Pending = []entries.Attachment{}
	}
	data.UpdatedAt = time.Now().UTC()
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("uploads: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("uploads: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("uploads: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("uploads: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("uploads: rename: %w", err)
	}
	return nil
}
