// Package fs provides a durable, filesystem-backed session store. One JSON
// object per session id; Save replaces the object wholesale so a reader never
// observes a partially written record.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/service/dao"
)

// Service implements a filesystem-based session store.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ dao.Service[string, session.Session] = (*Service)(nil)

// Save persists a session, replacing any previous record for the same id.
func (s *Service) Save(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return dao.ErrNilEntity
	}
	if sess.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}
	location := s.sessionURL(sess.ID)
	if err := s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save session to %s: %w", location, err)
	}
	return nil
}

// Load retrieves a session by id, including its full step history.
func (s *Service) Load(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	location := s.sessionURL(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check session %s: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	sess := &session.Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return sess, nil
}

// Delete removes a session record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.sessionURL(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check session %s: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err := s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// List returns all stored sessions, optionally filtered by status.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var sessions []*session.Session
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			continue
		}
		sess := &session.Session{}
		if err := json.Unmarshal(data, sess); err != nil {
			continue
		}
		if !dao.FilterByStatus(string(sess.Status), parameters) {
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (s *Service) sessionURL(id string) string {
	return path.Join(s.baseURL, fmt.Sprintf("%s.json", id))
}

// New creates a filesystem session store rooted at baseURL.
func New(baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	fs := afs.New()
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create session store directory: %w", err)
		}
	}
	baseURL = url.Normalize(baseURL, file.Scheme)
	return &Service{baseURL: baseURL, fs: fs}, nil
}
