// Package memory provides an in-memory, thread-safe session store used by
// tests and single-process deployments that do not require durability. Like
// the filesystem store it hands out detached copies, so listing sessions is
// safe while the orchestrator mutates one under its lock.
package memory

import (
	"context"

	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/service/dao"
	"github.com/viant/loanflow/service/dao/store"
)

// Service implements an in-memory session store with status-based List
// filtering.
type Service struct {
	*store.MemoryStore[string, session.Session]
}

var _ dao.Service[string, session.Session] = (*Service)(nil)

// List returns copies of stored sessions, optionally filtered by status.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*session.Session, error) {
	all, err := s.MemoryStore.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*session.Session, 0, len(all))
	for _, sess := range all {
		if !dao.FilterByStatus(string(sess.Status), parameters) {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[string, session.Session](
			func(s *session.Session) string { return s.ID },
			func(s *session.Session) *session.Session { return s.Clone() },
		),
	}
}
