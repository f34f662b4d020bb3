// Package memory provides an in-memory escalation record store built on the
// generic memory store.
package memory

import (
	"context"

	"github.com/viant/loanflow/service/dao"
	"github.com/viant/loanflow/service/dao/store"
	"github.com/viant/loanflow/service/escalation"
)

// Service implements an in-memory escalation record store with status-based
// List filtering.
type Service struct {
	*store.MemoryStore[string, escalation.Record]
}

var _ dao.Service[string, escalation.Record] = (*Service)(nil)

// List returns stored records, optionally filtered by status.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*escalation.Record, error) {
	all, err := s.MemoryStore.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*escalation.Record, 0, len(all))
	for _, record := range all {
		if !dao.FilterByStatus(record.Status, parameters) {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[string, escalation.Record](
			func(r *escalation.Record) string { return r.ID },
			func(r *escalation.Record) *escalation.Record { return r.Clone() },
		),
	}
}
