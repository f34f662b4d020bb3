package loanflow

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/loanflow/internal/keylock"
	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/policy"
	"github.com/viant/loanflow/service/action/agreement"
	"github.com/viant/loanflow/service/action/dataquery"
	"github.com/viant/loanflow/service/action/geopolicy"
	"github.com/viant/loanflow/service/action/purpose"
	"github.com/viant/loanflow/service/action/risk"
	"github.com/viant/loanflow/service/action/salary"
	"github.com/viant/loanflow/service/capability"
	"github.com/viant/loanflow/service/dao"
	escfs "github.com/viant/loanflow/service/dao/escalation/fs"
	escmem "github.com/viant/loanflow/service/dao/escalation/memory"
	sessfs "github.com/viant/loanflow/service/dao/session/fs"
	sessmem "github.com/viant/loanflow/service/dao/session/memory"
	"github.com/viant/loanflow/service/escalation"
	"github.com/viant/loanflow/service/messaging"
	qmem "github.com/viant/loanflow/service/messaging/memory"
	"github.com/viant/loanflow/service/orchestrator"
)

// Service is the façade wiring the capability registry, the stores, the
// escalation manager and the orchestrator together.
type Service struct {
	config         *Config
	runtime        *Runtime
	sessions       dao.Service[string, session.Session]
	escalations    dao.Service[string, escalation.Record]
	events         messaging.Queue[escalation.Event]
	tables         *policy.Tables
	applicants     map[string]*dataquery.Profile
	extraProviders []capability.Service
	locks          *keylock.Mutex
	registry       *capability.Registry
}

// New creates a fully wired engine. Without options it runs self-contained:
// in-memory stores, built-in policy tables and sample applicant profiles.
func New(options ...Option) *Service {
	ret := &Service{config: DefaultConfig(), runtime: &Runtime{}, locks: keylock.New()}
	ret.init(options)
	return ret
}

// NewFromConfig creates an engine from a configuration, resolving any
// file-system store, policy and applicant locations it names.
func NewFromConfig(ctx context.Context, config *Config, options ...Option) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	resolved := []Option{WithConfig(config)}
	if config.Store.SessionsURL != "" {
		sessions, err := sessfs.New(config.Store.SessionsURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		resolved = append(resolved, WithSessionDAO(sessions))
	}
	if config.Store.EscalationsURL != "" {
		escalations, err := escfs.New(config.Store.EscalationsURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open escalation store: %w", err)
		}
		resolved = append(resolved, WithEscalationDAO(escalations))
	}
	if config.PolicyURL != "" {
		tables, err := policy.Load(ctx, config.PolicyURL)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, WithPolicyTables(tables))
	}
	if config.ApplicantsURL != "" {
		provider, err := dataquery.NewFromURL(ctx, config.ApplicantsURL)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, WithCapabilities(provider))
	}
	return New(append(resolved, options...)...), nil
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.registry = capability.NewRegistry()
	s.registry.Register(dataquery.New(s.applicants))
	s.registry.Register(purpose.New(s.tables))
	s.registry.Register(geopolicy.New(s.tables))
	s.registry.Register(risk.New())
	s.registry.Register(salary.New())
	s.registry.Register(agreement.New())
	for _, provider := range s.extraProviders {
		s.registry.Register(provider)
	}

	invoker := capability.NewInvoker(s.registry, time.Duration(s.config.StepTimeout))
	s.runtime.escalations = escalation.New(s.sessions, s.escalations, s.events, s.locks)
	s.runtime.orchestrator = orchestrator.New(s.config.Orchestrator.asConfig(), s.sessions, s.runtime.escalations, invoker, s.locks)
	s.runtime.sessions = s.sessions
	s.runtime.events = s.events
	s.runtime.registry = s.registry
}

func (s *Service) ensureBaseSetup() {
	if s.sessions == nil {
		s.sessions = sessmem.New()
	}
	if s.escalations == nil {
		s.escalations = escmem.New()
	}
	if s.events == nil {
		s.events = qmem.NewQueue[escalation.Event](qmem.DefaultConfig())
	}
	if s.tables == nil {
		s.tables = policy.Default()
	}
	if s.applicants == nil {
		s.applicants = dataquery.SampleApplicants()
	}
}

// Register adds a capability provider after construction, replacing any
// provider with the same name.
func (s *Service) Register(provider capability.Service) {
	s.registry.Register(provider)
}

// Runtime exposes the wired runtime services.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Orchestrator is shorthand for Runtime().Orchestrator().
func (s *Service) Orchestrator() *orchestrator.Service {
	return s.runtime.Orchestrator()
}

// Escalations is shorthand for Runtime().Escalations().
func (s *Service) Escalations() *escalation.Manager {
	return s.runtime.Escalations()
}
