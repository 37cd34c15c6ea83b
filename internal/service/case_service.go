package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"caseflow/internal/cache"
	"caseflow/internal/casenumber"
	apperrors "caseflow/internal/errors"
	"caseflow/internal/metrics"
	"caseflow/internal/model"
	"caseflow/internal/policy"
	"caseflow/internal/repository"
	"caseflow/internal/workflow"
)

const statsCacheKey = "dashboard:stats"

// SubmitInput is a new case as received from the front office.
type SubmitInput struct {
	CaseType    model.CaseType
	Payload     model.Payload
	Documents   []string
	SubmittedBy string
}

// ActInput is a workflow action requested on a case.
type ActInput struct {
	Action       model.Action
	Comment      string
	AssignedTo   string
	AssignedTeam string
}

// ActResult is the outcome of a successful workflow action.
type ActResult struct {
	Case    *model.Case
	Status  model.CaseStatus
	Message string
}

// CaseService routes cases through their lifecycle.
type CaseService interface {
	Submit(ctx context.Context, in SubmitInput) (*model.Case, error)
	List(ctx context.Context, actor model.Actor) ([]model.CaseSummary, error)
	Get(ctx context.Context, actor model.Actor, id string) (*model.Case, error)
	Act(ctx context.Context, actor model.Actor, id string, in ActInput) (*ActResult, error)
	ListAssignableUsers(ctx context.Context, actor model.Actor) ([]model.User, error)
	DashboardStats(ctx context.Context, actor model.Actor) (*model.DashboardStats, error)
}

// Options tunes the case service. Zero values fall back to defaults.
type Options struct {
	StoreTimeout   time.Duration
	MaxActAttempts int
	StatsCacheTTL  time.Duration
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
	if o.MaxActAttempts <= 0 {
		o.MaxActAttempts = 3
	}
	if o.StatsCacheTTL <= 0 {
		o.StatsCacheTTL = time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type caseService struct {
	cases   repository.CaseRepository
	users   repository.UserRepository
	cache   *cache.Client
	metrics *metrics.Metrics
	log     *zap.Logger
	alloc   *casenumber.Allocator
	opts    Options
	locks   caseLocks
}

// NewCaseService creates a case service. cache, metrics and log may be nil.
func NewCaseService(
	cases repository.CaseRepository,
	users repository.UserRepository,
	cache *cache.Client,
	m *metrics.Metrics,
	log *zap.Logger,
	opts Options,
) CaseService {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &caseService{
		cases:   cases,
		users:   users,
		cache:   cache,
		metrics: m,
		log:     log.Named("cases"),
		alloc:   casenumber.NewAllocator(opts.Now),
		opts:    opts,
		locks:   caseLocks{held: make(map[string]*caseLock)},
	}
}

type caseLock struct {
	mu   sync.Mutex
	refs int
}

// caseLocks serialises writers per case. Entries live only while a caller
// holds or waits for them.
type caseLocks struct {
	mu   sync.Mutex
	held map[string]*caseLock
}

// lock blocks until caseID is free and returns the matching unlock.
func (l *caseLocks) lock(caseID string) (unlock func()) {
	l.mu.Lock()
	cl, ok := l.held[caseID]
	if !ok {
		cl = &caseLock{}
		l.held[caseID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.held, caseID)
		}
		l.mu.Unlock()
	}
}

func (s *caseService) now() time.Time {
	return s.opts.Now().UTC().Truncate(time.Millisecond)
}

func (s *caseService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

// storeFailure normalises store errors. Deadline overruns become ErrTransient.
func (s *caseService) storeFailure(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrTransient) {
		err = fmt.Errorf("%w: %v", apperrors.ErrTransient, err)
	}
	if errors.Is(err, apperrors.ErrTransient) {
		s.metrics.IncrementStoreUnavailable()
		s.log.Error("store unavailable", zap.String("op", op), zap.Error(err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Submit creates a case with a freshly allocated case number.
func (s *caseService) Submit(ctx context.Context, in SubmitInput) (*model.Case, error) {
	start := time.Now()
	defer s.metrics.ObserveSubmit(start)

	if !casenumber.KnownType(in.CaseType) {
		return nil, fmt.Errorf("%w: unknown case_type %q", apperrors.ErrValidation, in.CaseType)
	}

	now := s.now()
	payload := in.Payload
	if payload == nil {
		payload = model.Payload{}
	}
	documents := model.Documents(in.Documents)
	if documents == nil {
		documents = model.Documents{}
	}
	c := &model.Case{
		ID:          uuid.NewString(),
		CaseType:    in.CaseType,
		Payload:     payload,
		Documents:   documents,
		SubmittedBy: in.SubmittedBy,
		Status:      model.CaseStatusSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.History = []model.WorkflowEvent{workflow.Submission(c.ID, now)}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err := s.cases.WithTransaction(sctx, func(ctx context.Context, repo repository.CaseRepository) error {
		number, err := s.alloc.Next(ctx, repo, c.CaseType)
		if err != nil {
			return err
		}
		c.CaseNumber = number
		return repo.InsertCase(ctx, c)
	})
	if err != nil {
		return nil, s.storeFailure("submit case", err)
	}

	s.invalidateStats(ctx)
	s.metrics.IncrementSubmitted(string(c.CaseType))
	s.log.Info("case submitted",
		zap.String("case_id", c.ID),
		zap.String("case_number", c.CaseNumber),
		zap.String("case_type", string(c.CaseType)),
	)
	return c, nil
}

// List returns the cases visible to actor, most recently created first.
func (s *caseService) List(ctx context.Context, actor model.Actor) ([]model.CaseSummary, error) {
	filter := policy.ListFilter(actor)
	if filter.MatchNone {
		return []model.CaseSummary{}, nil
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	cases, err := s.cases.FindCases(sctx, filter)
	if err != nil {
		return nil, s.storeFailure("list cases", err)
	}

	out := make([]model.CaseSummary, 0, len(cases))
	for i := range cases {
		out = append(out, cases[i].Summary())
	}
	return out, nil
}

// Get returns a single case if actor may read it.
func (s *caseService) Get(ctx context.Context, actor model.Actor, id string) (*model.Case, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	c, err := s.cases.FindCaseByID(sctx, id)
	if err != nil {
		return nil, s.storeFailure("get case", err)
	}
	if !policy.ForCase(actor, c).CanRead() {
		return nil, fmt.Errorf("get case %s: %w", id, apperrors.ErrForbidden)
	}
	return c, nil
}

// Act applies a workflow action. A lost optimistic write is retried from a fresh read.
func (s *caseService) Act(ctx context.Context, actor model.Actor, id string, in ActInput) (*ActResult, error) {
	start := time.Now()
	defer s.metrics.ObserveAct(start)

	unlock := s.locks.lock(id)
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxActAttempts; attempt++ {
		c, err := s.tryAct(ctx, actor, id, in)
		if err == nil {
			s.invalidateStats(ctx)
			s.metrics.IncrementTransition(string(in.Action))
			s.log.Info("case transitioned",
				zap.String("case_id", c.ID),
				zap.String("case_number", c.CaseNumber),
				zap.String("actor_id", actor.UserID),
				zap.String("action", string(in.Action)),
				zap.String("status", string(c.Status)),
			)
			return &ActResult{
				Case:    c,
				Status:  c.Status,
				Message: fmt.Sprintf("Case %s successfully", in.Action),
			}, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		s.metrics.IncrementConflict()
		s.log.Warn("case changed concurrently, retrying",
			zap.String("case_id", id),
			zap.Int("attempt", attempt),
		)
		lastErr = err
	}
	return nil, fmt.Errorf("act on case %s: gave up after %d attempts: %w", id, s.opts.MaxActAttempts, lastErr)
}

func (s *caseService) tryAct(ctx context.Context, actor model.Actor, id string, in ActInput) (*model.Case, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	c, err := s.cases.FindCaseByID(sctx, id)
	if err != nil {
		return nil, s.storeFailure("act on case", err)
	}
	access := policy.ForCase(actor, c)
	if !access.CanAct() {
		return nil, fmt.Errorf("act on case %s (%s): %w", id, access, apperrors.ErrForbidden)
	}

	res, err := workflow.Transition(c, workflow.Request{
		Action:       in.Action,
		Comment:      in.Comment,
		AssignedTo:   in.AssignedTo,
		AssignedTeam: in.AssignedTeam,
		Actor:        actor,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if in.Action == model.ActionAssign {
		if err := s.checkAssignee(sctx, *res.AssignedTo); err != nil {
			return nil, err
		}
	}

	err = s.cases.UpdateCaseStatusAndAppendHistory(sctx, id, repository.StatusUpdate{
		ExpectedVersion: c.Version,
		ExpectedStatus:  c.Status,
		Status:          res.Status,
		AssignedTo:      res.AssignedTo,
		AssignedTeam:    res.AssignedTeam,
		Event:           res.Event,
		UpdatedAt:       res.UpdatedAt,
	})
	if err != nil {
		return nil, s.storeFailure("act on case", err)
	}

	res.ApplyTo(c)
	c.Version++
	return c, nil
}

func (s *caseService) checkAssignee(ctx context.Context, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: assigned_to %q is not a known user", apperrors.ErrValidation, userID)
	}
	if err != nil {
		return s.storeFailure("resolve assignee", err)
	}
	if !u.Assignable() {
		return fmt.Errorf("%w: assigned_to %q is not an active staff user", apperrors.ErrValidation, userID)
	}
	return nil
}

// ListAssignableUsers returns active staff users. Only registrars and supervisors may browse them.
func (s *caseService) ListAssignableUsers(ctx context.Context, actor model.Actor) ([]model.User, error) {
	if !policy.CanListAssignableUsers(actor.Role) {
		return nil, fmt.Errorf("list users as %s: %w", actor.Role, apperrors.ErrForbidden)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	users, err := s.users.FindActive(sctx)
	if err != nil {
		return nil, s.storeFailure("list users", err)
	}

	out := make([]model.User, 0, len(users))
	for i := range users {
		if users[i].Assignable() {
			out = append(out, users[i])
		}
	}
	return out, nil
}

// DashboardStats aggregates counts over all cases. my_assigned is only reported
// for roles that work their own assignments.
func (s *caseService) DashboardStats(ctx context.Context, actor model.Actor) (*model.DashboardStats, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	stats, err := s.globalStats(sctx)
	if err != nil {
		return nil, s.storeFailure("dashboard stats", err)
	}

	if policy.TracksOwnAssignments(actor.Role) {
		n, err := s.cases.CountAssignedTo(sctx, actor.UserID)
		if err != nil {
			return nil, s.storeFailure("dashboard stats", err)
		}
		stats.MyAssigned = &n
	}
	return stats, nil
}

func (s *caseService) globalStats(ctx context.Context) (*model.DashboardStats, error) {
	var cached model.DashboardStats
	if hit, err := s.cache.GetJSON(ctx, statsCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	var byStatus, byType []repository.GroupCount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.cases.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		byType, err = s.cases.CountByType(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &model.DashboardStats{
		ByStatus: toCountMap(byStatus),
		ByType:   toCountMap(byType),
	}
	if err := s.cache.SetJSON(ctx, statsCacheKey, stats, s.opts.StatsCacheTTL); err != nil {
		s.log.Warn("cache dashboard stats", zap.Error(err))
	}
	return stats, nil
}

func (s *caseService) invalidateStats(ctx context.Context) {
	_ = s.cache.Delete(context.WithoutCancel(ctx), statsCacheKey)
}

func toCountMap(rows []repository.GroupCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Grp] = r.Count
	}
	return out
}
