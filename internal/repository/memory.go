package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	apperrors "caseflow/internal/errors"
	"caseflow/internal/model"
	"caseflow/internal/policy"
)

type sequenceKey struct {
	caseType model.CaseType
	year     int
}

// MemoryStore is an in-process CaseRepository and UserRepository.
// Values are cloned on the way in and out so callers never share state with the store.
type MemoryStore struct {
	// txMu serialises writers. A transaction holds it until commit.
	txMu sync.Mutex

	mu        sync.RWMutex
	cases     map[string]*model.Case
	numbers   map[string]string
	sequences map[sequenceKey]int64
	users     map[string]*model.User
	usernames map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:     make(map[string]*model.Case),
		numbers:   make(map[string]string),
		sequences: make(map[sequenceKey]int64),
		users:     make(map[string]*model.User),
		usernames: make(map[string]string),
	}
}

var (
	_ CaseRepository = (*MemoryStore)(nil)
	_ UserRepository = (*MemoryStore)(nil)
)

// InsertCase stores a new case.
func (s *MemoryStore) InsertCase(ctx context.Context, c *model.Case) error {
	if err := ctx.Err(); err != nil {
		return classify("insert case", err)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(c)
}

func (s *MemoryStore) insertLocked(c *model.Case) error {
	if _, ok := s.cases[c.ID]; ok {
		return fmt.Errorf("insert case %s: %w", c.ID, apperrors.ErrConflict)
	}
	if _, ok := s.numbers[c.CaseNumber]; ok {
		return fmt.Errorf("insert case number %s: %w", c.CaseNumber, apperrors.ErrConflict)
	}
	stored := c.Clone()
	for i := range stored.History {
		stored.History[i].CaseID = c.ID
	}
	s.cases[c.ID] = stored
	s.numbers[c.CaseNumber] = c.ID
	return nil
}

// FindCaseByID returns a copy of the case with its history.
func (s *MemoryStore) FindCaseByID(ctx context.Context, id string) (*model.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("find case", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("find case %s: %w", id, apperrors.ErrNotFound)
	}
	return c.Clone(), nil
}

// FindCases returns copies of matching cases, newest first, without history.
func (s *MemoryStore) FindCases(ctx context.Context, filter policy.Filter) ([]model.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("find cases", err)
	}
	s.mu.RLock()
	out := make([]model.Case, 0, len(s.cases))
	for _, c := range s.cases {
		if !filter.Matches(c) {
			continue
		}
		cp := c.Clone()
		cp.History = nil
		out = append(out, *cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CaseNumber > out[j].CaseNumber
	})
	return out, nil
}

// UpdateCaseStatusAndAppendHistory applies u if the case is still at the expected version and status.
func (s *MemoryStore) UpdateCaseStatusAndAppendHistory(ctx context.Context, id string, u StatusUpdate) error {
	if err := ctx.Err(); err != nil {
		return classify("update case", err)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return fmt.Errorf("update case %s: %w", id, apperrors.ErrNotFound)
	}
	if c.Version != u.ExpectedVersion || c.Status != u.ExpectedStatus {
		return fmt.Errorf("update case %s: changed since read: %w", id, apperrors.ErrConflict)
	}
	next := c.Clone()
	next.Status = u.Status
	next.AssignedTo = cloneOptional(u.AssignedTo)
	next.AssignedTeam = cloneOptional(u.AssignedTeam)
	next.UpdatedAt = u.UpdatedAt
	next.Version++
	ev := u.Event
	ev.CaseID = id
	next.History = append(next.History, ev)
	s.cases[id] = next
	return nil
}

// NextSequence increments the (caseType, year) counter.
func (s *MemoryStore) NextSequence(ctx context.Context, caseType model.CaseType, year int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, classify("next sequence", err)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sequenceKey{caseType: caseType, year: year}
	s.sequences[k]++
	return s.sequences[k], nil
}

// CountByStatus counts cases per status.
func (s *MemoryStore) CountByStatus(ctx context.Context) ([]GroupCount, error) {
	return s.countBy(ctx, func(c *model.Case) string { return string(c.Status) })
}

// CountByType counts cases per case type.
func (s *MemoryStore) CountByType(ctx context.Context) ([]GroupCount, error) {
	return s.countBy(ctx, func(c *model.Case) string { return string(c.CaseType) })
}

func (s *MemoryStore) countBy(ctx context.Context, key func(*model.Case) string) ([]GroupCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("count cases", err)
	}
	s.mu.RLock()
	counts := make(map[string]int64)
	for _, c := range s.cases {
		counts[key(c)]++
	}
	s.mu.RUnlock()

	out := make([]GroupCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, GroupCount{Grp: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Grp < out[j].Grp })
	return out, nil
}

// CountAssignedTo counts cases assigned to userID.
func (s *MemoryStore) CountAssignedTo(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, classify("count assigned", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, c := range s.cases {
		if c.IsAssignedTo(userID) {
			n++
		}
	}
	return n, nil
}

// WithTransaction runs fn against a staging view. Staged sequences and inserts are
// applied together when fn returns nil and discarded otherwise.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CaseRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memoryTx{
		MemoryStore: s,
		sequences:   make(map[sequenceKey]int64),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return classify("commit", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range tx.inserts {
		if _, ok := s.cases[c.ID]; ok {
			return fmt.Errorf("commit case %s: %w", c.ID, apperrors.ErrConflict)
		}
		if _, ok := s.numbers[c.CaseNumber]; ok {
			return fmt.Errorf("commit case number %s: %w", c.CaseNumber, apperrors.ErrConflict)
		}
	}
	for k, v := range tx.sequences {
		s.sequences[k] = v
	}
	for _, c := range tx.inserts {
		_ = s.insertLocked(c)
	}
	return nil
}

// memoryTx stages writes made inside WithTransaction. The parent's txMu is held
// for its whole lifetime, so its reads of the parent cannot go stale.
type memoryTx struct {
	*MemoryStore
	sequences map[sequenceKey]int64
	inserts   []*model.Case
}

func (t *memoryTx) InsertCase(ctx context.Context, c *model.Case) error {
	if err := ctx.Err(); err != nil {
		return classify("insert case", err)
	}
	for _, staged := range t.inserts {
		if staged.ID == c.ID || staged.CaseNumber == c.CaseNumber {
			return fmt.Errorf("insert case %s: %w", c.ID, apperrors.ErrConflict)
		}
	}
	t.inserts = append(t.inserts, c.Clone())
	return nil
}

func (t *memoryTx) NextSequence(ctx context.Context, caseType model.CaseType, year int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, classify("next sequence", err)
	}
	k := sequenceKey{caseType: caseType, year: year}
	v, ok := t.sequences[k]
	if !ok {
		t.mu.RLock()
		v = t.MemoryStore.sequences[k]
		t.mu.RUnlock()
	}
	v++
	t.sequences[k] = v
	return v, nil
}

func (t *memoryTx) UpdateCaseStatusAndAppendHistory(ctx context.Context, id string, u StatusUpdate) error {
	return fmt.Errorf("update case %s: not supported inside a memory transaction", id)
}

func (t *memoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CaseRepository) error) error {
	return fn(ctx, t)
}

// Create stores a new user. Usernames are unique.
func (s *MemoryStore) Create(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return classify("create user", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := s.usernames[user.Username]; ok {
		return fmt.Errorf("create user %s: %w", user.Username, apperrors.ErrConflict)
	}
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("create user %s: %w", user.ID, apperrors.ErrConflict)
	}
	cp := *user
	cp.Team = cloneOptional(user.Team)
	s.users[cp.ID] = &cp
	s.usernames[cp.Username] = cp.ID
	return nil
}

// FindByID returns a copy of the user.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("find user", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("find user %s: %w", id, apperrors.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// FindByUsername returns a copy of the user with the given username.
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("find user", err)
	}
	s.mu.RLock()
	id, ok := s.usernames[username]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("find user by username: %w", apperrors.ErrNotFound)
	}
	return s.FindByID(ctx, id)
}

// FindActive lists active users ordered by username.
func (s *MemoryStore) FindActive(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("list active users", err)
	}
	s.mu.RLock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Active {
			out = append(out, *u)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func cloneOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
