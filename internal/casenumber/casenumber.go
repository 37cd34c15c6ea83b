// Package casenumber allocates human-readable case numbers of the form PREFIX-YEAR-NNNN.
package casenumber

import (
	"context"
	"fmt"
	"time"

	apperrors "caseflow/internal/errors"
	"caseflow/internal/model"
)

var prefixes = map[model.CaseType]string{
	model.CaseTypeBirthRegistration:    "BR",
	model.CaseTypeBusinessRegistration: "BUS",
	model.CaseTypeLandRegistration:     "LAND",
}

// Prefix returns the case number prefix for t. Unknown case types are rejected.
func Prefix(t model.CaseType) (string, error) {
	p, ok := prefixes[t]
	if !ok {
		return "", fmt.Errorf("%w: unknown case_type %q", apperrors.ErrValidation, t)
	}
	return p, nil
}

// KnownType reports whether t has a case number prefix.
func KnownType(t model.CaseType) bool {
	_, ok := prefixes[t]
	return ok
}

// Format renders a case number. The sequence is zero-padded to four digits and
// widens past 9999 instead of wrapping.
func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

// Sequencer hands out the next value of the (case type, year) counter.
// Implementations must never return the same value twice for a key.
type Sequencer interface {
	NextSequence(ctx context.Context, caseType model.CaseType, year int) (int64, error)
}

// Allocator produces case numbers for the current year.
type Allocator struct {
	now func() time.Time
}

// NewAllocator creates an allocator. A nil clock means time.Now.
func NewAllocator(now func() time.Time) *Allocator {
	if now == nil {
		now = time.Now
	}
	return &Allocator{now: now}
}

// Next reserves the next number for caseType through seq and formats it.
// Run it inside the transaction that persists the case.
func (a *Allocator) Next(ctx context.Context, seq Sequencer, caseType model.CaseType) (string, error) {
	prefix, err := Prefix(caseType)
	if err != nil {
		return "", err
	}
	year := a.now().UTC().Year()
	n, err := seq.NextSequence(ctx, caseType, year)
	if err != nil {
		return "", fmt.Errorf("allocate %s sequence: %w", caseType, err)
	}
	if n < 1 {
		return "", fmt.Errorf("allocate %s sequence: counter returned %d", caseType, n)
	}
	return Format(prefix, year, n), nil
}
