package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "caseflow/internal/errors"
	"caseflow/internal/model"
	"caseflow/internal/policy"
)

type caseRepository struct {
	db *gorm.DB
}

// NewCaseRepository creates a gorm-backed case repository.
func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

// InsertCase creates the case row and its history rows.
func (r *caseRepository) InsertCase(ctx context.Context, c *model.Case) error {
	return classify("insert case", r.db.WithContext(ctx).Create(c).Error)
}

// FindCaseByID finds a case by ID with its history in append order.
func (r *caseRepository) FindCaseByID(ctx context.Context, id string) (*model.Case, error) {
	var c model.Case
	err := r.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, classify("find case "+id, err)
	}
	return &c, nil
}

// FindCases lists cases matching the access filter, most recently created first.
func (r *caseRepository) FindCases(ctx context.Context, filter policy.Filter) ([]model.Case, error) {
	if filter.MatchNone {
		return []model.Case{}, nil
	}
	q := r.db.WithContext(ctx).Model(&model.Case{})
	if !filter.MatchAll {
		q = q.Where("assigned_to = ? OR status = ?", filter.AssignedTo, filter.Status)
	}
	var cases []model.Case
	if err := q.Order("created_at DESC").Order("case_number DESC").Find(&cases).Error; err != nil {
		return nil, classify("find cases", err)
	}
	return cases, nil
}

// UpdateCaseStatusAndAppendHistory performs a version-checked update and appends the event.
func (r *caseRepository) UpdateCaseStatusAndAppendHistory(ctx context.Context, id string, u StatusUpdate) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Case{}).
			Where("id = ? AND version = ? AND status = ?", id, u.ExpectedVersion, u.ExpectedStatus).
			Updates(map[string]any{
				"status":        u.Status,
				"assigned_to":   u.AssignedTo,
				"assigned_team": u.AssignedTeam,
				"updated_at":    u.UpdatedAt,
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&model.Case{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return gorm.ErrRecordNotFound
			}
			return fmt.Errorf("case %s changed since read: %w", id, apperrors.ErrConflict)
		}
		ev := u.Event
		ev.CaseID = id
		return tx.Create(&ev).Error
	})
	return classify("update case "+id, err)
}

// NextSequence bumps the counter row and reads it back. The UPDATE holds the row
// lock until the surrounding transaction ends, so run it via WithTransaction.
func (r *caseRepository) NextSequence(ctx context.Context, caseType model.CaseType, year int) (int64, error) {
	db := r.db.WithContext(ctx)
	seed := model.CaseSequence{CaseType: caseType, Year: year}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, classify("seed sequence", err)
	}
	err := db.Model(&model.CaseSequence{}).
		Where("case_type = ? AND year = ?", caseType, year).
		Update("value", gorm.Expr("value + 1")).Error
	if err != nil {
		return 0, classify("bump sequence", err)
	}
	var seq model.CaseSequence
	err = db.Where("case_type = ? AND year = ?", caseType, year).First(&seq).Error
	if err != nil {
		return 0, classify("read sequence", err)
	}
	return seq.Value, nil
}

// CountByStatus counts cases per status.
func (r *caseRepository) CountByStatus(ctx context.Context) ([]GroupCount, error) {
	return r.countBy(ctx, "status")
}

// CountByType counts cases per case type.
func (r *caseRepository) CountByType(ctx context.Context) ([]GroupCount, error) {
	return r.countBy(ctx, "case_type")
}

func (r *caseRepository) countBy(ctx context.Context, column string) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).Model(&model.Case{}).
		Select(column + " AS grp, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, classify("count by "+column, err)
	}
	return rows, nil
}

// CountAssignedTo counts cases assigned to userID.
func (r *caseRepository) CountAssignedTo(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Case{}).Where("assigned_to = ?", userID).Count(&n).Error
	if err != nil {
		return 0, classify("count assigned", err)
	}
	return n, nil
}

// WithTransaction executes a function within a database transaction.
func (r *caseRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CaseRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &caseRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
