package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stellapay/stellapay/internal/payroll/domain"
	"github.com/stellapay/stellapay/pkg/db/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns the gorm-backed payroll repository.
func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, p *Payroll) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Payroll aliased locally to keep signatures readable.
type Payroll = domain.Payroll

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*Payroll, error) {
	var p Payroll
	err := r.db.WithContext(ctx).
		Preload("Recipients").
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPayrollNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter) ([]Payroll, *pagination.PageInfo, error) {
	pageSize := filter.Pagination.Limit()

	q := r.db.WithContext(ctx).Model(&Payroll{})
	if filter.EmployerID != 0 {
		q = q.Where("employer_id = ?", filter.EmployerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.IncludeArchived {
		q = q.Where("archived_at IS NULL")
	}
	if filter.Pagination.PageToken != "" {
		cursor, err := pagination.DecodeCursor(filter.Pagination.PageToken)
		if err != nil {
			return nil, nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, nil, err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)",
			createdAt, createdAt, cursor.ID)
	}

	var rows []Payroll
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(pageSize + 1).
		Preload("Recipients").
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	info := &pagination.PageInfo{}
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, nil, err
		}
		info.HasMore = true
		info.NextPageToken = token
	}
	return rows, info, nil
}

func (r *repository) UpdateCAS(ctx context.Context, id snowflake.ID, expectedVersion int64, mutate func(tx *gorm.DB, p *Payroll) error) (*Payroll, error) {
	var out *Payroll
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Payroll
		err := tx.Preload("Recipients").First(&p, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrPayrollNotFound
		}
		if err != nil {
			return err
		}
		if p.Version != expectedVersion {
			return domain.ErrConcurrentModification
		}

		if err := mutate(tx, &p); err != nil {
			return err
		}
		p.Version = expectedVersion + 1

		// The version predicate is the single-winner guard: under
		// read-committed two racing transactions can both pass the check
		// above, but only one UPDATE matches the old version.
		res := tx.Model(&Payroll{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Select("*").Omit("Recipients", "id", "created_at").
			Updates(&p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConcurrentModification
		}

		for i := range p.Recipients {
			if err := tx.Save(&p.Recipients[i]).Error; err != nil {
				return err
			}
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]Payroll, error) {
	var rows []Payroll
	// The whole claim runs in one transaction so FOR UPDATE holds the
	// payroll rows until the batch (recipients included) is read; a
	// concurrent pass with an open claim transaction skips them.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status IN ?", []domain.PayrollStatus{
				domain.PayrollStatusFunding,
				domain.PayrollStatusReleasing,
			}).
			Where("escrow_tx_ref <> ''").
			Where("transition_at IS NOT NULL AND transition_at <= ?", cutoff).
			Order("transition_at ASC").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}

		for i := range rows {
			if err := tx.
				Where("payroll_id = ?", rows[i].ID).
				Find(&rows[i].Recipients).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountByStatus(ctx context.Context, status domain.PayrollStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Payroll{}).
		Where("status = ?", status).
		Count(&n).Error
	return n, err
}
