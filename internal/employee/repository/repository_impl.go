package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stellapay/stellapay/internal/employee/domain"
	"github.com/stellapay/stellapay/pkg/db"
	"github.com/stellapay/stellapay/pkg/db/pagination"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) domain.Repository {
	return &repository{db: conn}
}

func (r *repository) Insert(ctx context.Context, e *domain.Employee) error {
	err := r.db.WithContext(ctx).Create(e).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateWallet
	}
	return err
}

func (r *repository) Update(ctx context.Context, e *domain.Employee) error {
	err := r.db.WithContext(ctx).Save(e).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateWallet
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Employee, error) {
	var e domain.Employee
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Employee, *pagination.PageInfo, error) {
	pageSize := filter.Pagination.Limit()

	q := r.db.WithContext(ctx).Model(&domain.Employee{})
	if filter.EmployerID != 0 {
		q = q.Where("employer_id = ?", filter.EmployerID)
	}
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
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

	var rows []domain.Employee
	if err := q.Order("created_at DESC").Order("id DESC").Limit(pageSize + 1).Find(&rows).Error; err != nil {
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

func (r *repository) Stats(ctx context.Context, employerID snowflake.ID) (*domain.Stats, error) {
	var stats domain.Stats
	base := r.db.WithContext(ctx).Model(&domain.Employee{}).Where("employer_id = ?", employerID)

	if err := base.Session(&gorm.Session{}).Count(&stats.TotalEmployees).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("active = ?", true).Count(&stats.ActiveEmployees).Error; err != nil {
		return nil, err
	}

	var total struct{ Total int64 }
	err := base.Session(&gorm.Session{}).
		Where("active = ?", true).
		Select("COALESCE(SUM(salary), 0) AS total").
		Scan(&total).Error
	if err != nil {
		return nil, err
	}
	stats.TotalSalary = total.Total
	if stats.ActiveEmployees > 0 {
		stats.AverageSalary = stats.TotalSalary / stats.ActiveEmployees
	}
	return &stats, nil
}
