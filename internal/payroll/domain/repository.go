package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stellapay/stellapay/pkg/db/pagination"
)

// ListFilter narrows payroll listings.
type ListFilter struct {
	EmployerID      snowflake.ID
	Status          PayrollStatus
	IncludeArchived bool
	Pagination      pagination.Pagination
}

// Repository persists payrolls and their recipients.
//
// Every write path that changes payroll state goes through UpdateCAS, which
// enforces the version guard. There is no unconditional update.
type Repository interface {
	Insert(ctx context.Context, p *Payroll) error
	FindByID(ctx context.Context, id snowflake.ID) (*Payroll, error)
	List(ctx context.Context, filter ListFilter) ([]Payroll, *pagination.PageInfo, error)

	// UpdateCAS reloads the payroll inside a transaction, verifies the
	// version matches expectedVersion, applies mutate, bumps the version and
	// writes the row guarded by "WHERE version = expectedVersion". It returns
	// ErrConcurrentModification when any other writer got there first, and
	// propagates mutate's error without writing anything.
	UpdateCAS(ctx context.Context, id snowflake.ID, expectedVersion int64, mutate func(tx *gorm.DB, p *Payroll) error) (*Payroll, error)

	// ListStuck returns payrolls sitting in a transitional status since
	// before cutoff, oldest first, capped at limit. The batch is claimed
	// under FOR UPDATE SKIP LOCKED inside one transaction, so rows held by
	// a concurrent pass's open claim are skipped; once the claim commits,
	// duplicate processing is harmless because every resolution write goes
	// through the version guard.
	ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]Payroll, error)

	CountByStatus(ctx context.Context, status PayrollStatus) (int64, error)
}
