// Package domain holds the employee roster models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/stellapay/stellapay/pkg/db/pagination"
)

var (
	ErrEmployeeNotFound = errors.New("employee_not_found")
	ErrDuplicateWallet  = errors.New("duplicate_wallet_address")
	ErrInvalidSalary    = errors.New("invalid_salary")
	ErrMissingWallet    = errors.New("missing_wallet_address")
)

type Employee struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	EmployerID    snowflake.ID `json:"employer_id" gorm:"not null;index"`
	Name          string       `json:"name" gorm:"type:text;not null"`
	Email         string       `json:"email" gorm:"type:text"`
	WalletAddress string       `json:"wallet_address" gorm:"type:text;not null;uniqueIndex:idx_employees_employer_wallet,composite:employer"`
	Position      string       `json:"position" gorm:"type:text"`
	Salary        int64        `json:"salary" gorm:"not null"`
	Asset         string       `json:"asset" gorm:"type:text;not null;default:'XLM'"`
	Active        bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
}

func (Employee) TableName() string { return "employees" }

// Stats aggregates the roster for the employer dashboard.
type Stats struct {
	TotalEmployees  int64 `json:"total_employees"`
	ActiveEmployees int64 `json:"active_employees"`
	TotalSalary     int64 `json:"total_salary"`
	AverageSalary   int64 `json:"average_salary"`
}

type ListFilter struct {
	EmployerID snowflake.ID
	ActiveOnly bool
	Pagination pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, e *Employee) error
	Update(ctx context.Context, e *Employee) error
	FindByID(ctx context.Context, id snowflake.ID) (*Employee, error)
	List(ctx context.Context, filter ListFilter) ([]Employee, *pagination.PageInfo, error)
	Stats(ctx context.Context, employerID snowflake.ID) (*Stats, error)
}

type CreateRequest struct {
	EmployerID    snowflake.ID `json:"employer_id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	WalletAddress string       `json:"wallet_address"`
	Position      string       `json:"position"`
	Salary        int64        `json:"salary"`
	Asset         string       `json:"asset"`
}

type UpdateRequest struct {
	ID            snowflake.ID `json:"id"`
	Name          *string      `json:"name"`
	Email         *string      `json:"email"`
	WalletAddress *string      `json:"wallet_address"`
	Position      *string      `json:"position"`
	Salary        *int64       `json:"salary"`
	Active        *bool        `json:"active"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Employee, error)
	Update(ctx context.Context, req UpdateRequest) (*Employee, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Employee, error)
	List(ctx context.Context, filter ListFilter) ([]Employee, *pagination.PageInfo, error)
	Deactivate(ctx context.Context, id snowflake.ID) (*Employee, error)
	Stats(ctx context.Context, employerID snowflake.ID) (*Stats, error)
}
