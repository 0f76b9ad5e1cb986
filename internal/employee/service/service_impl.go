package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/stellapay/stellapay/internal/audit"
	"github.com/stellapay/stellapay/internal/clock"
	"github.com/stellapay/stellapay/internal/employee/domain"
	"github.com/stellapay/stellapay/pkg/db/pagination"
)

type service struct {
	repo  domain.Repository
	node  *snowflake.Node
	clock clock.Clock
	audit audit.Service
	log   *zap.Logger
}

func NewService(repo domain.Repository, node *snowflake.Node, clk clock.Clock, auditSvc audit.Service, log *zap.Logger) domain.Service {
	return &service{repo: repo, node: node, clock: clk, audit: auditSvc, log: log}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Employee, error) {
	if req.Salary <= 0 {
		return nil, domain.ErrInvalidSalary
	}
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" {
		return nil, domain.ErrMissingWallet
	}
	asset := req.Asset
	if asset == "" {
		asset = "XLM"
	}

	now := s.clock.Now()
	e := &domain.Employee{
		ID:            s.node.Generate(),
		EmployerID:    req.EmployerID,
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
		WalletAddress: wallet,
		Position:      strings.TrimSpace(req.Position),
		Salary:        req.Salary,
		Asset:         asset,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, e.EmployerID, "employee.created", "employee", e.ID.String(), map[string]any{
		"wallet_address": e.WalletAddress,
	})
	return e, nil
}

func (s *service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Employee, error) {
	e, err := s.repo.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		e.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		e.Email = strings.TrimSpace(*req.Email)
	}
	if req.WalletAddress != nil {
		wallet := strings.TrimSpace(*req.WalletAddress)
		if wallet == "" {
			return nil, domain.ErrMissingWallet
		}
		e.WalletAddress = wallet
	}
	if req.Position != nil {
		e.Position = strings.TrimSpace(*req.Position)
	}
	if req.Salary != nil {
		if *req.Salary <= 0 {
			return nil, domain.ErrInvalidSalary
		}
		e.Salary = *req.Salary
	}
	if req.Active != nil {
		e.Active = *req.Active
	}
	e.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, e.EmployerID, "employee.updated", "employee", e.ID.String(), nil)
	return e, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Employee, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Employee, *pagination.PageInfo, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Deactivate(ctx context.Context, id snowflake.ID) (*domain.Employee, error) {
	active := false
	return s.Update(ctx, domain.UpdateRequest{ID: id, Active: &active})
}

func (s *service) Stats(ctx context.Context, employerID snowflake.ID) (*domain.Stats, error) {
	return s.repo.Stats(ctx, employerID)
}
