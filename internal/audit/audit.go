// Package audit records who did what to which payroll. Entries are
// append-only; nothing in the system updates or deletes them.
package audit

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	obscontext "github.com/stellapay/stellapay/internal/observability/context"
	"github.com/stellapay/stellapay/internal/observability/logger"
)

type Entry struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	EmployerID snowflake.ID      `json:"employer_id" gorm:"index"`
	ActorType  string            `json:"actor_type" gorm:"type:text"`
	ActorID    string            `json:"actor_id" gorm:"type:text"`
	Action     string            `json:"action" gorm:"type:text;not null;index"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   string            `json:"target_id" gorm:"type:text;not null;index"`
	Metadata   datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt  int64             `json:"created_at" gorm:"autoCreateTime:milli"`
}

func (Entry) TableName() string { return "audit_logs" }

// Service appends audit entries. Failures are logged and swallowed: an
// audit miss must never fail the business operation it describes.
type Service interface {
	Record(ctx context.Context, employerID snowflake.ID, action, targetType, targetID string, metadata map[string]any)
	ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]Entry, error)
}

type service struct {
	db   *gorm.DB
	node *snowflake.Node
	log  *zap.Logger
}

func NewService(db *gorm.DB, node *snowflake.Node, log *zap.Logger) Service {
	return &service{db: db, node: node, log: log}
}

func (s *service) Record(ctx context.Context, employerID snowflake.ID, action, targetType, targetID string, metadata map[string]any) {
	actorType, actorID := obscontext.ActorFromContext(ctx)
	entry := Entry{
		ID:         s.node.Generate(),
		EmployerID: employerID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   datatypes.JSONMap(metadata),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.WithContext(ctx, s.log).Warn("audit write failed",
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
	}
}

func (s *service) ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 250 {
		limit = 50
	}
	var entries []Entry
	err := s.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
