package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/domain/audit"
	"github.com/avatarctic/petportrait/internal/core/ports"
)

// ErrAuditDisabled is returned by ListGenerations when no repository is wired.
var ErrAuditDisabled = errors.New("generation history is not enabled")

type AuditService struct {
	repo   ports.GenerationAuditRepository
	logger *logrus.Logger
}

// NewAuditService accepts a nil repo, in which case records are only logged.
func NewAuditService(repo ports.GenerationAuditRepository, logger *logrus.Logger) ports.AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

func (s *AuditService) Enabled() bool { return s.repo != nil }

func (s *AuditService) RecordGeneration(ctx context.Context, rec *audit.GenerationRecord) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if s.repo == nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"record_id": rec.ID, "outcome": rec.Outcome, "topic": rec.Topic, "mode": rec.Mode}).Debug("audit persistence disabled; record not stored")
		}
		return
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"record_id": rec.ID, "outcome": rec.Outcome, "request_id": rec.RequestID}).WithError(err).Error("failed to persist generation record")
		}
		return
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"record_id": rec.ID, "outcome": rec.Outcome, "request_id": rec.RequestID}).Debug("generation record persisted")
	}
}

func (s *AuditService) ListGenerations(ctx context.Context, filter *audit.RecordFilter) ([]*audit.GenerationRecord, int, error) {
	if s.repo == nil {
		return nil, 0, ErrAuditDisabled
	}
	if filter == nil {
		filter = &audit.RecordFilter{}
	}
	filter.Normalize()

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
