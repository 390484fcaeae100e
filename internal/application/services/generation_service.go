package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/domain/audit"
	"github.com/avatarctic/petportrait/internal/core/domain/generation"
	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
	"github.com/avatarctic/petportrait/internal/core/ports"
)

// GenerationService runs one request through validation, moderation, prompt
// composition, provider dispatch and result assembly, strictly in that order.
// It never retries; the identical-output fallback is left to the caller.
type GenerationService struct {
	moderation       ports.ModerationGate
	composer         ports.PromptComposer
	dispatcher       *Dispatcher
	audit            ports.AuditService
	maxCaptionLength int
	metrics          *Metrics
	logger           *logrus.Logger
}

type GenerationServiceConfig struct {
	MaxCaptionLength int
}

func NewGenerationService(
	moderation ports.ModerationGate,
	composer ports.PromptComposer,
	dispatcher *Dispatcher,
	auditSvc ports.AuditService,
	cfg *GenerationServiceConfig,
	metrics *Metrics,
	logger *logrus.Logger,
) *GenerationService {
	maxCaption := 150
	if cfg != nil && cfg.MaxCaptionLength > 0 {
		maxCaption = cfg.MaxCaptionLength
	}
	return &GenerationService{
		moderation:       moderation,
		composer:         composer,
		dispatcher:       dispatcher,
		audit:            auditSvc,
		maxCaptionLength: maxCaption,
		metrics:          metrics,
		logger:           logger,
	}
}

func (s *GenerationService) Generate(ctx context.Context, req *generation.Request) (res *generation.Result, err error) {
	mode, _ := req.Mode()
	rec := &audit.GenerationRecord{
		ClientIP:  ratelimit.MaskIdentity(req.ClientIdentity),
		Topic:     string(req.Topic),
		Quality:   string(req.Quality),
		Size:      req.Size,
		Mode:      string(mode),
		RequestID: req.RequestID,
	}
	var outcome generation.Outcome
	defer func() {
		if outcome == "" {
			outcome = generation.OutcomeOf(err)
		}
		s.finish(ctx, req, rec, outcome, err)
	}()

	if err = s.validate(req); err != nil {
		return nil, err
	}

	if categories := s.moderation.Moderate(ctx, req.Image, req.ImageContentType, req.Caption); len(categories) > 0 {
		return nil, generation.ContentRejected(categories)
	}

	prompt := s.composer.Compose(req.Topic, req.Caption, mode == generation.ModeEdit, req.ClassifierHint)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"topic": req.Topic, "mode": mode, "prompt": prompt}).Debug("prompt composed")
	}

	d, err := s.dispatcher.Dispatch(ctx, req, prompt)
	if d != nil {
		rec.LatencyMs = d.Latency.Milliseconds()
		rec.CostUSD = d.CostUSD
		rec.Model = d.Call.Model
	}
	if err != nil {
		return nil, err
	}

	res, outcome, err = assembleResult(d, req.Image)
	return res, err
}

func (s *GenerationService) validate(req *generation.Request) error {
	if _, ok := req.Mode(); !ok {
		return generation.ErrMissingImage
	}
	if req.Topic == generation.TopicKeywords && strings.TrimSpace(req.Caption) == "" {
		return generation.ErrMissingKeywords
	}
	return CheckCaption(req.Caption, s.maxCaptionLength)
}

func (s *GenerationService) finish(ctx context.Context, req *generation.Request, rec *audit.GenerationRecord, outcome generation.Outcome, err error) {
	mode, _ := req.Mode()
	s.metrics.observeGeneration(mode, outcome)

	if s.logger != nil {
		entry := s.logger.WithFields(logrus.Fields{
			"request_id": req.RequestID,
			"identity":   rec.ClientIP,
			"topic":      req.Topic,
			"mode":       mode,
			"outcome":    outcome,
			"latency_ms": rec.LatencyMs,
		})
		switch kind := generation.KindOf(err); {
		case err == nil:
			entry.Info("generation finished")
		case kind == generation.KindProvider || kind == generation.KindInternal:
			entry.WithError(err).Error("generation failed")
		default:
			entry.WithError(err).Info("generation rejected")
		}
	}

	if s.audit != nil {
		rec.Outcome = string(outcome)
		rec.CreatedAt = time.Now().UTC()
		s.audit.RecordGeneration(ctx, rec)
	}
}
