package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/ports"
)

const (
	moderationClean    = "clean"
	moderationFlagged  = "flagged"
	moderationFailOpen = "fail_open"
	moderationSkipped  = "skipped"
)

// ModerationService screens uploads and captions before generation.
//
// It fails open: when the provider cannot produce a verdict the content is
// treated as clean. A flagged verdict always rejects.
type ModerationService struct {
	provider ports.ModerationProvider
	enabled  bool
	metrics  *Metrics
	logger   *logrus.Logger
}

func NewModerationService(provider ports.ModerationProvider, enabled bool, metrics *Metrics, logger *logrus.Logger) *ModerationService {
	return &ModerationService{provider: provider, enabled: enabled && provider != nil, metrics: metrics, logger: logger}
}

func (s *ModerationService) Moderate(ctx context.Context, image []byte, imageContentType, text string) []string {
	if !s.enabled || (len(image) == 0 && text == "") {
		s.metrics.observeModeration(moderationSkipped)
		return nil
	}

	verdict, err := s.provider.Moderate(ctx, &ports.ModerationInput{
		Text:             text,
		Image:            image,
		ImageContentType: imageContentType,
	})
	if err != nil {
		return s.failOpen(err)
	}
	if verdict == nil || !verdict.Flagged {
		s.metrics.observeModeration(moderationClean)
		return nil
	}

	categories := flaggedCategories(verdict)
	s.metrics.observeModeration(moderationFlagged)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"categories": categories, "provider": s.provider.Name()}).Warn("moderation: content flagged")
	}
	return categories
}

// failOpen is the outage branch: the error is logged and the content passes.
func (s *ModerationService) failOpen(err error) []string {
	s.metrics.observeModeration(moderationFailOpen)
	if s.logger != nil {
		s.logger.WithError(err).WithField("provider", s.provider.Name()).Warn("moderation: provider unavailable, skipping check (fail-open)")
	}
	return nil
}

// flaggedCategories returns the true categories in stable order. A flagged
// verdict without categories still rejects.
func flaggedCategories(v *ports.ModerationVerdict) []string {
	out := make([]string, 0, len(v.Categories))
	for name, hit := range v.Categories {
		if hit {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	if len(out) == 0 {
		out = append(out, "unspecified")
	}
	return out
}
