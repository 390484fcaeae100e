package generation

import (
	"regexp"
	"strings"
)

type Topic string

const (
	TopicCelebration Topic = "celebration"
	TopicMemorial    Topic = "memorial"
	TopicRetirement  Topic = "retirement"
	TopicFantasy     Topic = "fantasy"
	// TopicKeywords uses the caller's caption as the whole prompt.
	TopicKeywords Topic = "keywords"

	DefaultTopic = TopicCelebration
)

var allowedTopics = map[Topic]struct{}{
	TopicCelebration: {},
	TopicMemorial:    {},
	TopicRetirement:  {},
	TopicFantasy:     {},
	TopicKeywords:    {},
}

// ParseTopic never fails: anything outside the allow-list maps to DefaultTopic.
func ParseTopic(raw string) Topic {
	t := Topic(strings.TrimSpace(raw))
	if _, ok := allowedTopics[t]; ok {
		return t
	}
	return DefaultTopic
}

func (t Topic) Valid() bool {
	_, ok := allowedTopics[t]
	return ok
}

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality returns fallback for empty or unknown values.
func ParseQuality(raw string, fallback Quality) Quality {
	switch q := Quality(strings.TrimSpace(raw)); q {
	case QualityLow, QualityMedium, QualityHigh:
		return q
	}
	return fallback
}

type Mode string

const (
	ModeEdit     Mode = "edit"
	ModeTextOnly Mode = "text_only"
)

// Request is one generation call as received from a client. It is built once
// by the transport layer and not mutated afterwards.
type Request struct {
	Image            []byte
	ImageContentType string
	Topic            Topic
	Caption          string
	Quality          Quality
	Size             string
	TextOnly         bool
	ClassifierHint   string
	ClientIdentity   string
	RequestID        string
}

func (r *Request) HasImage() bool { return len(r.Image) > 0 }

// Mode reports which provider operation the request resolves to. The second
// value is false when the request has no image and did not ask for text-only
// generation.
func (r *Request) Mode() (Mode, bool) {
	if r.TextOnly {
		return ModeTextOnly, true
	}
	if r.HasImage() {
		return ModeEdit, true
	}
	return "", false
}

const maxClassifierHintLength = 80

var classifierHintDisallowed = regexp.MustCompile(`[^a-zA-Z0-9 _-]`)

// SanitizeClassifierHint strips the free-form classifier label down to safe
// characters. An empty result means no hint.
func SanitizeClassifierHint(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := strings.TrimSpace(classifierHintDisallowed.ReplaceAllString(raw, ""))
	if len(cleaned) > maxClassifierHintLength {
		cleaned = cleaned[:maxClassifierHintLength]
	}
	return cleaned
}

// Result is the success envelope returned to callers. Exactly one of URL and
// Identical is set.
type Result struct {
	URL             string  `json:"url,omitempty"`
	Identical       bool    `json:"identical,omitempty"`
	Message         string  `json:"message,omitempty"`
	TextOnly        bool    `json:"text_only,omitempty"`
	LatencyMs       int64   `json:"latency_ms"`
	CostUSD         float64 `json:"cost_usd"`
	ModelUsed       string  `json:"model_used"`
	SizeUsed        string  `json:"size_used"`
	PromptUsed      string  `json:"prompt_used"`
	ImageDimensions string  `json:"image_dimensions,omitempty"`
}

type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeIdentical          Outcome = "identical"
	OutcomeCallerError        Outcome = "caller_error"
	OutcomeModerationRejected Outcome = "moderation_rejected"
	OutcomeProviderError      Outcome = "provider_error"
	OutcomeInternalError      Outcome = "internal_error"
	OutcomeRateLimited        Outcome = "rate_limited"
)
