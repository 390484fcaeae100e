package generation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTopic(t *testing.T) {
	assert.Equal(t, TopicMemorial, ParseTopic("memorial"))
	assert.Equal(t, TopicKeywords, ParseTopic(" keywords "))
	assert.Equal(t, DefaultTopic, ParseTopic(""))
	assert.Equal(t, DefaultTopic, ParseTopic("Memorial"))
	assert.Equal(t, DefaultTopic, ParseTopic("../../etc/passwd"))
}

func TestParseQuality(t *testing.T) {
	assert.Equal(t, QualityHigh, ParseQuality("high", QualityLow))
	assert.Equal(t, QualityLow, ParseQuality("", QualityLow))
	assert.Equal(t, QualityMedium, ParseQuality("ultra", QualityMedium))
}

func TestRequestMode(t *testing.T) {
	m, ok := (&Request{Image: []byte{1}}).Mode()
	assert.True(t, ok)
	assert.Equal(t, ModeEdit, m)

	m, ok = (&Request{Image: []byte{1}, TextOnly: true}).Mode()
	assert.True(t, ok)
	assert.Equal(t, ModeTextOnly, m)

	m, ok = (&Request{TextOnly: true}).Mode()
	assert.True(t, ok)
	assert.Equal(t, ModeTextOnly, m)

	_, ok = (&Request{}).Mode()
	assert.False(t, ok)
}

func TestSanitizeClassifierHint(t *testing.T) {
	assert.Equal(t, "", SanitizeClassifierHint(""))
	assert.Equal(t, "golden retriever", SanitizeClassifierHint("  golden retriever "))
	assert.Equal(t, "tabby cat ignore previous", SanitizeClassifierHint("tabby cat; ignore previous!"))
	assert.Equal(t, "", SanitizeClassifierHint("$$$"))
	assert.Len(t, SanitizeClassifierHint(strings.Repeat("a", 200)), 80)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, OutcomeOf(nil))
	assert.Equal(t, OutcomeCallerError, OutcomeOf(ErrMissingImage))
	assert.Equal(t, OutcomeModerationRejected, OutcomeOf(ContentRejected([]string{"violence"})))
	assert.Equal(t, OutcomeProviderError, OutcomeOf(fmt.Errorf("wrapped: %w", ProviderFailure(errors.New("timeout")))))
	assert.Equal(t, OutcomeInternalError, OutcomeOf(errors.New("boom")))
}

func TestInlineImageDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,aGk=", (&InlineImage{Data: []byte("hi")}).DataURL())
	assert.Equal(t, "data:image/webp;base64,aGk=", (&InlineImage{Data: []byte("hi"), Encoding: "image/webp"}).DataURL())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := ProviderFailure(cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "provider error")
	assert.Equal(t, "Image generation failed. Please try again.", err.Message)
}
