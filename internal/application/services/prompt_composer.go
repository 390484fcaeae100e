package services

import (
	"strings"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
)

const (
	captionPlaceholder = "{{caption}}"
	animalPlaceholder  = "{{animal}}"
	defaultAnimal      = "pet"
)

// editTemplates are used when the provider sees the photo, so they refer to
// "the uploaded animal".
var editTemplates = map[generation.Topic]string{
	generation.TopicCelebration: "A joyful, colorful celebration scene centered around the uploaded animal. Add confetti, warm sunlight, and a festive banner that reads '{{caption}}'. Photorealistic, bright, high detail.",
	generation.TopicMemorial:    "A respectful, soft-toned portrait of the uploaded animal with gentle light and a subtle floral arrangement. Soft vignette, cinematic film look, calm and reverent.",
	generation.TopicRetirement:  "A playful retirement-themed scene with the uploaded animal wearing a party hat and holding a small cake, warm tones, whimsical photorealism.",
	generation.TopicFantasy:     "Transform the uploaded animal into a fantasy creature with glowing wings and soft magical light. Painterly, highly detailed.",
	generation.TopicKeywords:    captionPlaceholder,
}

// textOnlyTemplates name the subject through {{animal}} because no photo is
// sent.
var textOnlyTemplates = map[generation.Topic]string{
	generation.TopicCelebration: "A joyful, colorful celebration scene featuring a {{animal}} as the star. Add confetti, warm sunlight, and a festive banner that reads '{{caption}}'. Photorealistic, vibrant, high detail.",
	generation.TopicMemorial:    "A respectful, soft-toned portrait of a {{animal}} with gentle golden light and a subtle arrangement of flowers. Soft vignette, cinematic film look, calm and reverent.",
	generation.TopicRetirement:  "A whimsical retirement-themed scene with a {{animal}} wearing a party hat and holding a small cake, warm tones, playful photorealism.",
	generation.TopicFantasy:     "A {{animal}} transformed into a majestic fantasy creature with glowing wings and ethereal soft light. Painterly, highly detailed, magical.",
	generation.TopicKeywords:    captionPlaceholder,
}

// PromptComposer builds provider prompts from the theme tables.
type PromptComposer struct{}

func NewPromptComposer() *PromptComposer { return &PromptComposer{} }

func (PromptComposer) Compose(topic generation.Topic, caption string, hasImage bool, classifierHint string) string {
	if !topic.Valid() {
		topic = generation.DefaultTopic
	}

	var template string
	if hasImage {
		template = editTemplates[topic]
	} else {
		animal := classifierHint
		if animal == "" {
			animal = defaultAnimal
		}
		template = strings.Replace(textOnlyTemplates[topic], animalPlaceholder, animal, 1)
	}
	return applyCaption(template, caption)
}

// applyCaption fills the caption slot, or appends the caption when the
// template has none.
func applyCaption(template, caption string) string {
	if strings.Contains(template, captionPlaceholder) {
		return strings.Replace(template, captionPlaceholder, caption, 1)
	}
	if caption == "" {
		return template
	}
	return template + " " + caption
}
