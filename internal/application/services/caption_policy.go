package services

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
)

// blockedCaptionTerms holds lowercase whole words rejected in captions.
var blockedCaptionTerms = map[string]struct{}{}

func init() {
	for _, t := range []string{
		"porn", "porno", "pornography", "xxx", "nude", "nudes", "naked", "nudity",
		"nsfw", "sex", "sexual", "sexy", "erotic", "erotica", "fetish",
		"fuck", "fucker", "fucking", "fucked", "fucks",
		"shit", "bullshit",
		"cock", "dick", "penis", "vagina", "pussy", "cunt", "ass", "asshole",
		"boob", "boobs", "breast", "breasts", "nipple", "nipples",
		"rape", "molest", "pedophile", "pedo", "loli",
		"bitch", "whore", "slut", "bastard",
	} {
		blockedCaptionTerms[t] = struct{}{}
	}
}

// CheckCaption enforces the caption length cap and the blocked term list.
// Terms match whole words, so "class" or "grass" are fine.
func CheckCaption(caption string, maxLength int) error {
	if maxLength > 0 && utf8.RuneCountInString(caption) > maxLength {
		return &generation.Error{
			Kind:    generation.KindCaller,
			Message: fmt.Sprintf("Caption too long (max %d characters)", maxLength),
			Err:     generation.ErrCaptionTooLong,
		}
	}
	words := strings.FieldsFunc(strings.ToLower(caption), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		if _, blocked := blockedCaptionTerms[w]; blocked {
			return generation.ErrBlockedCaption
		}
	}
	return nil
}
