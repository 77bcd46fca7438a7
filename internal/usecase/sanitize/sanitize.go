// Package sanitize strips platform markup from message text so the
// result is plain speakable prose.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	mentionRe = regexp.MustCompile(`<@[!&]?\d+>`)
	channelRe = regexp.MustCompile(`<#\d+>`)
	emojiRe   = regexp.MustCompile(`<a?:\w+:\d+>`)
	urlRe     = regexp.MustCompile(`https?://\S+`)

	// Unicode emoji blocks: flags through symbols-extended, misc symbols,
	// dingbats and the emoji variation selector.
	unicodeEmojiRe = regexp.MustCompile(`[\x{1F1E6}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}]`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Clean replaces mentions and channel references with generic
// placeholders, removes custom emoji, replaces URLs with "a link" and
// collapses whitespace. It is a total function: any input, including the
// empty string, yields a (possibly empty) clean string. Callers must
// treat an empty result as nothing to speak.
func Clean(raw string) string {
	text := mentionRe.ReplaceAllString(raw, "someone")
	text = channelRe.ReplaceAllString(text, "a channel")
	text = emojiRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "a link")
	text = unicodeEmojiRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
