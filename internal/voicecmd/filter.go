// Package voicecmd classifies raw transcripts before they reach the LLM:
// whether they contain anything worth responding to, and whether the user is
// asking the robot to go back to sleep.
package voicecmd

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// stopPhrases end the conversation when they appear anywhere in a transcript.
var stopPhrases = []string{
	"stop",
	"exit",
	"quit",
	"shut down",
	"go to sleep",
}

// maxEditDistance is the Damerau-Levenshtein tolerance for STT misspellings
// of a lone stop command ("stopp", "quitt").
const maxEditDistance = 1

// HasContent reports whether the transcript contains at least one letter or
// digit. Whisper likes to emit punctuation-only artifacts ("...", ". .") for
// silence; those must not be sent to the LLM.
func HasContent(transcript string) bool {
	for _, r := range transcript {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// IsStopPhrase reports whether the transcript asks to end the conversation.
// Matching is case-insensitive containment on word boundaries: "please stop
// now" matches "stop", but "quite" does not match "quit". A transcript that
// is a single word additionally tolerates one edit of transcription noise
// against the single-word phrases, so a lone "stopp" or "quitt" still ends
// the conversation.
func IsStopPhrase(transcript string) bool {
	words := strings.FieldsFunc(strings.ToLower(transcript), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return false
	}

	padded := " " + strings.Join(words, " ") + " "
	for _, phrase := range stopPhrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}

	// The fuzzy pass applies only when the whole utterance is one word.
	// Edit distance inside a sentence ends conversations on everyday words
	// ("step", "suit", "exist"), so longer transcripts get exact word
	// containment only.
	if len(words) != 1 {
		return false
	}
	word := words[0]
	for _, phrase := range stopPhrases {
		if strings.Contains(phrase, " ") {
			continue
		}
		if len(word) >= len(phrase) && matchr.DamerauLevenshtein(word, phrase) <= maxEditDistance {
			return true
		}
	}
	return false
}
