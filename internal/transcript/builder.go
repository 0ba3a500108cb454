// Package transcript turns diarized word sequences into
// speaker-attributed transcript segments.
package transcript

import (
	"strings"

	"github.com/meetscribe/server/internal/recognition"
)

// Segment is one contiguous run of speech by a single speaker.
type Segment struct {
	Speaker int    `json:"speaker"`
	Text    string `json:"text"`
}

// BuildSegments folds a word sequence into segments, starting a new
// segment every time the speaker index changes. Words keep their
// punctuated form and are joined with single spaces. Returns an empty
// slice for empty input.
func BuildSegments(words []recognition.Word) []Segment {
	segments := []Segment{}
	if len(words) == 0 {
		return segments
	}

	currSpeaker := words[0].Speaker
	var text strings.Builder

	for _, w := range words {
		if w.Speaker == currSpeaker {
			if text.Len() > 0 {
				text.WriteString(" ")
			}
			text.WriteString(w.PunctuatedWord)
			continue
		}

		segments = append(segments, Segment{
			Speaker: currSpeaker,
			Text:    strings.TrimSpace(text.String()),
		})
		currSpeaker = w.Speaker
		text.Reset()
		text.WriteString(w.PunctuatedWord)
	}

	if text.Len() > 0 {
		segments = append(segments, Segment{
			Speaker: currSpeaker,
			Text:    strings.TrimSpace(text.String()),
		})
	}

	return segments
}
