package summary

import (
	"fmt"
	"time"
)

const promptTemplate = `You are an assistant that analyzes meeting transcripts.
The transcript below is diarized: each line starts with "SPEAKER <id>:" where
<id> is a numeric speaker index.

Today's date is %s.

Analyze the transcript and respond with a single JSON object containing exactly
these keys:
- "summary": a concise summary of the meeting as a string.
- "speakers": an array of objects {"speaker_id", "identified_name"} mapping
  each speaker index to a real name when one is mentioned in the conversation,
  otherwise "Unknown".
- "notes": an array of objects {"topic", "speaker"} listing the discussion
  points and who raised them.
- "schedules": an array of objects {"date", "time", "event"} for every dated
  event mentioned.
- "action_items": an array of objects {"task", "assigned_to", "assigned_by",
  "deadline"} for every task assigned during the meeting.
- "trello_tasks": an array of objects {"task", "assigned_to", "assigned_by",
  "deadline", "trello_list"} for action items that should become task cards.

Resolve every relative date expression (such as "tomorrow", "next Friday",
"in two weeks") to an absolute date in YYYY-MM-DD format using today's date.
If a deadline or date is not mentioned, use an empty string. Always include
every key, using empty arrays when there is nothing to report.

Transcript:
%s`

// buildPrompt renders the extraction instruction for a transcript,
// injecting the current date so the model can resolve relative dates.
func buildPrompt(transcriptText string, currentDate time.Time) string {
	return fmt.Sprintf(promptTemplate, currentDate.Format("2006-01-02"), transcriptText)
}
