package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/internal/summary"
	"github.com/meetscribe/server/pkg/logger"
)

// CardResult reports the outcome for one exported task. Exactly one of
// Card or Error is set.
type CardResult struct {
	Task  string `json:"task"`
	Card  *Card  `json:"card,omitempty"`
	Error string `json:"error,omitempty"`
}

// Exporter turns the stored extraction for a meeting into task cards.
type Exporter struct {
	summaries summary.SummaryStore
	cards     CardCreator
	logger    *logger.Logger

	nowFn func() time.Time
}

// NewExporter creates a task exporter.
func NewExporter(summaries summary.SummaryStore, cards CardCreator, log *logger.Logger) *Exporter {
	return &Exporter{
		summaries: summaries,
		cards:     cards,
		logger:    log.Named("tasks"),
		nowFn:     time.Now,
	}
}

// Export creates one card per extracted task for (roomID, participant).
// A failed card is reported in its result and does not stop the batch.
// When no summary exists or it carries no tasks, no remote call is made.
func (e *Exporter) Export(ctx context.Context, roomID, participant string) ([]CardResult, error) {
	record, err := e.summaries.Get(roomID, participant)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to load summary", err)
	}
	if record == nil {
		return nil, apperr.NotFound(fmt.Sprintf("no summary found for room %s", roomID))
	}

	var payload summary.Payload
	if err := json.Unmarshal([]byte(record.Payload), &payload); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "stored summary payload is unreadable", err)
	}
	if len(payload.TrelloTasks) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("no tasks to export for room %s", roomID))
	}

	results := make([]CardResult, 0, len(payload.TrelloTasks))
	for _, task := range payload.TrelloTasks {
		desc := e.buildCardDescription(task, &payload)
		card, err := e.cards.CreateCard(ctx, task.Task, desc)
		if err != nil {
			e.logger.Warn("Card export failed",
				logger.String("task", task.Task),
				logger.Error(err),
			)
			results = append(results, CardResult{Task: task.Task, Error: err.Error()})
			continue
		}
		results = append(results, CardResult{Task: task.Task, Card: card})
	}

	e.logger.Info("Task export complete",
		logger.String("room_id", roomID),
		logger.Int("tasks", len(results)),
	)

	return results, nil
}

// buildCardDescription assembles the card body from the task fields and
// the surrounding meeting context.
func (e *Exporter) buildCardDescription(task summary.TrelloTask, payload *summary.Payload) string {
	assignedTo := task.AssignedTo
	if assignedTo == "" {
		assignedTo = "Unassigned"
	}
	deadline := task.Deadline
	if deadline == "" {
		deadline = "No deadline specified"
	}

	speakerNames := make([]string, 0, len(payload.Speakers))
	for _, speaker := range payload.Speakers {
		name := speaker.IdentifiedName
		if name == "" {
			name = "Unknown"
		}
		speakerNames = append(speakerNames, name)
	}

	noteLines := make([]string, 0, len(payload.Notes))
	for _, note := range payload.Notes {
		noteLines = append(noteLines,
			fmt.Sprintf("%s (mentioned by %s)", note.Topic, note.Speaker))
	}

	var b strings.Builder
	b.WriteString("Task Details:\n")
	b.WriteString(fmt.Sprintf("- Assigned to: %s\n", assignedTo))
	b.WriteString(fmt.Sprintf("- Deadline: %s\n", deadline))
	b.WriteString("\nTask Context:\n")
	b.WriteString(fmt.Sprintf("This task was identified from a meeting conversation between %s\n",
		strings.Join(speakerNames, ", ")))
	b.WriteString("\nRelated Meeting Notes:\n")
	b.WriteString(fmt.Sprintf("- %s\n", strings.Join(noteLines, " ")))
	b.WriteString("\nAdditional Information:\n")
	b.WriteString(fmt.Sprintf("- Created on: %s\n", e.nowFn().Format("2006-01-02")))
	b.WriteString("- Extracted automatically from meeting transcript")

	return b.String()
}
