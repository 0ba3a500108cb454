// Package summary extracts structured meeting summaries from stored
// transcripts using a chat-completion model.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meetscribe/server/internal/ai"
	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/internal/storage/sqlite"
	"github.com/meetscribe/server/pkg/logger"
)

// TranscriptSource supplies the stored transcript for one
// room/participant pair.
type TranscriptSource interface {
	GetSegmentsByRoomAndParticipant(roomID, participant string) ([]sqlite.TranscriptSegment, error)
}

// SummaryStore persists extraction payloads.
type SummaryStore interface {
	Upsert(roomID, participant, payload string) error
	Get(roomID, participant string) (*sqlite.MeetingSummary, error)
}

// Config holds the extractor's model settings.
type Config struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Extractor runs the transcript-to-summary extraction.
type Extractor struct {
	config      Config
	provider    ai.ChatProvider
	transcripts TranscriptSource
	summaries   SummaryStore
	logger      *logger.Logger

	// nowFn is replaceable in tests
	nowFn func() time.Time
}

// NewExtractor creates a summary extractor.
func NewExtractor(config Config, provider ai.ChatProvider, transcripts TranscriptSource, summaries SummaryStore, log *logger.Logger) *Extractor {
	return &Extractor{
		config:      config,
		provider:    provider,
		transcripts: transcripts,
		summaries:   summaries,
		logger:      log.Named("summary"),
		nowFn:       time.Now,
	}
}

// Summarize reads the stored transcript for (roomID, participant),
// runs the extraction and persists the result. The stored record is
// only written when the model output parsed successfully.
func (e *Extractor) Summarize(ctx context.Context, roomID, participant string) (*Payload, error) {
	segments, err := e.transcripts.GetSegmentsByRoomAndParticipant(roomID, participant)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to load transcript", err)
	}
	if len(segments) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("no transcript found for room %s", roomID))
	}

	var lines []string
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("SPEAKER %d: %s", seg.Speaker, seg.Text))
	}
	prompt := buildPrompt(strings.Join(lines, "\n"), e.nowFn())

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	raw, err := e.provider.ChatCompletion(ctx, []ai.ChatMessage{
		{Role: "user", Content: prompt},
	}, ai.ChatConfig{
		Model:        e.config.Model,
		Temperature:  e.config.Temperature,
		JSONResponse: true,
	})
	if err != nil {
		return nil, err
	}

	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		e.logger.Warn("Model returned unparseable extraction",
			logger.String("room_id", roomID),
			logger.Error(err),
		)
		return nil, apperr.MalformedResponse("model output is not valid JSON", raw, err)
	}

	stored, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to encode summary payload", err)
	}
	if err := e.summaries.Upsert(roomID, participant, string(stored)); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to store summary", err)
	}

	e.logger.Info("Meeting summary stored",
		logger.String("room_id", roomID),
		logger.String("participant", participant),
		logger.Int("action_items", len(payload.ActionItems)),
		logger.Int("trello_tasks", len(payload.TrelloTasks)),
	)

	return &payload, nil
}
