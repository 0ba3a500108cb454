package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// MeetingSummary is the stored LLM extraction for one room/participant pair.
type MeetingSummary struct {
	ID          int64  `json:"id"`
	RoomID      string `json:"room_id"`
	Participant string `json:"participant"`
	Payload     string `json:"payload"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// SummaryStorage persists extracted meeting summaries.
type SummaryStorage struct {
	storage *Storage
}

// NewSummaryStorage creates a summary store over the shared handle.
func NewSummaryStorage(storage *Storage) *SummaryStorage {
	return &SummaryStorage{storage: storage}
}

// Upsert stores the payload for (roomID, participant), replacing any
// previous record. The payload must be valid JSON.
func (s *SummaryStorage) Upsert(roomID, participant, payload string) error {
	if !json.Valid([]byte(payload)) {
		return fmt.Errorf("summary payload is not valid JSON")
	}

	ts := now()
	_, err := s.storage.db.Exec(
		`INSERT INTO meeting_summaries (room_id, participant, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(room_id, participant)
		 DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		roomID, participant, payload, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	s.storage.logger.Debug("Stored meeting summary",
		String("room_id", roomID),
		String("participant", participant),
	)

	return nil
}

// Get returns the summary for (roomID, participant), or nil when none
// has been stored.
func (s *SummaryStorage) Get(roomID, participant string) (*MeetingSummary, error) {
	row := s.storage.db.QueryRow(
		`SELECT id, room_id, participant, payload, created_at, updated_at
		 FROM meeting_summaries WHERE room_id = ? AND participant = ?`,
		roomID, participant)

	var summary MeetingSummary
	err := row.Scan(&summary.ID, &summary.RoomID, &summary.Participant,
		&summary.Payload, &summary.CreatedAt, &summary.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	return &summary, nil
}
