package sqlite

import (
	"fmt"

	"github.com/meetscribe/server/internal/transcript"
)

// TranscriptSegment is a stored speaker-attributed transcript segment.
type TranscriptSegment struct {
	ID          int64  `json:"id"`
	RoomID      string `json:"room_id"`
	Participant string `json:"participant"`
	Speaker     int    `json:"speaker"`
	Text        string `json:"text"`
	CreatedAt   string `json:"created_at"`
}

// TranscriptStorage persists and queries transcript segments.
type TranscriptStorage struct {
	storage *Storage
}

// NewTranscriptStorage creates a transcript store over the shared handle.
func NewTranscriptStorage(storage *Storage) *TranscriptStorage {
	return &TranscriptStorage{storage: storage}
}

// AppendSegments inserts the segments for one upload in a single
// transaction. Either every segment is stored or none is. Insertion
// order follows the input slice, so creation-order reads reproduce it.
func (t *TranscriptStorage) AppendSegments(roomID, participant string, segments []transcript.Segment) error {
	if len(segments) == 0 {
		return nil
	}

	tx, err := t.storage.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO transcript_segments (room_id, participant, speaker, text, created_at)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	createdAt := now()
	for _, seg := range segments {
		if _, err := stmt.Exec(roomID, participant, seg.Speaker, seg.Text, createdAt); err != nil {
			return fmt.Errorf("failed to insert segment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit segments: %w", err)
	}

	t.storage.logger.Debug("Stored transcript segments",
		String("room_id", roomID),
		String("participant", participant),
		Int("count", len(segments)),
	)

	return nil
}

// GetSegmentsByRoom returns every segment of a room in creation order.
func (t *TranscriptStorage) GetSegmentsByRoom(roomID string) ([]TranscriptSegment, error) {
	return t.querySegments(
		`SELECT id, room_id, participant, speaker, text, created_at
		 FROM transcript_segments WHERE room_id = ? ORDER BY id ASC`, roomID)
}

// GetSegmentsByRoomAndParticipant returns the segments one participant
// uploaded to a room, in creation order.
func (t *TranscriptStorage) GetSegmentsByRoomAndParticipant(roomID, participant string) ([]TranscriptSegment, error) {
	return t.querySegments(
		`SELECT id, room_id, participant, speaker, text, created_at
		 FROM transcript_segments WHERE room_id = ? AND participant = ? ORDER BY id ASC`,
		roomID, participant)
}

func (t *TranscriptStorage) querySegments(query string, args ...interface{}) ([]TranscriptSegment, error) {
	rows, err := t.storage.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	segments := []TranscriptSegment{}
	for rows.Next() {
		var seg TranscriptSegment
		if err := rows.Scan(&seg.ID, &seg.RoomID, &seg.Participant, &seg.Speaker, &seg.Text, &seg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segments: %w", err)
	}

	return segments, nil
}
