package sqlite

import (
	"fmt"
)

// Meeting records one participant's involvement in a room.
type Meeting struct {
	ID          int64  `json:"id"`
	Participant string `json:"participant"`
	Title       string `json:"title"`
	RoomID      string `json:"room_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// MeetingStorage persists meeting records.
type MeetingStorage struct {
	storage *Storage
}

// NewMeetingStorage creates a meeting store over the shared handle.
func NewMeetingStorage(storage *Storage) *MeetingStorage {
	return &MeetingStorage{storage: storage}
}

// Ensure records that participant took part in roomID, creating the
// meeting on first sight and bumping updated_at after that.
func (m *MeetingStorage) Ensure(roomID, participant, title string) error {
	ts := now()
	_, err := m.storage.db.Exec(
		`INSERT INTO meetings (participant, title, room_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(room_id, participant)
		 DO UPDATE SET updated_at = excluded.updated_at`,
		participant, title, roomID, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to record meeting: %w", err)
	}
	return nil
}

// GetByParticipant returns the meetings a participant took part in,
// most recent first.
func (m *MeetingStorage) GetByParticipant(participant string) ([]Meeting, error) {
	rows, err := m.storage.db.Query(
		`SELECT id, participant, title, room_id, created_at, updated_at
		 FROM meetings WHERE participant = ? ORDER BY updated_at DESC, id DESC`,
		participant)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer rows.Close()

	meetings := []Meeting{}
	for rows.Next() {
		var meeting Meeting
		if err := rows.Scan(&meeting.ID, &meeting.Participant, &meeting.Title,
			&meeting.RoomID, &meeting.CreatedAt, &meeting.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}

	return meetings, nil
}
