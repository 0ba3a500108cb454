// Package ingest orchestrates audio upload processing: save, transcribe,
// segment, store, clean up.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/internal/recognition"
	"github.com/meetscribe/server/internal/transcript"
	"github.com/meetscribe/server/pkg/logger"
)

// SegmentStore persists one upload's segments.
type SegmentStore interface {
	AppendSegments(roomID, participant string, segments []transcript.Segment) error
}

// MeetingRecorder records that a participant took part in a room.
type MeetingRecorder interface {
	Ensure(roomID, participant, title string) error
}

// Config holds the orchestrator settings.
type Config struct {
	UploadsDir         string
	TranscriptsDir     string
	MaxSizeBytes       int64
	RecognitionTimeout time.Duration
}

// UploadRequest is one audio upload to process.
type UploadRequest struct {
	RoomID      string
	Participant string
	FileName    string
	Audio       []byte
}

// UploadResult is the outcome of a processed upload.
type UploadResult struct {
	Lines    []string             `json:"lines"`
	Segments []transcript.Segment `json:"segments"`
}

// Service processes uploads end to end.
type Service struct {
	config     Config
	recognizer recognition.Recognizer
	segments   SegmentStore
	meetings   MeetingRecorder
	logger     *logger.Logger
}

// NewService creates an ingestion service.
func NewService(config Config, recognizer recognition.Recognizer, segments SegmentStore, meetings MeetingRecorder, log *logger.Logger) *Service {
	return &Service{
		config:     config,
		recognizer: recognizer,
		segments:   segments,
		meetings:   meetings,
		logger:     log.Named("ingest"),
	}
}

// ProcessUpload runs one upload through the pipeline. The audio file
// and the raw recognition artifact get names derived from a fresh
// upload id; they are removed only after the segments were stored, and
// only those two paths are ever touched.
func (s *Service) ProcessUpload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	uploadID := uuid.New().String()
	audioPath := filepath.Join(s.config.UploadsDir, uploadID+audioExt(req.FileName))
	artifactPath := filepath.Join(s.config.TranscriptsDir, uploadID+".json")

	if err := os.MkdirAll(s.config.UploadsDir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to create uploads directory", err)
	}
	if err := os.MkdirAll(s.config.TranscriptsDir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to create transcripts directory", err)
	}

	if err := os.WriteFile(audioPath, req.Audio, 0o644); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to save uploaded audio", err)
	}

	s.logger.Debug("Upload saved",
		logger.String("upload_id", uploadID),
		logger.String("room_id", req.RoomID),
		logger.Int("bytes", len(req.Audio)),
	)

	recCtx, cancel := context.WithTimeout(ctx, s.config.RecognitionTimeout)
	defer cancel()

	resp, err := s.recognizer.Transcribe(recCtx, req.Audio)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(artifactPath, resp.Raw, 0o644); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to save recognition artifact", err)
	}

	words := resp.Words()
	if len(words) == 0 {
		s.logger.Info("Upload produced no recognized words",
			logger.String("upload_id", uploadID),
			logger.String("room_id", req.RoomID),
		)
		s.cleanup(audioPath, artifactPath)
		return &UploadResult{Lines: []string{}, Segments: []transcript.Segment{}}, nil
	}

	segments := transcript.BuildSegments(words)

	if err := s.segments.AppendSegments(req.RoomID, req.Participant, segments); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to store transcript segments", err)
	}
	if err := s.meetings.Ensure(req.RoomID, req.Participant, req.RoomID); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to record meeting", err)
	}

	s.cleanup(audioPath, artifactPath)

	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("SPEAKER %d: %s", seg.Speaker, seg.Text))
	}

	s.logger.Info("Upload processed",
		logger.String("upload_id", uploadID),
		logger.String("room_id", req.RoomID),
		logger.String("participant", req.Participant),
		logger.Int("segments", len(segments)),
	)

	return &UploadResult{Lines: lines, Segments: segments}, nil
}

func (s *Service) validate(req UploadRequest) error {
	if len(req.Audio) == 0 {
		return apperr.Validation("no audio file provided")
	}
	if req.RoomID == "" {
		return apperr.Validation("room_id is required")
	}
	if req.Participant == "" {
		return apperr.Validation("username is required")
	}
	if s.config.MaxSizeBytes > 0 && int64(len(req.Audio)) > s.config.MaxSizeBytes {
		return apperr.Validation(
			fmt.Sprintf("audio file exceeds the %d byte limit", s.config.MaxSizeBytes))
	}
	return nil
}

// cleanup removes exactly this upload's two derived files. Removal
// failures are logged, not returned; the pipeline already succeeded.
func (s *Service) cleanup(audioPath, artifactPath string) {
	for _, path := range []string{audioPath, artifactPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove upload artifact",
				logger.String("path", path),
				logger.Error(err),
			)
		}
	}
}

func audioExt(fileName string) string {
	if ext := filepath.Ext(fileName); ext != "" {
		return ext
	}
	return ".mp3"
}
