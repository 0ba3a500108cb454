package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/internal/recognition"
	"github.com/meetscribe/server/internal/transcript"
	"github.com/meetscribe/server/pkg/logger"
)

type fakeRecognizer struct {
	words []recognition.Word
	err   error
	calls int
}

func (f *fakeRecognizer) Transcribe(_ context.Context, _ []byte) (*recognition.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &recognition.Response{
		Results: recognition.Results{
			Channels: []recognition.Channel{{
				Alternatives: []recognition.Alternative{{Words: f.words}},
			}},
		},
		Raw: []byte(`{"results":{}}`),
	}, nil
}

type fakeSegmentStore struct {
	batches [][]transcript.Segment
}

func (f *fakeSegmentStore) AppendSegments(_, _ string, segments []transcript.Segment) error {
	f.batches = append(f.batches, segments)
	return nil
}

type fakeMeetings struct {
	calls int
}

func (f *fakeMeetings) Ensure(_, _, _ string) error {
	f.calls++
	return nil
}

func newTestService(t *testing.T, recognizer recognition.Recognizer, store *fakeSegmentStore) (*Service, string) {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	dir := t.TempDir()
	service := NewService(Config{
		UploadsDir:         dir,
		TranscriptsDir:     filepath.Join(dir, "transcripts"),
		MaxSizeBytes:       1 << 20,
		RecognitionTimeout: 5 * time.Second,
	}, recognizer, store, &fakeMeetings{}, log)

	return service, dir
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestProcessUploadStoresSegmentsAndCleansUp(t *testing.T) {
	recognizer := &fakeRecognizer{words: []recognition.Word{
		{PunctuatedWord: "you", Speaker: 1},
		{PunctuatedWord: "should", Speaker: 1},
		{PunctuatedWord: "submit", Speaker: 1},
		{PunctuatedWord: "sure", Speaker: 2},
	}}
	store := &fakeSegmentStore{}
	service, dir := newTestService(t, recognizer, store)

	result, err := service.ProcessUpload(context.Background(), UploadRequest{
		RoomID:      "room-1",
		Participant: "alice",
		FileName:    "meeting.mp3",
		Audio:       []byte("audio-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"SPEAKER 1: you should submit", "SPEAKER 2: sure"}, result.Lines)
	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 2)

	// Both derived files were removed after storage succeeded
	assert.Empty(t, listFiles(t, dir))
}

func TestProcessUploadValidation(t *testing.T) {
	recognizer := &fakeRecognizer{}
	store := &fakeSegmentStore{}
	service, dir := newTestService(t, recognizer, store)

	cases := []UploadRequest{
		{RoomID: "room-1", Participant: "alice"},                               // no audio
		{Participant: "alice", Audio: []byte("x"), FileName: "a.mp3"},          // no room
		{RoomID: "room-1", Audio: []byte("x"), FileName: "a.mp3"},              // no participant
	}

	for _, req := range cases {
		_, err := service.ProcessUpload(context.Background(), req)
		require.Error(t, err)
		kind, ok := apperr.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindValidation, kind)
	}

	// Validation failures happen before any file or provider work
	assert.Zero(t, recognizer.calls)
	assert.Empty(t, listFiles(t, dir))
}

func TestProcessUploadEmptyWordList(t *testing.T) {
	recognizer := &fakeRecognizer{}
	store := &fakeSegmentStore{}
	service, _ := newTestService(t, recognizer, store)

	result, err := service.ProcessUpload(context.Background(), UploadRequest{
		RoomID:      "room-1",
		Participant: "alice",
		FileName:    "silence.mp3",
		Audio:       []byte("audio-bytes"),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Lines)
	assert.Empty(t, store.batches)
}

func TestProcessUploadTwiceAppendsTwoBatches(t *testing.T) {
	recognizer := &fakeRecognizer{words: []recognition.Word{
		{PunctuatedWord: "Hello.", Speaker: 0},
	}}
	store := &fakeSegmentStore{}
	service, _ := newTestService(t, recognizer, store)

	req := UploadRequest{
		RoomID:      "room-1",
		Participant: "alice",
		FileName:    "meeting.mp3",
		Audio:       []byte("audio-bytes"),
	}

	_, err := service.ProcessUpload(context.Background(), req)
	require.NoError(t, err)
	_, err = service.ProcessUpload(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, store.batches, 2)
}

func TestProcessUploadRecognitionFailureKeepsNothingStored(t *testing.T) {
	recognizer := &fakeRecognizer{err: apperr.New(apperr.KindProvider, "recognition request failed")}
	store := &fakeSegmentStore{}
	service, _ := newTestService(t, recognizer, store)

	_, err := service.ProcessUpload(context.Background(), UploadRequest{
		RoomID:      "room-1",
		Participant: "alice",
		FileName:    "meeting.mp3",
		Audio:       []byte("audio-bytes"),
	})
	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindProvider, kind)
	assert.Empty(t, store.batches)
}

func TestProcessUploadOversizedAudio(t *testing.T) {
	recognizer := &fakeRecognizer{}
	store := &fakeSegmentStore{}

	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	dir := t.TempDir()
	service := NewService(Config{
		UploadsDir:         dir,
		TranscriptsDir:     filepath.Join(dir, "transcripts"),
		MaxSizeBytes:       4,
		RecognitionTimeout: time.Second,
	}, recognizer, store, &fakeMeetings{}, log)

	_, err = service.ProcessUpload(context.Background(), UploadRequest{
		RoomID:      "room-1",
		Participant: "alice",
		FileName:    "meeting.mp3",
		Audio:       []byte("way too large"),
	})
	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, kind)
}
