package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/internal/storage/sqlite"
	"github.com/meetscribe/server/pkg/logger"
)

type fakeSummaries struct {
	record *sqlite.MeetingSummary
}

func (f *fakeSummaries) Get(_, _ string) (*sqlite.MeetingSummary, error) {
	return f.record, nil
}

func (f *fakeSummaries) Upsert(_, _, _ string) error {
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)
	return log
}

func testTrelloServer(t *testing.T, handler http.HandlerFunc) *TrelloClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewTrelloClient(TrelloConfig{
		APIKey:    "key",
		Token:     "token",
		ListID:    "list-1",
		AILabelID: "label-1",
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
	}, testLogger(t))
}

func payloadJSON(t *testing.T, tasks ...map[string]string) string {
	t.Helper()
	payload := map[string]interface{}{
		"summary":      "Weekly sync.",
		"speakers":     []interface{}{},
		"notes":        []map[string]string{{"topic": "Release date", "speaker": "Alice"}},
		"schedules":    []interface{}{},
		"action_items": []interface{}{},
		"trello_tasks": tasks,
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(b)
}

func TestExportCreatesCards(t *testing.T) {
	var gotParams []string
	client := testTrelloServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotParams = append(gotParams, r.Form.Get("name"))
		assert.Equal(t, "/1/cards", r.URL.Path)
		assert.Equal(t, "key", r.Form.Get("key"))
		assert.Equal(t, "list-1", r.Form.Get("idList"))
		json.NewEncoder(w).Encode(Card{ID: "c1", Name: r.Form.Get("name"), ShortURL: "https://trello.com/c/abc"})
	})

	summaries := &fakeSummaries{record: &sqlite.MeetingSummary{
		Payload: payloadJSON(t,
			map[string]string{"task": "Write report", "assigned_to": "Bob", "assigned_by": "Alice", "deadline": "2026-09-05", "trello_list": "Todo"},
			map[string]string{"task": "Book room", "assigned_to": "Carol", "assigned_by": "Alice", "deadline": "", "trello_list": "Todo"},
		),
	}}

	results, err := NewExporter(summaries, client, testLogger(t)).Export(context.Background(), "room-1", "alice")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"Write report", "Book room"}, gotParams)
	for _, res := range results {
		assert.Empty(t, res.Error)
		require.NotNil(t, res.Card)
		assert.Equal(t, "https://trello.com/c/abc", res.Card.ShortURL)
	}
}

func TestExportNoSummary(t *testing.T) {
	called := false
	client := testTrelloServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := NewExporter(&fakeSummaries{}, client, testLogger(t)).Export(context.Background(), "room-1", "alice")
	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, kind)
	assert.False(t, called)
}

func TestExportEmptyTaskList(t *testing.T) {
	called := false
	client := testTrelloServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	summaries := &fakeSummaries{record: &sqlite.MeetingSummary{Payload: payloadJSON(t)}}

	_, err := NewExporter(summaries, client, testLogger(t)).Export(context.Background(), "room-1", "alice")
	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, kind)
	assert.False(t, called)
}

func TestExportContinuesAfterCardFailure(t *testing.T) {
	var call int
	client := testTrelloServer(t, func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 1 {
			http.Error(w, `{"message":"invalid list"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(Card{ID: "c2", Name: "Book room", ShortURL: "https://trello.com/c/def"})
	})

	summaries := &fakeSummaries{record: &sqlite.MeetingSummary{
		Payload: payloadJSON(t,
			map[string]string{"task": "Write report", "assigned_to": "Bob", "assigned_by": "Alice", "deadline": "2026-09-05", "trello_list": "Todo"},
			map[string]string{"task": "Book room", "assigned_to": "Carol", "assigned_by": "Alice", "deadline": "", "trello_list": "Todo"},
		),
	}}

	results, err := NewExporter(summaries, client, testLogger(t)).Export(context.Background(), "room-1", "alice")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].Error)
	assert.Nil(t, results[0].Card)
	assert.Empty(t, results[1].Error)
	require.NotNil(t, results[1].Card)
	assert.Equal(t, "c2", results[1].Card.ID)
}

func TestCardDescriptionFormat(t *testing.T) {
	var gotDesc string
	client := testTrelloServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotDesc = r.Form.Get("desc")
		json.NewEncoder(w).Encode(Card{ID: "c1", Name: "Write report", ShortURL: "u"})
	})

	summaries := &fakeSummaries{record: &sqlite.MeetingSummary{
		Payload: payloadJSON(t,
			map[string]string{"task": "Write report", "assigned_to": "Bob", "assigned_by": "Alice", "deadline": "2026-09-05", "trello_list": "Todo"},
		),
	}}

	exporter := NewExporter(summaries, client, testLogger(t))
	exporter.nowFn = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}

	_, err := exporter.Export(context.Background(), "room-1", "alice")
	require.NoError(t, err)

	assert.Contains(t, gotDesc, "Task Details:")
	assert.Contains(t, gotDesc, "- Assigned to: Bob")
	assert.Contains(t, gotDesc, "- Deadline: 2026-09-05")
	assert.Contains(t, gotDesc, "Task Context:\nThis task was identified from a meeting conversation between ")
	assert.Contains(t, gotDesc, "Related Meeting Notes:\n- Release date (mentioned by Alice)")
	assert.Contains(t, gotDesc, "- Created on: 2026-09-01")
	assert.Contains(t, gotDesc, "Extracted automatically from meeting transcript")
}
