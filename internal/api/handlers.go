// Package api exposes the HTTP surface of the service.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/internal/ingest"
	"github.com/meetscribe/server/internal/rooms"
	"github.com/meetscribe/server/internal/storage/sqlite"
	"github.com/meetscribe/server/internal/summary"
	"github.com/meetscribe/server/internal/tasks"
	"github.com/meetscribe/server/internal/websocket"
	"github.com/meetscribe/server/pkg/logger"
)

// Uploader processes audio uploads.
type Uploader interface {
	ProcessUpload(ctx context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error)
}

// Summarizer runs the transcript extraction.
type Summarizer interface {
	Summarize(ctx context.Context, roomID, participant string) (*summary.Payload, error)
}

// TaskExporter exports stored tasks to the board.
type TaskExporter interface {
	Export(ctx context.Context, roomID, participant string) ([]tasks.CardResult, error)
}

// TokenIssuer signs room join tokens.
type TokenIssuer interface {
	IssueToken(identity, roomName string) (*rooms.TokenResponse, error)
}

// Handler holds the services behind the HTTP endpoints.
type Handler struct {
	uploader    Uploader
	summarizer  Summarizer
	exporter    TaskExporter
	tokens      TokenIssuer
	transcripts *sqlite.TranscriptStorage
	summaries   *sqlite.SummaryStorage
	meetings    *sqlite.MeetingStorage
	users       *sqlite.UserStorage
	wsServer    *websocket.Server
	maxUpload   int64
	logger      *logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(
	uploader Uploader,
	summarizer Summarizer,
	exporter TaskExporter,
	tokens TokenIssuer,
	transcripts *sqlite.TranscriptStorage,
	summaries *sqlite.SummaryStorage,
	meetings *sqlite.MeetingStorage,
	users *sqlite.UserStorage,
	wsServer *websocket.Server,
	maxUpload int64,
	log *logger.Logger,
) *Handler {
	return &Handler{
		uploader:    uploader,
		summarizer:  summarizer,
		exporter:    exporter,
		tokens:      tokens,
		transcripts: transcripts,
		summaries:   summaries,
		meetings:    meetings,
		users:       users,
		wsServer:    wsServer,
		maxUpload:   maxUpload,
		logger:      log.Named("api"),
	}
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError maps an error to its HTTP status and a structured body.
// The body always carries a non-empty error message.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]interface{}{"error": "internal server error"}

	if appErr, ok := apperr.As(err); ok {
		status = appErr.HTTPStatus()
		body["error"] = appErr.Error()
		if appErr.Kind == apperr.KindMalformedResponse && appErr.Raw != "" {
			body["raw_output"] = appErr.Raw
		}
	} else if err != nil {
		body["error"] = err.Error()
	}

	if status >= 500 {
		h.logger.Error("Request failed", logger.Int("status", status), logger.Error(err))
	}

	WriteJSON(w, status, body)
}

// UploadAudio handles POST /upload_audio/
func (h *Handler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.writeError(w, apperr.Validation("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, apperr.Validation("no audio file provided"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.KindStorage, "failed to read uploaded file", err))
		return
	}

	roomID := r.FormValue("room_id")
	username := r.FormValue("username")

	result, err := h.uploader.ProcessUpload(r.Context(), ingest.UploadRequest{
		RoomID:      roomID,
		Participant: username,
		FileName:    header.Filename,
		Audio:       audio,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	if h.wsServer != nil && len(result.Segments) > 0 {
		h.wsServer.BroadcastTranscriptStored(roomID, username, len(result.Segments))
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":            "Audio processed successfully",
		"transcription_text": result.Lines,
	})
}

// AskGPT handles POST /ask-gpt/
func (h *Handler) AskGPT(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, apperr.Validation("invalid form data"))
		return
	}

	roomID := r.FormValue("room_id")
	username := r.FormValue("username")
	if roomID == "" || username == "" {
		h.writeError(w, apperr.Validation("room_id and username are required"))
		return
	}

	payload, err := h.summarizer.Summarize(r.Context(), roomID, username)
	if err != nil {
		h.writeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"answer": payload})
}

// GetTranscripts handles GET /transcripts/{room_id}/
func (h *Handler) GetTranscripts(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room_id")
	if roomID == "" {
		h.writeError(w, apperr.Validation("room_id is required"))
		return
	}

	segments, err := h.transcripts.GetSegmentsByRoom(roomID)
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.KindStorage, "failed to load transcripts", err))
		return
	}

	response := make([]map[string]interface{}, 0, len(segments))
	for _, seg := range segments {
		response = append(response, map[string]interface{}{
			"id":      seg.ID,
			"speaker": seg.Speaker,
			"text":    seg.Text,
			"roomid":  seg.RoomID,
		})
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetSummary handles GET /summary_and_action/{room_id}/{username}/
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room_id")
	username := chi.URLParam(r, "username")

	record, err := h.summaries.Get(roomID, username)
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.KindStorage, "failed to load summary", err))
		return
	}
	if record == nil {
		h.writeError(w, apperr.NotFound("no summary found for this meeting"))
		return
	}

	var payload summary.Payload
	if err := json.Unmarshal([]byte(record.Payload), &payload); err != nil {
		h.writeError(w, apperr.Wrap(apperr.KindStorage, "stored summary payload is unreadable", err))
		return
	}

	WriteJSON(w, http.StatusOK, payload)
}

// AssignTrelloTasks handles POST /assign-trello-tasks/
func (h *Handler) AssignTrelloTasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   string `json:"room_id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.Validation("invalid JSON body"))
		return
	}
	if req.RoomID == "" || req.Username == "" {
		h.writeError(w, apperr.Validation("room_id and username are required"))
		return
	}

	results, err := h.exporter.Export(r.Context(), req.RoomID, req.Username)
	if err != nil {
		h.writeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "Trello tasks created successfully",
		"trello_responses": results,
	})
}

// LiveKitToken handles POST /livekit/token/
func (h *Handler) LiveKitToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserIdentity string `json:"user_identity"`
		RoomName     string `json:"room_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.Validation("invalid JSON body"))
		return
	}

	resp, err := h.tokens.IssueToken(req.UserIdentity, req.RoomName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// CreateUser handles POST /users/
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.Validation("invalid JSON body"))
		return
	}
	if req.Username == "" || req.Email == "" {
		h.writeError(w, apperr.Validation("username and email are required"))
		return
	}

	user, err := h.users.Create(req.Username, req.Email, uuid.New().String())
	if err != nil {
		if err == sqlite.ErrDuplicateUser {
			h.writeError(w, apperr.Validation("username or email already registered"))
			return
		}
		h.writeError(w, apperr.Wrap(apperr.KindStorage, "failed to create user", err))
		return
	}

	WriteJSON(w, http.StatusCreated, user)
}

// GetUserDetails handles GET /users/details/?username=
func (h *Handler) GetUserDetails(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		h.writeError(w, apperr.Validation("username query parameter is required"))
		return
	}

	user, err := h.users.GetByUsername(username)
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.KindStorage, "failed to load user", err))
		return
	}
	if user == nil {
		h.writeError(w, apperr.NotFound("user not found"))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// GetMeetings handles GET /meetings/{username}/
func (h *Handler) GetMeetings(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.writeError(w, apperr.Validation("username is required"))
		return
	}

	meetings, err := h.meetings.GetByParticipant(username)
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.KindStorage, "failed to load meetings", err))
		return
	}

	WriteJSON(w, http.StatusOK, meetings)
}

// GetHealth handles GET /healthz
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSpeechWS handles GET /ws/speech/
func (h *Handler) HandleSpeechWS(w http.ResponseWriter, r *http.Request) {
	if h.wsServer == nil {
		h.writeError(w, apperr.New(apperr.KindProvider, "speech streaming is not available"))
		return
	}
	h.wsServer.HandleConnection(w, r)
}
