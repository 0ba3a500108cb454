// Package rooms issues LiveKit room access tokens.
package rooms

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/pkg/logger"
)

// Config holds the LiveKit signing settings.
type Config struct {
	APIKey    string
	APISecret string
	ServerURL string
	TokenTTL  time.Duration
}

// MeetingInfo is the sharing information returned alongside a token.
type MeetingInfo struct {
	RoomName    string `json:"room_name"`
	MeetingURL  string `json:"meeting_url"`
	SharingCode string `json:"sharing_code"`
	Host        string `json:"host"`
	ExpiresAt   string `json:"expires_at"`
}

// TokenResponse is the issued token with its meeting info.
type TokenResponse struct {
	Token       string      `json:"token"`
	MeetingInfo MeetingInfo `json:"meeting_info"`
}

// TokenService signs room join tokens.
type TokenService struct {
	config Config
	logger *logger.Logger

	nowFn func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(config Config, log *logger.Logger) *TokenService {
	return &TokenService{
		config: config,
		logger: log.Named("rooms"),
		nowFn:  time.Now,
	}
}

// IssueToken signs a join token for identity in roomName. Empty inputs
// fall back to "guest" and "default-room".
func (s *TokenService) IssueToken(identity, roomName string) (*TokenResponse, error) {
	if s.config.APIKey == "" || s.config.APISecret == "" {
		return nil, apperr.New(apperr.KindProvider, "LiveKit API credentials are missing")
	}

	if identity == "" {
		identity = "guest"
	}
	if roomName == "" {
		roomName = "default-room"
	}

	now := s.nowFn()
	expiresAt := now.Add(s.config.TokenTTL)

	claims := jwt.MapClaims{
		"iss": s.config.APIKey,
		"sub": identity,
		"nbf": now.Unix(),
		"exp": expiresAt.Unix(),
		"video": map[string]interface{}{
			"room":     roomName,
			"roomJoin": true,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.APISecret))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "failed to sign room token", err)
	}

	s.logger.Debug("Issued room token",
		logger.String("room", roomName),
		logger.String("identity", identity),
	)

	return &TokenResponse{
		Token: signed,
		MeetingInfo: MeetingInfo{
			RoomName:    roomName,
			MeetingURL:  fmt.Sprintf("%s/room/%s?token=%s", s.config.ServerURL, roomName, signed),
			SharingCode: roomName,
			Host:        identity,
			ExpiresAt:   expiresAt.Format(time.RFC3339),
		},
	}, nil
}
