// Package recognition provides the speech-to-text client used to
// transcribe uploaded meeting audio.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/pkg/logger"
)

// Recognizer transcribes a complete audio recording into diarized words.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte) (*Response, error)
}

// ClientConfig holds the settings for the Deepgram client.
type ClientConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Tier     string
	MimeType string
	Timeout  time.Duration
}

// Client calls the Deepgram prerecorded transcription API.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new Deepgram client.
func NewClient(config ClientConfig, log *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.Named("deepgram"),
	}
}

// Transcribe sends the audio bytes for prerecorded transcription with
// punctuation and speaker diarization enabled.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (*Response, error) {
	if c.config.APIKey == "" {
		return nil, apperr.New(apperr.KindProvider, "recognition API key is not configured")
	}

	query := url.Values{}
	query.Set("punctuate", "true")
	query.Set("diarize", "true")
	query.Set("model", c.config.Model)
	query.Set("tier", c.config.Tier)

	endpoint := fmt.Sprintf("%s/v1/listen?%s", c.config.BaseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "failed to build recognition request", err)
	}
	req.Header.Set("Authorization", "Token "+c.config.APIKey)
	req.Header.Set("Content-Type", c.config.MimeType)

	c.logger.Debug("Sending audio for transcription",
		logger.Int("bytes", len(audio)),
		logger.String("model", c.config.Model),
		logger.String("tier", c.config.Tier),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "recognition request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "failed to read recognition response", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Recognition API returned an error",
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)),
		)
		return nil, apperr.New(apperr.KindProvider,
			fmt.Sprintf("recognition API returned status %d", resp.StatusCode))
	}

	var decoded Response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, apperr.MalformedResponse("recognition response is not valid JSON", string(body), err)
	}
	decoded.Raw = body

	c.logger.Debug("Transcription complete", logger.Int("words", len(decoded.Words())))

	return &decoded, nil
}
