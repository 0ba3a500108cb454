// Package tasks exports extracted action items to a Trello board.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/pkg/logger"
)

// Card is the subset of a created Trello card returned to callers.
type Card struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ShortURL string `json:"shortUrl"`
}

// CardCreator creates one task card.
type CardCreator interface {
	CreateCard(ctx context.Context, name, desc string) (*Card, error)
}

// TrelloConfig holds the Trello client settings.
type TrelloConfig struct {
	APIKey    string
	Token     string
	ListID    string
	AILabelID string
	BaseURL   string
	Timeout   time.Duration
}

// TrelloClient creates cards via the Trello REST API.
type TrelloClient struct {
	config     TrelloConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewTrelloClient creates a Trello card client.
func NewTrelloClient(config TrelloConfig, log *logger.Logger) *TrelloClient {
	return &TrelloClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.Named("trello"),
	}
}

// CreateCard creates a card on the configured list with the machine
// label applied.
func (c *TrelloClient) CreateCard(ctx context.Context, name, desc string) (*Card, error) {
	if c.config.APIKey == "" || c.config.Token == "" || c.config.ListID == "" {
		return nil, apperr.New(apperr.KindProvider, "Trello credentials are not configured")
	}

	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("token", c.config.Token)
	params.Set("idList", c.config.ListID)
	if c.config.AILabelID != "" {
		params.Set("idLabels", c.config.AILabelID)
	}
	params.Set("name", name)
	params.Set("desc", desc)

	endpoint := fmt.Sprintf("%s/1/cards", c.config.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "failed to build card request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "card creation request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "failed to read card response", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Card creation failed",
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)),
		)
		return nil, apperr.New(apperr.KindProvider,
			fmt.Sprintf("card creation returned status %d", resp.StatusCode))
	}

	var card Card
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, apperr.MalformedResponse("card response is not valid JSON", string(body), err)
	}

	c.logger.Debug("Created card", logger.String("card_id", card.ID), logger.String("name", card.Name))

	return &card, nil
}
