package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/config"
)

// EmailRequest is the shape of one reminder email.
type EmailRequest struct {
	To          string    `json:"to"`
	Title       string    `json:"title"`
	EventDate   time.Time `json:"eventDate"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// Sender delivers reminder emails.
type Sender interface {
	Send(ctx context.Context, req EmailRequest) error
}

// Client forwards emails to the third-party delivery provider.
type Client struct {
	providerURL string
	apiKey      string
	from        string
	http        *http.Client
	logger      *zap.Logger
}

// NewClient builds the provider client.
func NewClient(cfg config.MailerConfig, logger *zap.Logger) *Client {
	return &Client{
		providerURL: cfg.ProviderURL,
		apiKey:      cfg.APIKey,
		from:        cfg.FromAddress,
		http:        &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

type providerPayload struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	EventDate   time.Time `json:"eventDate"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// Send posts the email to the provider. Any non-2xx answer is a
// failure; the caller decides whether to retry.
func (c *Client) Send(ctx context.Context, req EmailRequest) error {
	if c.providerURL == "" {
		return errors.New("mail provider not configured")
	}

	raw, err := json.Marshal(providerPayload{
		From:        c.from,
		To:          req.To,
		Subject:     req.Title,
		EventDate:   req.EventDate,
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.providerURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}
	return nil
}
