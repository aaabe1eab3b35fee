package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/persistence"
)

// Persister is the slice of the local cache the service needs.
type Persister interface {
	SaveJSON(ctx context.Context, key string, value any) error
	LoadJSON(ctx context.Context, key string, out any) error
}

// UsageRecord is one entry of the persisted tool-usage history.
type UsageRecord struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Kind      string    `json:"kind"`
	Succeeded bool      `json:"succeeded"`
	CreatedAt time.Time `json:"createdAt"`
}

// Config points the service at the generative endpoint.
type Config struct {
	EndpointURL string
	APIKey      string
	Timeout     time.Duration
}

// Service builds petition prompts, calls the generative endpoint and
// decodes the answer strictly. Usage history is persisted locally.
type Service struct {
	cfg    Config
	http   *http.Client
	cache  Persister
	logger *zap.Logger

	mu      sync.Mutex
	history []UsageRecord
}

// NewService builds the service and rehydrates usage history.
func NewService(ctx context.Context, cfg Config, cache Persister, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	s := &Service{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		logger: logger,
	}
	if cache != nil {
		var history []UsageRecord
		if err := cache.LoadJSON(ctx, persistence.KeyAIHistory, &history); err == nil {
			s.history = history
		}
	}
	return s
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs one draft request end to end. Decode failures are
// returned as *ParseError so callers can show a "try again" notice
// instead of a partial result.
func (s *Service) Generate(ctx context.Context, input PromptInput) (*PetitionDraft, error) {
	answer, err := s.call(ctx, BuildPrompt(input))
	if err != nil {
		s.record(ctx, input, false)
		return nil, err
	}

	draft, err := DecodeDraft(answer)
	if err != nil {
		s.record(ctx, input, false)
		s.logger.Warn("draft decode failed", zap.Error(err))
		return nil, err
	}

	s.record(ctx, input, true)
	return draft, nil
}

// History returns a copy of the usage records, oldest first.
func (s *Service) History() []UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UsageRecord{}, s.history...)
}

func (s *Service) call(ctx context.Context, prompt string) (string, error) {
	if s.cfg.EndpointURL == "" {
		return "", errors.New("generative endpoint not configured")
	}

	raw, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.EndpointURL, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("generative endpoint returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.Response == "" {
		// Some deployments answer with the completion text directly.
		return string(body), nil
	}
	return decoded.Response, nil
}

func (s *Service) record(ctx context.Context, input PromptInput, succeeded bool) {
	entry := UsageRecord{
		ID:        uuid.NewString(),
		Category:  input.Category,
		Kind:      input.DocumentKind,
		Succeeded: succeeded,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.history = append(s.history, entry)
	snapshot := append([]UsageRecord{}, s.history...)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SaveJSON(ctx, persistence.KeyAIHistory, snapshot); err != nil {
			s.logger.Warn("usage history persist failed", zap.Error(err))
		}
	}
}
