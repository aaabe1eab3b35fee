package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/persistence"
)

type memCache struct {
	data map[string]json.RawMessage
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]json.RawMessage)}
}

func (m *memCache) SaveJSON(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memCache) LoadJSON(_ context.Context, key string, out any) error {
	raw, ok := m.data[key]
	if !ok {
		return persistence.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func newServiceFixture(t *testing.T, answer string, status int, cache Persister) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: answer})
	}))
	t.Cleanup(srv.Close)

	return NewService(context.Background(), Config{EndpointURL: srv.URL}, cache, zap.NewNop())
}

func TestGenerateRecordsSuccess(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	svc := newServiceFixture(t, "Segue o rascunho:\n"+validDraft, http.StatusOK, cache)

	draft, err := svc.Generate(ctx, PromptInput{
		ClientName:   "Maria",
		Category:     "trabalhista",
		DocumentKind: "peticao_inicial",
		Facts:        []string{"demissão sem justa causa"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Petição Inicial", draft.Title)

	history := svc.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].Succeeded)
	assert.Equal(t, "trabalhista", history[0].Category)

	rehydrated := NewService(ctx, Config{EndpointURL: "http://unused"}, cache, zap.NewNop())
	assert.Len(t, rehydrated.History(), 1, "usage history survives a restart")
}

func TestGenerateUnreadableAnswerFailsClosed(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t, "Desculpe, não posso ajudar com isso.", http.StatusOK, newMemCache())

	draft, err := svc.Generate(ctx, PromptInput{Category: "civil"})
	assert.Nil(t, draft)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))

	history := svc.History()
	require.Len(t, history, 1)
	assert.False(t, history[0].Succeeded)
}

func TestGenerateEndpointFailure(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t, "", http.StatusInternalServerError, newMemCache())

	_, err := svc.Generate(ctx, PromptInput{Category: "civil"})
	require.Error(t, err)

	var parseErr *ParseError
	assert.False(t, errors.As(err, &parseErr), "transport failures are not decode failures")
}

func TestGenerateAcceptsRawCompletionBody(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(validDraft))
	}))
	t.Cleanup(srv.Close)
	svc := NewService(ctx, Config{EndpointURL: srv.URL}, nil, zap.NewNop())

	draft, err := svc.Generate(ctx, PromptInput{Category: "civil"})
	require.NoError(t, err)
	assert.Equal(t, "Petição Inicial", draft.Title)
}

func TestGenerateWithoutEndpoint(t *testing.T) {
	ctx := context.Background()
	svc := NewService(ctx, Config{}, nil, zap.NewNop())

	_, err := svc.Generate(ctx, PromptInput{Category: "civil"})
	assert.Error(t, err)
}
