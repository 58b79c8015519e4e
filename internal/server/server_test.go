package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/paysplit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type assistantMock struct {
	mock.Mock
}

func (m *assistantMock) Reply(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	repo, err := OpenRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return New(Config{Addr: "127.0.0.1:0"}, repo, opts...)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSettingsEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty model.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.True(t, empty.IsEmpty())
	assert.NotEmpty(t, rec.Header().Get(TraceIDHeader))

	body := `{"categories":{"Rent":60,"Food":20},"limits":{"Car":{"percent":20,"limit":400}},"version":1}`
	rec = do(t, s, http.MethodPost, "/settings", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Settings updated successfully","version":1}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, rec.Body.String())
	assert.True(t, strings.Index(rec.Body.String(), "Rent") < strings.Index(rec.Body.String(), "Food"))
}

func TestSettingsEndpoints_Profiles(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/settings?profile=alice", `{"categories":{"Rent":100},"version":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/settings", "")
	var def model.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &def))
	assert.True(t, def.IsEmpty())

	rec = do(t, s, http.MethodGet, "/settings?profile=alice", "")
	var alice model.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alice))
	assert.Equal(t, int64(2), alice.Version)
	assert.Equal(t, []model.FlatCategory{{Name: "Rent", Percent: 100}}, alice.Categories)
}

func TestPostSettings_Errors(t *testing.T) {
	tests := []struct {
		name       string
		seed       string
		body       string
		wantStatus int
		wantCode   ErrorCode
	}{
		{
			name:       "malformed json",
			body:       `{"categories":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidBody,
		},
		{
			name:       "percent out of range",
			body:       `{"categories":{"Rent":150}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidField,
		},
		{
			name:       "same name in both collections",
			body:       `{"categories":{"Car":50},"limits":{"Car":{"percent":50,"limit":10}}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidField,
		},
		{
			name:       "name ending in a form suffix",
			body:       `{"categories":{"Rent":90,"Emergency-limit":10}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidField,
		},
		{
			name:       "stale version",
			seed:       `{"categories":{"Rent":100},"version":5}`,
			body:       `{"categories":{"Rent":100},"version":4}`,
			wantStatus: http.StatusConflict,
			wantCode:   CodeStaleVersion,
		},
		{
			name:       "equal version",
			seed:       `{"categories":{"Rent":100},"version":5}`,
			body:       `{"categories":{"Rent":100},"version":5}`,
			wantStatus: http.StatusConflict,
			wantCode:   CodeStaleVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			if tt.seed != "" {
				require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/settings", tt.seed).Code)
			}

			rec := do(t, s, http.MethodPost, "/settings", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
			assert.NotEmpty(t, resp.Error.TraceID)
		})
	}
}

func TestPostSettings_UnversionedKeepsStoredVersion(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/settings", `{"categories":{"Rent":100},"version":7}`).Code)

	rec := do(t, s, http.MethodPost, "/settings", `{"categories":{"Food":100}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Settings updated successfully","version":7}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/settings", "")
	assert.JSONEq(t, `{"categories":{"Food":100},"limits":{},"version":7}`, rec.Body.String())
}

func TestPostBudget(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		want       map[string]float64
		wantStatus int
	}{
		{
			name: "percent and fixed",
			body: `{"paycheck":1000,"categories":{"Rent":{"type":"percent","value":50},"Car":{"type":"fixed","value":100}}}`,
			want: map[string]float64{"Rent": 500, "Car": 100, "Remaining": 400},
		},
		{
			name: "type synonyms",
			body: `{"paycheck":200,"categories":{"Save":{"type":"pct","value":12.5},"Gym":{"type":"Amount","value":30}}}`,
			want: map[string]float64{"Save": 25, "Gym": 30, "Remaining": 145},
		},
		{
			name: "rounds to cents",
			body: `{"paycheck":100,"categories":{"Third":{"type":"percentage","value":33.333}}}`,
			want: map[string]float64{"Third": 33.33, "Remaining": 66.67},
		},
		{
			name: "zero paycheck",
			body: `{"paycheck":0}`,
			want: map[string]float64{"Remaining": 0},
		},
		{
			name: "over allocated goes negative",
			body: `{"paycheck":100,"categories":{"Rent":{"type":"fixed","value":150}}}`,
			want: map[string]float64{"Rent": 150, "Remaining": -50},
		},
		{
			name:       "missing paycheck",
			body:       `{"categories":{}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative paycheck",
			body:       `{"paycheck":-5}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown type",
			body:       `{"paycheck":100,"categories":{"Rent":{"type":"share","value":10}}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing type",
			body:       `{"paycheck":100,"categories":{"Rent":{"value":10}}}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := do(t, s, http.MethodPost, "/budget", tt.body)

			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, rec.Code)
				assert.Equal(t, string(CodeInvalidField), decodeError(t, rec).Error.Code)
				return
			}

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got map[string]float64
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostChat(t *testing.T) {
	t.Run("fallback without assistant", func(t *testing.T) {
		s := newTestServer(t)
		rec := do(t, s, http.MethodPost, "/ai_chat", `{"message":"how much should I save?"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp chatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, FallbackReply, resp.Reply)
	})

	t.Run("empty message", func(t *testing.T) {
		s := newTestServer(t)
		rec := do(t, s, http.MethodPost, "/ai_chat", `{"message":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("assistant reply", func(t *testing.T) {
		a := &assistantMock{}
		a.On("Reply", mock.Anything, "User: hi\nAssistant: hello\nUser: save?\nAssistant:").
			Return("Save 20%.", nil).Once()

		s := newTestServer(t, WithAssistant(a))
		rec := do(t, s, http.MethodPost, "/ai_chat",
			`{"message":"save?","context":[{"role":"user","text":"hi"},{"role":"assistant","text":"hello"}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"reply":"Save 20%."}`, rec.Body.String())
		a.AssertExpectations(t)
	})

	t.Run("assistant error", func(t *testing.T) {
		a := &assistantMock{}
		a.On("Reply", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

		s := newTestServer(t, WithAssistant(a))
		rec := do(t, s, http.MethodPost, "/ai_chat", `{"message":"hi"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"reply":"AI error: quota exceeded"}`, rec.Body.String())
	})
}

func TestBuildPrompt(t *testing.T) {
	var history []ChatTurn
	for i := range 10 {
		history = append(history, ChatTurn{Role: "user", Text: fmt.Sprintf("m%d", i)})
	}

	prompt := BuildPrompt(history, "last")
	assert.NotContains(t, prompt, "m0\n")
	assert.NotContains(t, prompt, "m1\n")
	assert.True(t, strings.HasPrefix(prompt, "User: m2\n"))
	assert.True(t, strings.HasSuffix(prompt, "User: last\nAssistant:"))
	assert.Equal(t, chatContextTurns+2, strings.Count(prompt, "\n")+1)

	assert.Equal(t, "User: q\nAssistant:", BuildPrompt(nil, "q"))
	assert.Equal(t, "User: a\nUser: q\nAssistant:", BuildPrompt([]ChatTurn{{Text: "a"}}, "q"))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paysplit_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/healthz"`)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(CodeNotFound), decodeError(t, rec).Error.Code)
}

func TestTraceIDIsPropagated(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.Header.Set(TraceIDHeader, "trace-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get(TraceIDHeader))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, rl.allow("1.1.1.1", now))
	assert.True(t, rl.allow("1.1.1.1", now))
	assert.False(t, rl.allow("1.1.1.1", now))
	assert.True(t, rl.allow("2.2.2.2", now))
	assert.True(t, rl.allow("1.1.1.1", now.Add(time.Second)))

	assert.Equal(t, 1, rl.Prune(now.Add(time.Millisecond)))
	assert.Equal(t, 0, rl.Prune(now))
}

func TestRateLimiter_Middleware(t *testing.T) {
	repo, err := OpenRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	s := New(Config{RateLimit: 0.001, Burst: 1}, repo)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, string(CodeRateLimited), decodeError(t, rec).Error.Code)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
