package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/paysplit/internal/budget"
	"github.com/Veraticus/paysplit/internal/model"
	"github.com/labstack/echo/v4"
)

// SettingsSavedMessage acknowledges a successful POST /settings.
const SettingsSavedMessage = "Settings updated successfully"

// FallbackReply is sent by /ai_chat when no assistant is configured.
const FallbackReply = "I can't access the AI engine right now. Quick guidance: pay essentials first (rent, utilities), " +
	"save at least 10-20% if possible, and avoid allocating more than 100% of your paycheck to percentages. " +
	"Ask me specifics like 'How much should I save if I earn $3000?'"

// chatContextTurns is how many earlier turns are passed to the assistant.
const chatContextTurns = 8

// Assistant answers budgeting questions.
type Assistant interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

type budgetRule struct {
	Type  string  `json:"type" validate:"required"`
	Value float64 `json:"value"`
}

type budgetRequest struct {
	Paycheck   *float64              `json:"paycheck" validate:"required,gte=0"`
	Categories map[string]budgetRule `json:"categories" validate:"dive"`
}

// ChatTurn is one earlier message in a chat conversation.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type chatRequest struct {
	Message string     `json:"message" validate:"required"`
	Context []ChatTurn `json:"context"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func profileOf(c echo.Context) string {
	if p := strings.TrimSpace(c.QueryParam("profile")); p != "" {
		return p
	}
	return DefaultProfile
}

func (s *Server) getSettings(c echo.Context) error {
	settings, err := s.repo.Get(c.Request().Context(), profileOf(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) postSettings(c echo.Context) error {
	var settings model.Settings
	if err := json.NewDecoder(http.MaxBytesReader(c.Response(), c.Request().Body, 1<<20)).Decode(&settings); err != nil {
		s.metrics.settingsWrites.WithLabelValues("invalid").Inc()
		return newAPIError(CodeInvalidBody, err.Error())
	}
	if err := settings.Validate(); err != nil {
		s.metrics.settingsWrites.WithLabelValues("invalid").Inc()
		return newAPIError(CodeInvalidField, err.Error())
	}

	profile := profileOf(c)
	version, err := s.repo.Put(c.Request().Context(), profile, settings)
	switch {
	case errors.Is(err, ErrStaleVersion):
		s.metrics.settingsWrites.WithLabelValues("stale").Inc()
		return newAPIError(CodeStaleVersion, fmt.Sprintf("stored version is %d", version))
	case err != nil:
		s.metrics.settingsWrites.WithLabelValues("error").Inc()
		return err
	}

	s.metrics.settingsWrites.WithLabelValues("stored").Inc()
	s.metrics.settingsVersion.WithLabelValues(profile).Set(float64(version))
	return c.JSON(http.StatusOK, map[string]any{
		"message": SettingsSavedMessage,
		"version": version,
	})
}

func (s *Server) postBudget(c echo.Context) error {
	var req budgetRequest
	if err := c.Bind(&req); err != nil {
		return newAPIError(CodeInvalidBody, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	names := make([]string, 0, len(req.Categories))
	for name := range req.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]budget.Rule, 0, len(names))
	for _, name := range names {
		r := req.Categories[name]
		rules = append(rules, budget.Rule{Name: name, Type: r.Type, Value: r.Value})
	}

	plan, err := budget.Allocate(*req.Paycheck, rules)
	if err != nil {
		return newAPIError(CodeInvalidField, err.Error())
	}
	s.metrics.allocations.Inc()

	out := make(map[string]float64, len(plan.Lines)+1)
	for _, line := range plan.Lines {
		out[line.Name] = line.Amount.InexactFloat64()
	}
	out[budget.RemainingLine] = plan.Remaining.InexactFloat64()
	return c.JSON(http.StatusOK, out)
}

func (s *Server) postChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return newAPIError(CodeInvalidBody, err.Error())
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := c.Validate(&req); err != nil {
		return err
	}

	if s.assistant == nil {
		s.metrics.chatReplies.WithLabelValues("fallback").Inc()
		return c.JSON(http.StatusOK, chatResponse{Reply: FallbackReply})
	}

	reply, err := s.assistant.Reply(c.Request().Context(), BuildPrompt(req.Context, req.Message))
	if err != nil {
		s.metrics.chatReplies.WithLabelValues("error").Inc()
		return c.JSON(http.StatusOK, chatResponse{Reply: fmt.Sprintf("AI error: %v", err)})
	}
	s.metrics.chatReplies.WithLabelValues("assistant").Inc()
	return c.JSON(http.StatusOK, chatResponse{Reply: reply})
}

// BuildPrompt renders the last few turns of a conversation followed by the
// new message.
func BuildPrompt(history []ChatTurn, message string) string {
	if len(history) > chatContextTurns {
		history = history[len(history)-chatContextTurns:]
	}

	var b strings.Builder
	for _, turn := range history {
		role := strings.TrimSpace(turn.Role)
		if role == "" {
			role = "user"
		}
		fmt.Fprintf(&b, "%s%s: %s\n", strings.ToUpper(role[:1]), strings.ToLower(role[1:]), turn.Text)
	}
	fmt.Fprintf(&b, "User: %s\nAssistant:", message)
	return b.String()
}

func (s *Server) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
