package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/sprintsync/internal/cache"
	"github.com/geocoder89/sprintsync/internal/observability"
)

type DescriptionRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=255"`
	Context     *string `json:"context" binding:"omitempty,max=1000"`
	ProjectType string  `json:"project_type" binding:"omitempty,max=100"`
	Complexity  string  `json:"complexity" binding:"omitempty,oneof=low medium high"`
}

type DescriptionResponse struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	TechnicalNotes     []string `json:"technical_notes"`
	EstimatedHours     *float64 `json:"estimated_hours"`
	Tags               []string `json:"tags"`
	AIGenerated        bool     `json:"ai_generated"`
}

type TitleRequest struct {
	Context     string `json:"context" binding:"required,min=1,max=1000"`
	ProjectType string `json:"project_type" binding:"omitempty,max=100"`
	Count       int    `json:"count" binding:"omitempty,min=1,max=10"`
}

type TitleResponse struct {
	Suggestions []string `json:"suggestions"`
	AIGenerated bool     `json:"ai_generated"`
}

type StatusReport struct {
	Available bool   `json:"available"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Model     string `json:"model,omitempty"`
}

const (
	StatusNotConfigured = "not_configured"
	StatusConnected     = "connected"
	StatusError         = "error"

	statusCacheKey = "ai.status"
)

// Service wraps a Completer with fallbacks. A nil Completer means the
// backend is not configured and every suggestion is the fallback.
type Service struct {
	client  Completer
	timeout time.Duration
	status  *cache.Cache
	prom    *observability.Prom
	log     *slog.Logger
}

func NewService(client Completer, timeout time.Duration, prom *observability.Prom, log *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		client:  client,
		timeout: timeout,
		status:  cache.New(30 * time.Second),
		prom:    prom,
		log:     log,
	}
}

func (s *Service) Configured() bool {
	return s.client != nil
}

// Status probes the backend with a tiny completion. Results are cached for
// thirty seconds so dashboards polling the endpoint do not spend tokens.
func (s *Service) Status(ctx context.Context) StatusReport {
	if !s.Configured() {
		return StatusReport{
			Available: false,
			Status:    StatusNotConfigured,
			Message:   "OpenAI API key not found in environment variables",
		}
	}

	if v, ok := s.status.Get(statusCacheKey); ok {
		if rep, ok := v.(StatusReport); ok {
			return rep
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.Complete(ctx, ChatRequest{
		Messages:  []Message{{Role: "user", Content: "Hello, this is a test."}},
		MaxTokens: 10,
	})

	rep := StatusReport{
		Available: true,
		Status:    StatusConnected,
		Message:   "AI service is operational",
		Model:     s.client.Model(),
	}
	if err != nil {
		rep = StatusReport{
			Available: false,
			Status:    StatusError,
			Message:   "AI service test failed: " + err.Error(),
		}
	}

	s.status.Set(statusCacheKey, rep)
	return rep
}

// SuggestDescription never fails: backend errors yield FallbackDescription.
func (s *Service) SuggestDescription(ctx context.Context, req DescriptionRequest) DescriptionResponse {
	req = withDescriptionDefaults(req)
	start := time.Now()

	resp, err := s.generateDescription(ctx, req)
	if err != nil {
		s.log.WarnContext(ctx, "ai_description_fallback", "err", err)
		s.prom.ObserveAI("description", "fallback", time.Since(start))
		return FallbackDescription(req.Title, req.Context)
	}

	s.prom.ObserveAI("description", "ai", time.Since(start))
	return resp
}

type descriptionPayload struct {
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	TechnicalNotes     []string `json:"technical_notes"`
	EstimatedHours     *float64 `json:"estimated_hours"`
	Tags               []string `json:"tags"`
}

func (s *Service) generateDescription(ctx context.Context, req DescriptionRequest) (DescriptionResponse, error) {
	if !s.Configured() {
		return DescriptionResponse{}, fmt.Errorf("%w: not configured", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, err := s.client.Complete(ctx, ChatRequest{
		Messages: []Message{
			{Role: "system", Content: descriptionSystemPrompt},
			{Role: "user", Content: descriptionPrompt(req)},
		},
		MaxTokens:   1000,
		Temperature: 0.3,
		JSONObject:  true,
	})
	if err != nil {
		return DescriptionResponse{}, err
	}

	var p descriptionPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return DescriptionResponse{}, fmt.Errorf("%w: parse response: %v", ErrUnavailable, err)
	}

	return DescriptionResponse{
		Title:              req.Title,
		Description:        p.Description,
		AcceptanceCriteria: orEmpty(p.AcceptanceCriteria),
		TechnicalNotes:     orEmpty(p.TechnicalNotes),
		EstimatedHours:     p.EstimatedHours,
		Tags:               orEmpty(p.Tags),
		AIGenerated:        true,
	}, nil
}

// SuggestTitles never fails: backend errors yield FallbackTitles.
func (s *Service) SuggestTitles(ctx context.Context, req TitleRequest) TitleResponse {
	req = withTitleDefaults(req)
	start := time.Now()

	titles, err := s.generateTitles(ctx, req)
	if err != nil {
		s.log.WarnContext(ctx, "ai_title_fallback", "err", err)
		s.prom.ObserveAI("title", "fallback", time.Since(start))
		return TitleResponse{Suggestions: FallbackTitles(req.Context, req.Count), AIGenerated: false}
	}

	s.prom.ObserveAI("title", "ai", time.Since(start))
	return TitleResponse{Suggestions: titles, AIGenerated: true}
}

func (s *Service) generateTitles(ctx context.Context, req TitleRequest) ([]string, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("%w: not configured", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, err := s.client.Complete(ctx, ChatRequest{
		Messages: []Message{
			{Role: "system", Content: titleSystemPrompt},
			{Role: "user", Content: titlePrompt(req)},
		},
		MaxTokens:   200,
		Temperature: 0.7,
		JSONObject:  true,
	})
	if err != nil {
		return nil, err
	}

	titles, err := parseTitles(content)
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrUnavailable, err)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: no titles returned", ErrUnavailable)
	}
	if len(titles) > req.Count {
		titles = titles[:req.Count]
	}
	return titles, nil
}

// parseTitles accepts {"titles": [...]} or a bare JSON array.
func parseTitles(content string) ([]string, error) {
	var wrapped struct {
		Titles []string `json:"titles"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Titles != nil {
		return wrapped.Titles, nil
	}

	var bare []string
	if err := json.Unmarshal([]byte(content), &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

func withDescriptionDefaults(req DescriptionRequest) DescriptionRequest {
	if req.ProjectType == "" {
		req.ProjectType = "web_application"
	}
	if req.Complexity == "" {
		req.Complexity = "medium"
	}
	return req
}

func withTitleDefaults(req TitleRequest) TitleRequest {
	if req.ProjectType == "" {
		req.ProjectType = "web_application"
	}
	if req.Count <= 0 {
		req.Count = 5
	}
	if req.Count > 10 {
		req.Count = 10
	}
	return req
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
