package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mssola/useragent"
	"github.com/spiralwrks/spiralworks.ai/pkg/circuitbreaker"
	"github.com/spiralwrks/spiralworks.ai/pkg/constants"
	"github.com/spiralwrks/spiralworks.ai/pkg/retry"
	"golang.org/x/time/rate"
)

const (
	webhookUsername  = "Spiral Works Waitlist Bot"
	webhookAvatarURL = "https://spiralworks.ai/favicon.ico"
	embedTitle       = "New Public Beta Signup!"
	embedColor       = 0x8622c9
)

type webhookPayload struct {
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url"`
	Embeds    []embed `json:"embeds"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Fields    []embedField `json:"fields"`
	Timestamp string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type WebhookConfig struct {
	URL string
	// Rate and Burst pace outgoing posts; Discord allows roughly 5 per 2s.
	Rate    rate.Limit
	Burst   int
	Client  *http.Client
	Retry   retry.RetryPolicy
	Breaker circuitbreaker.CircuitBreaker
}

// WebhookSink posts a chat embed for every signup.
type WebhookSink struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.RetryPolicy
	breaker circuitbreaker.CircuitBreaker
}

func NewWebhookSink(cfg WebhookConfig) *WebhookSink {
	if cfg.Rate == 0 {
		cfg.Rate = rate.Every(500 * time.Millisecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.NewExponentialBackoff(nil)
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.NewCircuitBreaker(nil)
	}

	return &WebhookSink{
		url:     cfg.URL,
		client:  cfg.Client,
		limiter: rate.NewLimiter(cfg.Rate, cfg.Burst),
		retry:   cfg.Retry,
		breaker: cfg.Breaker,
	}
}

func (s *WebhookSink) Notify(ctx context.Context, event SignupEvent) error {
	body, err := json.Marshal(buildPayload(event))
	if err != nil {
		return fmt.Errorf("webhook: encode payload: %w", err)
	}

	return s.breaker.Call(func() error {
		return s.retry.Execute(ctx, func(ctx context.Context) error {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			return s.post(ctx, body)
		})
	})
}

func (s *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
}

func buildPayload(event SignupEvent) webhookPayload {
	return webhookPayload{
		Username:  webhookUsername,
		AvatarURL: webhookAvatarURL,
		Embeds: []embed{{
			Title: embedTitle,
			Color: embedColor,
			Fields: []embedField{
				{Name: "Name", Value: event.Name, Inline: true},
				{Name: "Email", Value: event.Email, Inline: true},
				{Name: "Organization", Value: event.Organization, Inline: true},
				{Name: "Source", Value: event.Source, Inline: true},
				{Name: "Client", Value: DescribeClient(event.UserAgent), Inline: true},
			},
			Timestamp: event.CreatedAt.UTC().Format(constants.RFC3339DateTimeFormat),
		}},
	}
}

// DescribeClient renders a user agent as "Browser version on OS".
func DescribeClient(raw string) string {
	if raw == "" || raw == constants.UnknownClientValue {
		return constants.UnknownClientValue
	}

	ua := useragent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "bot: " + name
	}

	name, version := ua.Browser()
	desc := strings.TrimSpace(name + " " + version)
	if os := ua.OS(); os != "" {
		desc += " on " + os
	}
	if ua.Mobile() {
		desc += " (mobile)"
	}
	if desc == "" {
		return constants.UnknownClientValue
	}
	return desc
}
