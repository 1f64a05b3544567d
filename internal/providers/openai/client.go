package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biodoia/marketmind/internal/providers"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// DefaultEndpoint è l'endpoint di chat completion usato se non configurato
const DefaultEndpoint = "https://ai.gateway.lovable.dev/v1/chat/completions"

// Config configurazione del client
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client implementa providers.Completer verso un endpoint OpenAI-compatible
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *resty.Client
}

// NewClient crea un nuovo client
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: resty.New(),
	}

	client.configureHTTPClient(cfg.Timeout)
	return client
}

// configureHTTPClient configura il client HTTP: timeout, header e logging.
// I retry sono disabilitati, la policy appartiene al chiamante.
func (c *Client) configureHTTPClient(timeout time.Duration) {
	c.httpClient.
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if c.apiKey != "" {
		c.httpClient.SetAuthToken(c.apiKey)
	}

	c.httpClient.OnBeforeRequest(func(client *resty.Client, req *resty.Request) error {
		log.Debug().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("completion request")
		return nil
	})

	c.httpClient.OnAfterResponse(func(client *resty.Client, resp *resty.Response) error {
		log.Debug().
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("completion response")
		return nil
	})
}

// Complete esegue una singola chiamata di chat completion e restituisce il testo generato
func (c *Client) Complete(ctx context.Context, messages []providers.Message, model string) (string, error) {
	if c.apiKey == "" {
		return "", providers.ErrMissingAPIKey
	}

	req := ChatCompletionRequest{
		Model:    model,
		Messages: make([]ChatMessage, len(messages)),
	}
	for i, msg := range messages {
		req.Messages[i] = ChatMessage{Role: msg.Role, Content: msg.Content}
	}

	var result ChatCompletionResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if resp.IsError() {
		body := resp.String()
		log.Error().
			Int("status", resp.StatusCode()).
			Str("body", body).
			Str("model", model).
			Msg("AI gateway error")
		return "", &providers.UpstreamError{StatusCode: resp.StatusCode(), Body: body}
	}

	return extractContent(&result)
}

// extractContent restituisce il contenuto della prima choice
func extractContent(resp *ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", providers.ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	if msg == nil || msg.Content == nil || strings.TrimSpace(*msg.Content) == "" {
		return "", providers.ErrEmptyResponse
	}

	return *msg.Content, nil
}
