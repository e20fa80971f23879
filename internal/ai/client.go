// Package ai wraps the hosted chat-completions API used for item
// suggestions, validation, receipt parsing, and spending predictions.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel  = "llama-3.3-70b-versatile"
)

// Config holds the completion API configuration.
type Config struct {
	APIKey string
	APIURL string
	Model  string
}

// Client is a chat-completions client. All requests ask for JSON output and
// retry transient failures with backoff.
type Client struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey: cfg.APIKey,
		apiURL: cfg.APIURL,
		model:  cfg.Model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if c.apiURL == "" {
		c.apiURL = defaultAPIURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	return c
}

// Configured returns true if an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// transientError marks a failure worth retrying (network error or 5xx).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// complete sends one prompt pair and returns the model's JSON text.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	var content string
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		content, err = c.completeOnce(ctx, system, user)
		var te *transientError
		if errors.As(err, &te) {
			return retry.RetryableError(te.err)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) completeOnce(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature":     0.1,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &transientError{err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", &transientError{err: fmt.Errorf("completion api error: status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	return completion.Choices[0].Message.Content, nil
}
