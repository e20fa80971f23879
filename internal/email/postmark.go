package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendListUpdate notifies a member that someone changed a shared list.
func (c *Client) SendListUpdate(toEmail, listName, actorName string) error {
	subject := fmt.Sprintf("%q foi atualizada no Compr.AI", listName)
	link := fmt.Sprintf("%s/lists", c.baseURL)
	textBody := fmt.Sprintf("%s atualizou a lista %q.\n\nVeja as mudanças em %s", actorName, listName, link)
	htmlBody := fmt.Sprintf(
		`<p><strong>%s</strong> atualizou a lista <strong>%s</strong>.</p><p><a href="%s">Ver lista</a></p>`,
		actorName, listName, link,
	)
	return c.send(toEmail, subject, htmlBody, textBody)
}

// SendShareInvite emails a share code for a list.
func (c *Client) SendShareInvite(toEmail, listName, code string) error {
	subject := fmt.Sprintf("Você foi convidado para a lista %q no Compr.AI", listName)
	link := fmt.Sprintf("%s/join/%s", c.baseURL, code)
	textBody := fmt.Sprintf("Use o código %s para entrar na lista %q:\n\n%s", code, listName, link)
	htmlBody := fmt.Sprintf(
		`<p>Use o código <strong>%s</strong> para entrar na lista <strong>%s</strong>:</p><p><a href="%s">%s</a></p>`,
		code, listName, link, link,
	)
	return c.send(toEmail, subject, htmlBody, textBody)
}

func (c *Client) send(toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
