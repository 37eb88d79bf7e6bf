// Package mailer relays contact form submissions by email.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"resty.dev/v3"
)

const DefaultAPIBaseURL = "https://api.resend.com"

// Email is an outgoing message.
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendResult identifies an accepted message.
type SendResult struct {
	ID string `json:"id"`
}

// Sender delivers an Email.
type Sender interface {
	Send(ctx context.Context, email Email) (SendResult, error)
}

type resendError struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// ResendClient sends mail through the Resend HTTP API.
type ResendClient struct {
	http *resty.Client
}

var _ Sender = (*ResendClient)(nil)

// NewResendClient builds a client authenticated with apiKey. An empty
// baseURL uses DefaultAPIBaseURL.
func NewResendClient(apiKey, baseURL string) *ResendClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &ResendClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15*time.Second).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *ResendClient) Send(ctx context.Context, email Email) (SendResult, error) {
	var (
		result SendResult
		apiErr resendError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(email).
		SetResult(&result).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return SendResult{}, goerrors.Wrap(err, goerrors.CategoryExternal, "send email request failed").
			WithTextCode(TextCodeSendFailed)
	}
	if resp.IsError() {
		message := apiErr.Message
		if message == "" {
			message = fmt.Sprintf("mail api returned %d", resp.StatusCode())
		}
		return SendResult{}, goerrors.New(message, goerrors.CategoryExternal).
			WithCode(resp.StatusCode()).
			WithTextCode(TextCodeSendFailed).
			WithMetadata(map[string]any{"provider_error": apiErr.Name})
	}
	return result, nil
}

// Close releases idle connections.
func (c *ResendClient) Close() error {
	return c.http.Close()
}
