package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/internal/storage"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const (
	DefaultSubject = "New Contact Form Submission"

	// Config keys reported when the relay is not configured.
	SettingAPIKey = "mail.api_key"
	SettingTo     = "mail.to"
	SettingFrom   = "mail.from"

	TextCodeNotConfigured = "MAIL_NOT_CONFIGURED"
	TextCodeSendFailed    = "MAIL_SEND_FAILED"

	MessageKeyMissing     = "Resend API key not configured"
	MessageConfigMissing  = "Email configuration missing"
	MessageSendFailed     = "Failed to send email"
	contactHeading        = "<h2>New Contact Form Submission</h2><br>"
	disclaimerKey         = "disclaimer"
	disclaimerLineFormat  = "<p><strong>Disclaimer Accepted:</strong> %s</p>"
	fieldLineFormat       = "<p><strong>%s:</strong> %s</p>"
	fieldValueKeyTemplate = "field-%d"
)

// Field describes one input of the contact form.
type Field struct {
	Label       string `json:"label"`
	InputType   string `json:"input_type,omitempty"`
	FieldType   string `json:"field_type,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Submission is a posted contact form. FormData values are strings or
// booleans keyed "field-<index>", plus an optional "disclaimer".
type Submission struct {
	FormData   map[string]any `json:"formData"`
	FormFields []Field        `json:"formFields"`
}

// Config holds the relay settings.
type Config struct {
	APIKey  string
	From    string
	To      string
	Subject string
}

// SubmissionRecorder keeps a record of relayed submissions.
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, sub storage.Submission) (storage.Submission, error)
}

// Relay turns submissions into emails.
type Relay struct {
	cfg      Config
	sender   Sender
	recorder SubmissionRecorder
	logger   interfaces.Logger
	now      func() time.Time
}

// NewRelay builds a Relay. recorder may be nil.
func NewRelay(cfg Config, sender Sender, recorder SubmissionRecorder, logger interfaces.Logger) *Relay {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Relay{cfg: cfg, sender: sender, recorder: recorder, logger: logger, now: time.Now}
}

// Submit renders and sends sub, returning the provider message id.
func (r *Relay) Submit(ctx context.Context, sub Submission) (SendResult, error) {
	if strings.TrimSpace(r.cfg.APIKey) == "" || r.sender == nil {
		r.logger.WithContext(ctx).Error("mailer.not_configured", "missing", []string{SettingAPIKey})
		return SendResult{}, notConfigured(MessageKeyMissing)
	}
	if missing := r.missingAddresses(); len(missing) > 0 {
		r.logger.WithContext(ctx).Error("mailer.not_configured", "missing", missing)
		return SendResult{}, notConfigured(MessageConfigMissing)
	}

	subject := r.cfg.Subject
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	result, err := r.sender.Send(ctx, Email{
		From:    r.cfg.From,
		To:      []string{r.cfg.To},
		ReplyTo: r.cfg.From,
		Subject: subject,
		HTML:    RenderContactHTML(sub.FormData, sub.FormFields),
	})
	if err != nil {
		r.logger.WithContext(ctx).Error("mailer.send_failed", "error", err)
		return SendResult{}, goerrors.Wrap(err, goerrors.CategoryExternal, MessageSendFailed).
			WithTextCode(TextCodeSendFailed)
	}

	if r.recorder != nil {
		_, recErr := r.recorder.RecordSubmission(ctx, storage.Submission{
			Subject:    subject,
			ToAddress:  r.cfg.To,
			ProviderID: result.ID,
			CreatedAt:  r.now().UTC(),
		})
		if recErr != nil {
			r.logger.WithContext(ctx).Warn("mailer.record_failed", "provider_id", result.ID, "error", recErr)
		}
	}
	r.logger.WithContext(ctx).Info("mailer.sent", "provider_id", result.ID)
	return result, nil
}

func (r *Relay) missingAddresses() []string {
	var missing []string
	if strings.TrimSpace(r.cfg.To) == "" {
		missing = append(missing, SettingTo)
	}
	if strings.TrimSpace(r.cfg.From) == "" {
		missing = append(missing, SettingFrom)
	}
	return missing
}

// RenderContactHTML builds the email body. Only truthy values are listed,
// in field order. Labels and values are escaped.
func RenderContactHTML(formData map[string]any, fields []Field) string {
	var b strings.Builder
	b.WriteString(contactHeading)
	for i, field := range fields {
		value, ok := display(formData[fmt.Sprintf(fieldValueKeyTemplate, i)])
		if !ok {
			continue
		}
		fmt.Fprintf(&b, fieldLineFormat, html.EscapeString(field.Label), html.EscapeString(value))
	}
	if accepted, present := formData[disclaimerKey]; present {
		answer := "No"
		if _, truthy := display(accepted); truthy {
			answer = "Yes"
		}
		fmt.Fprintf(&b, disclaimerLineFormat, answer)
	}
	return b.String()
}

// display returns the printable form of a form value and whether the value
// counts as filled in.
func display(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, v != ""
	case bool:
		return "true", v
	case float64:
		return fmt.Sprint(v), v != 0
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

func notConfigured(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).WithTextCode(TextCodeNotConfigured)
}

// IsNotConfigured reports whether err is a missing mail configuration.
func IsNotConfigured(err error) bool {
	var merr *goerrors.Error
	return goerrors.As(err, &merr) && merr.TextCode == TextCodeNotConfigured
}
