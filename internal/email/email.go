// Package email sends transactional account mail through an HTTP mail
// API.
package email

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/util"
)

const sendTimeout = 10 * time.Second

// Message is one outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds the mail API settings.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"baseURL"`
	APIKey  string `yaml:"apiKey"`
	From    string `yaml:"from"`
}

// HTTPSender posts messages to a Mailgun-compatible messages endpoint.
type HTTPSender struct {
	cfg        Config
	httpClient *http.Client
	logger     observability.Logger
}

// NewHTTPSender creates an HTTPSender.
func NewHTTPSender(cfg Config, logger observability.Logger) (*HTTPSender, error) {
	if cfg.BaseURL == "" {
		return nil, util.NewConfigError("email.baseURL", "must not be empty")
	}
	if cfg.From == "" {
		return nil, util.NewConfigError("email.from", "must not be empty")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &HTTPSender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: sendTimeout},
		logger:     logger,
	}, nil
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("from", s.cfg.From)
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("text", msg.Body)

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.cfg.APIKey != "" {
		req.SetBasicAuth("api", s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return util.NewBackendErrorWithCause("email", "send failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &util.BackendError{
			Backend: "email",
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	s.logger.Info("email sent",
		observability.String("to", msg.To),
		observability.String("subject", msg.Subject))
	return nil
}

// NopSender drops mail. Used when email delivery is disabled.
type NopSender struct{}

// Send implements Sender.
func (NopSender) Send(context.Context, Message) error { return nil }

// New creates a Sender from the configuration.
func New(cfg Config, logger observability.Logger) (Sender, error) {
	if !cfg.Enabled {
		return NopSender{}, nil
	}
	return NewHTTPSender(cfg, logger)
}
