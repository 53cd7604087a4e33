package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/assistant-core/server/internal/agent/model"
	logx "github.com/assistant-core/server/pkg/logger"
)

// Config holds the connection settings for the external Google-proxy service
// that performs the actual Gmail/Calendar calls.
type Config struct {
	BaseURL        string `envconfig:"ACTIONS_BASE_URL" default:"https://asistente.ponganos10.online"`
	TimeoutSeconds int    `envconfig:"ACTIONS_TIMEOUT_SECONDS" default:"30"`
	// AuthEndpoint is relayed to the user when the remote service reports
	// missing or expired credentials.
	AuthEndpoint string `envconfig:"ACTIONS_AUTH_ENDPOINT" default:"/auth/google"`
}

// Client performs the side-effecting email/calendar actions. Every invocation
// issues exactly one outbound request; transport failures are folded into a
// displayable ActionResult and never retried here, since retrying a send
// risks duplicate emails or events.
type Client struct {
	baseURL      string
	authEndpoint string
	httpClient   *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		authEndpoint: cfg.AuthEndpoint,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// EmailRequest is the payload for the /gmail/send collaborator endpoint.
type EmailRequest struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	FromEmail string `json:"from_email,omitempty"`
}

// EventRequest is the payload for the /calendar/event collaborator endpoint.
type EventRequest struct {
	Summary       string   `json:"summary"`
	Description   string   `json:"description,omitempty"`
	Location      string   `json:"location,omitempty"`
	StartDatetime string   `json:"start_datetime"`
	EndDatetime   string   `json:"end_datetime"`
	Timezone      string   `json:"timezone,omitempty"`
	Attendees     []string `json:"attendees,omitempty"`
}

type emailResponse struct {
	MessageID string `json:"messageId"`
}

type eventResponse struct {
	EventID  string `json:"eventId"`
	HTMLLink string `json:"htmlLink"`
}

// SendEmail posts the message to the external Gmail endpoint.
func (c *Client) SendEmail(ctx context.Context, req EmailRequest) model.ActionResult {
	var resp emailResponse
	if res := c.post(ctx, "/gmail/send", req, &resp); !res.OK {
		return res
	}

	msg := fmt.Sprintf("✅ Email sent to %s.", req.To)
	if resp.MessageID != "" {
		msg = fmt.Sprintf("✅ Email sent to %s (message id %s).", req.To, resp.MessageID)
	}
	return model.Succeed(msg)
}

// CreateEvent posts the event to the external Calendar endpoint.
func (c *Client) CreateEvent(ctx context.Context, req EventRequest) model.ActionResult {
	var resp eventResponse
	if res := c.post(ctx, "/calendar/event", req, &resp); !res.OK {
		return res
	}

	msg := fmt.Sprintf("✅ Event created: %s (%s → %s)", req.Summary, req.StartDatetime, req.EndDatetime)
	switch {
	case resp.HTMLLink != "":
		msg += " • " + resp.HTMLLink
	case resp.EventID != "":
		msg += " • " + resp.EventID
	}
	return model.Succeed(msg)
}

// post performs one JSON request and normalizes every failure mode into a
// displayable result. A decoding failure on a 2xx body is tolerated: the
// action already happened, so the success message just loses its detail.
func (c *Client) post(ctx context.Context, path string, payload any, out any) model.ActionResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.Fail(fmt.Sprintf("Could not encode the request for %s: %v", path, err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return model.Fail(fmt.Sprintf("Could not build the request for %s: %v", path, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logx.Warn().Err(err).Str("path", path).Msg("action request failed")
		return model.Fail(fmt.Sprintf("The external service could not be reached (%v). The action was not confirmed; please try again.", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return model.Fail(fmt.Sprintf(
			"Google credentials are missing or expired. Ask the user to (re)connect their Google account at %s before retrying.",
			c.authEndpoint,
		))
	}

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		logx.Warn().Int("status", resp.StatusCode).Str("path", path).Str("body", string(b)).Msg("action rejected by remote service")
		return model.Fail(fmt.Sprintf("The external service rejected the request (%d): %s", resp.StatusCode, strings.TrimSpace(string(b))))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			logx.Debug().Err(err).Str("path", path).Msg("could not decode action response body")
		}
	}
	return model.Succeed("")
}
