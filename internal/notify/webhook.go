// ABOUTME: Chat/paging webhook channel: HMAC-signed POST, SSRF-safe client, body discard.
// ABOUTME: The http.Client is injected so tests can bypass safeurl's private-IP blocking.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sableridge/watchdesk/internal/incident"
)

// WebhookChannel posts an incident summary to a chat/paging webhook. Optional:
// constructed only when INCIDENT_WEBHOOK_URL is set.
type WebhookChannel struct {
	client *http.Client
	url    string
	secret string
}

// NewWebhookChannel creates the webhook channel. client should be the
// production safeurl-wrapped client from BuildSafeClient.
func NewWebhookChannel(client *http.Client, url, secret string) *WebhookChannel {
	return &WebhookChannel{client: client, url: url, secret: secret}
}

// Name implements Channel.
func (c *WebhookChannel) Name() string { return "webhook" }

// webhookPayload is the wire shape posted to the chat endpoint.
type webhookPayload struct {
	IncidentID   string `json:"incident_id"`
	Status       string `json:"status"`
	Severity     string `json:"severity"`
	SubmittedAt  string `json:"submitted_at"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	Organization string `json:"organization,omitempty"`
	Description  string `json:"description"`
	Text         string `json:"text"` // pre-formatted line for chat clients
}

// Send implements Channel. The payload is HMAC-SHA256 signed over
// "timestamp.body" when a secret is configured; the response body is
// discarded (capped) to allow connection reuse.
func (c *WebhookChannel) Send(ctx context.Context, r *incident.Report) error {
	severity := r.Incident.Severity
	if severity == "" {
		severity = "unknown"
	}
	payload, err := json.Marshal(webhookPayload{
		IncidentID:   r.IncidentID,
		Status:       r.Status,
		Severity:     severity,
		SubmittedAt:  r.SubmittedAt.UTC().Format(time.RFC3339),
		ContactName:  r.Contact.Name,
		ContactPhone: r.Contact.Phone,
		Organization: r.Contact.Organization,
		Description:  r.Incident.Description,
		Text: fmt.Sprintf(":rotating_light: %s [%s] reported by %s — call %s",
			r.IncidentID, severity, r.Contact.Name, r.Contact.Phone),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.secret != "" {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		mac := hmac.New(sha256.New, []byte(c.secret))
		mac.Write([]byte(ts + "." + string(payload)))
		req.Header.Set("X-Watchdesk-Timestamp", ts)
		req.Header.Set("X-Watchdesk-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	// Discard response body to allow connection reuse; cap at 4 KiB.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook POST: unexpected status %d", resp.StatusCode)
	}
	return nil
}
