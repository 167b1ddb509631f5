// Package chat posts run notifications to the team chat. Notifications
// are advisory: when chat is down or unconfigured the runs proceed and
// the failure is logged, except in workflows whose whole point is the
// notification.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/internal/httpx"
	"github.com/lotworks/dunner/logger"
)

const (
	postMessagePath = "/chat.postMessage"
	defaultTimeout  = 30 * time.Second
)

// Client posts messages to one configured channel.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	channel    string
	log        *zap.SugaredLogger
}

// NewClient builds a chat client from configuration.
func NewClient(cfg config.ChatConfig) *Client {
	return &Client{
		httpClient: httpx.New(defaultTimeout),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		channel:    cfg.Channel,
		log:        logger.ComponentLogger("chat"),
	}
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Enabled reports whether the client has enough configuration to post.
func (c *Client) Enabled() bool {
	return c.token != "" && c.channel != ""
}

// Post sends one message to the configured channel. The chat API signals
// failure in the body with a 200 status, so both the HTTP status and the
// ok flag are checked.
func (c *Client) Post(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"channel": c.channel,
		"text":    text,
	})
	if err != nil {
		return errors.Wrap(err, "marshaling chat message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+postMessagePath, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "building chat request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "posting chat message")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading chat response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("chat API status %d", resp.StatusCode)
	}

	var answer struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &answer); err != nil {
		return errors.Wrap(err, "decoding chat response")
	}
	if !answer.OK {
		return errors.Newf("chat API declined: %s", answer.Error)
	}
	return nil
}

// Announce posts a message and swallows failures, logging them instead.
// Most workflows treat chat as best-effort.
func (c *Client) Announce(ctx context.Context, text string) {
	if !c.Enabled() {
		c.log.Debugw("chat not configured, notification skipped")
		return
	}
	if err := c.Post(ctx, text); err != nil {
		c.log.Warnw("chat notification failed", logger.FieldError, err)
	}
}

// Mention renders a user-group mention prefix, or nothing when no group
// is configured.
func Mention(groupID string) string {
	if groupID == "" {
		return ""
	}
	return fmt.Sprintf("<!subteam^%s> ", groupID)
}
