// Package telegram adapts the Telegram Bot API to the trial channel transport.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"trialgate/internal/platform/logger"
	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
)

const maxResponseBytes = 1 << 20

// Client manages membership of a single channel through a bot account.
type Client struct {
	baseURL   string
	token     string
	channelID int64
	http      *http.Client
	logger    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func New(baseURL, token string, channelID int64, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		channelID: channelID,
		http:      &http.Client{Timeout: 15 * time.Second},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type inviteLink struct {
	InviteLink string `json:"invite_link"`
}

// CreateInvite issues a single-use link that stops working at expiresAt.
func (c *Client) CreateInvite(ctx context.Context, userID models.UserID, expiresAt time.Time) (string, error) {
	var link inviteLink
	err := c.call(ctx, "createChatInviteLink", map[string]any{
		"chat_id":      c.channelID,
		"name":         "trial-" + userID.String(),
		"expire_date":  expiresAt.Unix(),
		"member_limit": 1,
	}, &link)
	if err != nil {
		return "", err
	}
	if link.InviteLink == "" {
		return "", dErrors.New(dErrors.CodeExternalUnavailable, "telegram returned an empty invite link")
	}
	return link.InviteLink, nil
}

// RemoveMember kicks the user. Telegram has no kick call, so the user is
// banned and immediately unbanned, which leaves them free to rejoin later
// through a fresh invite.
func (c *Client) RemoveMember(ctx context.Context, userID models.UserID) error {
	if err := c.call(ctx, "banChatMember", map[string]any{
		"chat_id": c.channelID,
		"user_id": int64(userID),
	}, nil); err != nil {
		return err
	}
	if err := c.call(ctx, "unbanChatMember", map[string]any{
		"chat_id":        c.channelID,
		"user_id":        int64(userID),
		"only_if_banned": true,
	}, nil); err != nil {
		// The user is already out of the channel at this point.
		c.logger.WarnContext(ctx, "unban after removal failed",
			"user_id", userID.String(),
			logger.Err(err),
		)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params map[string]any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of the error.
		return dErrors.New(dErrors.CodeExternalUnavailable, method+" request failed")
	}
	defer resp.Body.Close()

	var ar apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&ar); err != nil {
		return dErrors.Wrap(err, dErrors.CodeExternalUnavailable, fmt.Sprintf("%s: unreadable response (status %d)", method, resp.StatusCode))
	}
	if !ar.OK {
		return dErrors.New(dErrors.CodeExternalUnavailable, fmt.Sprintf("%s: %d %s", method, ar.ErrorCode, ar.Description))
	}
	if out != nil {
		if err := json.Unmarshal(ar.Result, out); err != nil {
			return dErrors.Wrap(err, dErrors.CodeExternalUnavailable, method+": unexpected result")
		}
	}
	return nil
}
