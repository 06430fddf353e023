package avatarapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yourusername/studyhub-api/internal/config"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

// ErrNotConfigured возвращается, если ключ провайдера не задан
var ErrNotConfigured = errors.New("live avatar provider is not configured")

// SessionToken - результат обмена ключа API на токен сессии провайдера.
// Токен передается браузеру, который сам подключается к медиа-комнате.
type SessionToken struct {
	SessionID string `json:"session_id"`
	Token     string `json:"session_token"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

type tokenRequest struct {
	AvatarID string `json:"avatar_id"`
	RoomName string `json:"room_name"`
	Language string `json:"language,omitempty"`
}

type tokenEnvelope struct {
	Data SessionToken `json:"data"`
}

type stopRequest struct {
	SessionID string `json:"session_id"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client - HTTP-клиент провайдера живого аватара
type Client struct {
	http       *resty.Client
	avatarID   string
	configured bool
}

// NewClient создает клиента провайдера
func NewClient(cfg config.LiveAvatarConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(timeout).
			SetHeader("X-Api-Key", cfg.APIKey).
			SetHeader("Content-Type", "application/json"),
		avatarID:   cfg.AvatarID,
		configured: cfg.APIKey != "" && cfg.BaseURL != "",
	}
}

// CreateSessionToken запрашивает токен новой сессии для комнаты roomName
func (c *Client) CreateSessionToken(ctx context.Context, roomName, language string) (*SessionToken, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	var out tokenEnvelope
	var apiErr errorEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(tokenRequest{AvatarID: c.avatarID, RoomName: roomName, Language: language}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/sessions/token")
	if err != nil {
		return nil, fmt.Errorf("%w: session token request failed: %v", apperrors.ErrUpstream, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: session token request returned %d: %s", apperrors.ErrUpstream, resp.StatusCode(), apiErr.text(resp))
	}
	if out.Data.Token == "" || out.Data.SessionID == "" {
		return nil, fmt.Errorf("%w: session token response is incomplete", apperrors.ErrUpstream)
	}
	return &out.Data, nil
}

// StopSession закрывает сессию на стороне провайдера
func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	if !c.configured {
		return ErrNotConfigured
	}
	var apiErr errorEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(stopRequest{SessionID: sessionID}).
		SetError(&apiErr).
		Post("/v1/sessions/stop")
	if err != nil {
		return fmt.Errorf("%w: stop session request failed: %v", apperrors.ErrUpstream, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: stop session returned %d: %s", apperrors.ErrUpstream, resp.StatusCode(), apiErr.text(resp))
	}
	return nil
}

func (e errorEnvelope) text(resp *resty.Response) string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	default:
		return resp.Status()
	}
}
