package lobby

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"pong-lite/apps/peer/internal/transport"
	"pong-lite/pong"
	"pong-lite/wire"
)

const (
	joinPath   = "/v1/games/join"
	leavePath  = "/v1/games/leave"
	statusPath = "/v1/games/status"

	defaultTimeout = 5 * time.Second
	maxErrorBody   = 4096
)

var (
	ErrEmptyBaseURL = errors.New("empty lobby base url")
	ErrEmptyUserID  = errors.New("empty user id")
	ErrBadResponse  = errors.New("malformed lobby response")
)

// RequestError is returned when the backend answers with a non-2xx status.
type RequestError struct {
	Path   string
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("lobby %s failed: status=%d body=%q", e.Path, e.Status, e.Body)
}

type joinRequest struct {
	Place string `json:"place"`
}

type joinResponse struct {
	PrivateChannel  string `json:"private_channel"`
	ConnectionToken string `json:"connection_token"`
	SubscribeToken  string `json:"subscribe_token"`
}

// Client talks to the game backend that assigns slots and hands out
// transport tokens. The bearer token is the user id itself.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
}

// NewUserID returns a random anonymous identity of the form user_<id>.
func NewUserID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "user_" + id[:9]
}

func New(baseURL, userID string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, userID: userID, http: httpClient}, nil
}

func (c *Client) UserID() string { return c.userID }

// Join asks for slot and returns the credentials for the authenticated
// connection and the slot's private channel.
func (c *Client) Join(ctx context.Context, slot pong.Slot) (transport.Credentials, error) {
	if !slot.Valid() {
		return transport.Credentials{}, pong.ErrInvalidSlot
	}
	body, err := json.Marshal(joinRequest{Place: slot.String()})
	if err != nil {
		return transport.Credentials{}, err
	}
	raw, err := c.do(ctx, http.MethodPost, joinPath, body)
	if err != nil {
		return transport.Credentials{}, err
	}

	var resp joinResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return transport.Credentials{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if resp.PrivateChannel == "" || resp.ConnectionToken == "" {
		return transport.Credentials{}, fmt.Errorf("%w: missing channel or token", ErrBadResponse)
	}
	log.Printf("[Lobby] user %s joined as %s (channel=%s)", c.userID, slot, resp.PrivateChannel)
	return transport.Credentials{
		PrivateChannel:  resp.PrivateChannel,
		ConnectionToken: resp.ConnectionToken,
		SubscribeToken:  resp.SubscribeToken,
	}, nil
}

// Leave gives up whatever slot the user holds.
func (c *Client) Leave(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, leavePath, nil); err != nil {
		return err
	}
	log.Printf("[Lobby] user %s left", c.userID)
	return nil
}

// Status fetches the authoritative game snapshot.
func (c *Client) Status(ctx context.Context) (pong.Status, error) {
	raw, err := c.do(ctx, http.MethodGet, statusPath, nil)
	if err != nil {
		return pong.Status{}, err
	}
	status, err := wire.DecodeStatus(raw)
	if err != nil {
		return pong.Status{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.userID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lobby %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &RequestError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lobby %s: read body: %w", path, err)
	}
	return raw, nil
}
