package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
)

// RequestIDHeader carries a fresh id on every request for server-side log
// correlation.
const RequestIDHeader = "X-Request-ID"

// Client provides REST API access to a Message Rooms server.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a new REST API client.
// baseURL should be the base URL of the API, e.g., "http://localhost:9050/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the access token sent in the Authorization header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the access token in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authentication endpoints

// Login checks nickname and password and returns the user with its access
// token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.send(ctx, http.MethodPost, "/user/login", req, &resp, false); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.New("login response without access_token")
	}
	return &resp, nil
}

// Room endpoints

// ListRooms returns the rooms visible to the authenticated user.
func (c *Client) ListRooms(ctx context.Context) ([]model.Room, error) {
	var resp []model.Room
	if err := c.send(ctx, http.MethodGet, "/rooms", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateRoom creates a room owned by the authenticated user.
func (c *Client) CreateRoom(ctx context.Context, name string) (*model.Room, error) {
	var resp CreateRoomResponse
	req := CreateRoomRequest{RoomName: name}
	if err := c.send(ctx, http.MethodPost, "/rooms", req, &resp, true); err != nil {
		return nil, err
	}
	if resp.Room.ID == "" {
		return nil, errors.New("create room response without room id")
	}
	return &resp.Room, nil
}

// RoomDetails returns a room and whether the caller is a member.
func (c *Client) RoomDetails(ctx context.Context, roomID string) (*model.RoomDetail, error) {
	var resp model.RoomDetail
	if err := c.send(ctx, http.MethodGet, roomPath(roomID, ""), nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JoinRoom adds the authenticated user to a room.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	var resp JoinResponse
	if err := c.send(ctx, http.MethodPut, roomPath(roomID, "/join"), nil, &resp, true); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("join room %s: not acknowledged", roomID)
	}
	return nil
}

// Message endpoints

// GetMessages retrieves the message history of a room.
func (c *Client) GetMessages(ctx context.Context, roomID string) ([]model.Message, error) {
	var resp MessagesResponse
	if err := c.send(ctx, http.MethodGet, roomPath(roomID, "/messages"), nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// PostMessage sends text to a room and returns the stored message. The
// message also arrives on the event stream of every member.
func (c *Client) PostMessage(ctx context.Context, roomID, text string) (*model.Message, error) {
	var resp PostMessageResponse
	req := PostMessageRequest{MessageText: text}
	if err := c.send(ctx, http.MethodPost, roomPath(roomID, "/message"), req, &resp, true); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// Helper methods

func roomPath(roomID, suffix string) string {
	return "/rooms/" + url.PathEscape(roomID) + suffix
}

func (c *Client) send(ctx context.Context, method, path string, body, dest any, requireAuth bool) error {
	bodyReader := io.Reader(http.NoBody)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	if token := c.Token(); requireAuth && token != "" {
		req.Header.Set("Authorization", token)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: req.Header.Get(RequestIDHeader)}
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
			apiErr.Message = errResp.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	// Unmarshal success response
	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// IsUnauthorized reports whether err is an API error with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
