// Package directory talks to the user-directory service, the external owner of
// user identity, follow edges, and profile media.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is the directory's projection of a user, including the avatar URL used
// to enrich message payloads.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Directory is the read-only collaborator contract the messaging core consumes.
type Directory interface {
	ValidateToken(ctx context.Context, token string) (int, error)
	GetUser(ctx context.Context, userID int) (User, error)
	BulkUsers(ctx context.Context, ids []int) ([]User, error)
	ConnectionsOf(ctx context.Context, userID int) ([]User, error)
	HasConnection(ctx context.Context, userID int, peerID int) (bool, error)
}

// Client is an HTTP implementation of Directory against the user-directory's
// internal API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// ValidateToken resolves a bearer token to a user id.
func (c *Client) ValidateToken(ctx context.Context, token string) (int, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/auth/validate", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Valid  bool `json:"valid"`
		UserID int  `json:"user_id"`
	}
	if err := c.do(req, &resp); err != nil {
		return 0, err
	}
	if !resp.Valid || resp.UserID == 0 {
		return 0, errors.New("invalid token")
	}
	return resp.UserID, nil
}

// GetUser fetches a single user.
func (c *Client) GetUser(ctx context.Context, userID int) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/internal/users/"+strconv.Itoa(userID), nil)
	if err != nil {
		return User{}, err
	}

	var user User
	if err := c.do(req, &user); err != nil {
		return User{}, err
	}
	if user.ID == 0 {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// BulkUsers fetches multiple users in one call.
func (c *Client) BulkUsers(ctx context.Context, ids []int) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	endpoint := c.baseURL + "/internal/users?ids=" + url.QueryEscape(strings.Join(parts, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// ConnectionsOf returns every user connected to userID by a follow edge in
// either direction.
func (c *Client) ConnectionsOf(ctx context.Context, userID int) ([]User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/internal/users/"+strconv.Itoa(userID)+"/connections", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// HasConnection reports whether a follow edge exists between the two users in
// either direction.
func (c *Client) HasConnection(ctx context.Context, userID int, peerID int) (bool, error) {
	endpoint := fmt.Sprintf("%s/internal/connections/check?user_id=%d&peer_id=%d", c.baseURL, userID, peerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	var resp struct {
		Connected bool `json:"connected"`
	}
	if err := c.do(req, &resp); err != nil {
		return false, err
	}
	return resp.Connected, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("user directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("user directory returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode user directory response: %w", err)
	}
	return nil
}
