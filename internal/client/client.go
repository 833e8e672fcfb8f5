package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chatpalace/internal/store"
)

// Session is the caller's identity, held explicitly by whoever owns
// the Client rather than looked up from ambient global state.
type Session struct {
	UserID string
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is a thin wrapper over the REST surface. It asserts the
// session's user ID through the `_id` header on every request that
// has a session attached.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) SetSession(s *Session) { c.session = s }
func (c *Client) Session() *Session { return c.session }

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.session != nil {
		req.Header.Set("_id", c.session.UserID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Register creates a user account. No session is needed or set.
func (c *Client) Register(ctx context.Context, username, profileImage, password, passwordRepeat string) (*store.User, error) {
	body := map[string]string{
		"username":       username,
		"profileImage":   profileImage,
		"password":       password,
		"passwordRepeat": passwordRepeat,
	}
	var user store.User
	if err := c.do(ctx, http.MethodPost, "/api/users", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and attaches the resulting session to the
// client.
func (c *Client) Login(ctx context.Context, username, password string) (*store.User, error) {
	body := map[string]string{"username": username, "password": password}
	var user store.User
	if err := c.do(ctx, http.MethodPost, "/api/users/login", body, &user); err != nil {
		return nil, err
	}
	c.session = &Session{UserID: user.ID}
	return &user, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]store.User, error) {
	var users []store.User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*store.User, error) {
	var user store.User
	if err := c.do(ctx, http.MethodGet, "/api/users/"+id, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) EditUser(ctx context.Context, id, username, profileImage, password string) error {
	body := map[string]string{
		"username":     username,
		"profileImage": profileImage,
		"password":     password,
	}
	return c.do(ctx, http.MethodPatch, "/api/edit-user/"+id, body, nil)
}

func (c *Client) ListConversations(ctx context.Context) ([]store.ConversationWithPeer, error) {
	var convs []store.ConversationWithPeer
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (c *Client) CreateConversation(ctx context.Context, user2 string) (*store.Conversation, error) {
	var conv store.Conversation
	if err := c.do(ctx, http.MethodPost, "/api/conversations", map[string]string{"user2": user2}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	var conv store.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+id, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) DeleteConversation(ctx context.Context, id string) (*store.DeleteResult, error) {
	var result store.DeleteResult
	if err := c.do(ctx, http.MethodDelete, "/api/conversations/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]store.MessageWithSender, error) {
	var messages []store.MessageWithSender
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+conversationID+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) PostMessage(ctx context.Context, conversationID, content string) (*store.Message, error) {
	var msg store.Message
	if err := c.do(ctx, http.MethodPost, "/api/conversations/"+conversationID+"/messages", map[string]string{"content": content}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
