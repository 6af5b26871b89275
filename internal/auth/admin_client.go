package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AdminClient talks to the Supabase admin API with the service role
// key. Only the seed toolchain uses it; the serving path never holds
// elevated credentials.
type AdminClient struct {
	supabaseURL string
	serviceKey  string
	httpClient  *http.Client
}

// NewAdminClient creates a new admin API client.
func NewAdminClient(supabaseURL, serviceKey string) *AdminClient {
	return &AdminClient{
		supabaseURL: supabaseURL,
		serviceKey:  serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// adminUser is the slice of the admin API user object we read.
type adminUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// CreateUser creates a pre-confirmed user and returns its id.
func (c *AdminClient) CreateUser(email, password string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal create request: %w", err)
	}

	body, err := c.do(http.MethodPost, "/auth/v1/admin/users", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	var user adminUser
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	return user.ID, nil
}

// DeleteUserByEmail removes the user with the given email. Idempotent:
// a missing user is not an error.
func (c *AdminClient) DeleteUserByEmail(email string) error {
	userID, err := c.findUserIDByEmail(email)
	if err != nil || userID == "" {
		return nil
	}

	if _, err := c.do(http.MethodDelete, "/auth/v1/admin/users/"+userID, nil); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (c *AdminClient) findUserIDByEmail(email string) (string, error) {
	body, err := c.do(http.MethodGet, "/auth/v1/admin/users", nil)
	if err != nil {
		return "", err
	}

	var listing struct {
		Users []adminUser `json:"users"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return "", fmt.Errorf("failed to decode user listing: %w", err)
	}

	for _, user := range listing.Users {
		if user.Email == email {
			return user.ID, nil
		}
	}
	return "", nil
}

// do issues one authenticated admin request and returns the body of a
// 2xx response.
func (c *AdminClient) do(method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequest(method, c.supabaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("admin API status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
