// Package apiclient is the thin HTTP transport to the remote user API. It
// maps the snake_case wire format to the camelCase domain shape and surfaces
// every transport failure to the caller; retry, backoff and caching all live
// elsewhere.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/adminbridge/datakit/configs"
	"github.com/adminbridge/datakit/internal/core/domain/user"
	"github.com/adminbridge/datakit/internal/core/ports"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("remote api: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("remote api: %s", e.Status)
}

// Client implements ports.UserAPI over net/http.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a user API client for the configured base URL.
func NewClient(cfg *configs.APIConfig, logger *logrus.Logger) ports.UserAPI {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// List fetches one page of users.
func (c *Client) List(ctx context.Context, page int) (*user.Page, error) {
	endpoint := c.baseURL + "/users?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
	var resp wireListResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return resp.domain(), nil
}

// Get fetches a single user by id.
func (c *Client) Get(ctx context.Context, id string) (*user.User, error) {
	var resp wireSingleResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/users/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return resp.Data.domain(), nil
}

// Create posts a new user and returns the server-assigned result.
func (c *Client) Create(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	var resp wireUser
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/users", toWireCreate(req), &resp); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	u := resp.domain()
	if u.Email == "" {
		u.Email = req.Email
	}
	if u.FirstName == "" {
		u.FirstName = req.FirstName
	}
	if u.LastName == "" {
		u.LastName = req.LastName
	}
	return u, nil
}

// Update puts changed fields for an existing user.
func (c *Client) Update(ctx context.Context, id string, req *user.UpdateUserRequest) (*user.User, error) {
	var resp wireUser
	if err := c.do(ctx, http.MethodPut, c.baseURL+"/users/"+url.PathEscape(id), toWireUpdate(req), &resp); err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	u := resp.domain()
	if u.ID == "" {
		u.ID = id
	}
	return u, nil
}

// Delete removes a user by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.baseURL+"/users/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	requestID := uuid.NewString()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     method,
			"url":        endpoint,
		}).Debug("api: request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.WithField("request_id", requestID).WithError(err).Error("api: transport failure")
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(raw))}
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"status":     resp.StatusCode,
			}).Warn("api: non-2xx response")
		}
		return statusErr
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var _ ports.UserAPI = (*Client)(nil)
