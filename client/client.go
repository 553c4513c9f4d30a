// Package client talks to a running mock server and its control API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "practicelab/errors"
	"practicelab/mockapi"
	"practicelab/reqlog"
	"practicelab/state"
	"practicelab/table"
)

const defaultTimeout = 30 * time.Second

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Is lets callers test against the coded sentinels, so a 404 matches
// errors.ErrNotFound and a 400 matches errors.ErrValidation.
func (e *StatusError) Is(target error) bool {
	switch e.Status {
	case http.StatusNotFound:
		return target == apperrors.ErrNotFound
	case http.StatusBadRequest:
		return target == apperrors.ErrValidation
	}
	return false
}

// Client wraps the mock endpoints (MockURL, including the base path) and the
// control API (ControlURL).
type Client struct {
	MockURL    string
	ControlURL string
	http       *http.Client
	logger     *slog.Logger
}

// New creates a client. A nil logger discards output.
func New(mockURL, controlURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		MockURL:    strings.TrimSuffix(mockURL, "/"),
		ControlURL: strings.TrimSuffix(controlURL, "/"),
		http:       &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// Login checks a user's credentials.
func (c *Client) Login(ctx context.Context, email, password string) (mockapi.UserView, error) {
	var out struct {
		User mockapi.UserView `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, c.MockURL+"/login", body, &out)
	return out.User, err
}

// Products lists the product catalog.
func (c *Client) Products(ctx context.Context) ([]state.Product, error) {
	var out struct {
		Products []state.Product `json:"products"`
	}
	err := c.do(ctx, http.MethodGet, c.MockURL+"/productsList", nil, &out)
	return out.Products, err
}

// CreateOrder places an order for quantity units of a product.
func (c *Client) CreateOrder(ctx context.Context, productID, quantity int) (mockapi.Order, error) {
	var out struct {
		Order mockapi.Order `json:"order"`
	}
	body := map[string]int{"productId": productID, "quantity": quantity}
	err := c.do(ctx, http.MethodPost, c.MockURL+"/createOrder", body, &out)
	return out.Order, err
}

// Books lists every book.
func (c *Client) Books(ctx context.Context) ([]state.Book, error) {
	var out []state.Book
	err := c.do(ctx, http.MethodGet, c.MockURL+"/books", nil, &out)
	return out, err
}

// Book fetches one book.
func (c *Client) Book(ctx context.Context, id int) (state.Book, error) {
	var out state.Book
	err := c.do(ctx, http.MethodGet, c.bookURL(id), nil, &out)
	return out, err
}

// AddBook creates a book.
func (c *Client) AddBook(ctx context.Context, in state.BookInput) (state.Book, error) {
	var out state.Book
	err := c.do(ctx, http.MethodPost, c.MockURL+"/books", in, &out)
	return out, err
}

// UpdateBook applies a partial update.
func (c *Client) UpdateBook(ctx context.Context, id int, patch state.BookPatch) (state.Book, error) {
	var out state.Book
	err := c.do(ctx, http.MethodPut, c.bookURL(id), patch, &out)
	return out, err
}

// DeleteBook removes a book and returns it.
func (c *Client) DeleteBook(ctx context.Context, id int) (state.Book, error) {
	var out struct {
		Book state.Book `json:"book"`
	}
	err := c.do(ctx, http.MethodDelete, c.bookURL(id), nil, &out)
	return out.Book, err
}

// Rules lists the fault rules.
func (c *Client) Rules(ctx context.Context) ([]state.Rule, error) {
	var out []state.Rule
	err := c.do(ctx, http.MethodGet, c.ControlURL+"/api/rules", nil, &out)
	return out, err
}

// AddRule creates a fault rule. The server assigns the id.
func (c *Client) AddRule(ctx context.Context, rule state.Rule) (state.Rule, error) {
	var out state.Rule
	err := c.do(ctx, http.MethodPost, c.ControlURL+"/api/rules", rule, &out)
	return out, err
}

// DeleteRule removes a fault rule.
func (c *Client) DeleteRule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.ControlURL+"/api/rules/"+url.PathEscape(id), nil, nil)
}

// SetRuleEnabled switches a fault rule on or off.
func (c *Client) SetRuleEnabled(ctx context.Context, id string, enabled bool) (state.Rule, error) {
	action := "disable"
	if enabled {
		action = "enable"
	}
	var out state.Rule
	err := c.do(ctx, http.MethodPost, c.ControlURL+"/api/rules/"+url.PathEscape(id)+"/"+action, nil, &out)
	return out, err
}

// Logs fetches one page of the request log.
func (c *Client) Logs(ctx context.Context, q table.Query) (table.Page[reqlog.Entry], error) {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortKey != "" {
		v.Set("sort", q.SortKey)
		if q.Desc {
			v.Set("dir", "desc")
		} else {
			v.Set("dir", "asc")
		}
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("perPage", strconv.Itoa(q.PerPage))
	}

	var out table.Page[reqlog.Entry]
	u := c.ControlURL + "/api/logs"
	if len(v) > 0 {
		u += "?" + v.Encode()
	}
	err := c.do(ctx, http.MethodGet, u, nil, &out)
	return out, err
}

// ClearLogs empties the request log.
func (c *Client) ClearLogs(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, c.ControlURL+"/api/logs", nil, nil)
}

// ResetStore restores the seed data.
func (c *Client) ResetStore(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.ControlURL+"/api/store/reset", nil, nil)
}

// OpenAPI returns the raw Swagger document.
func (c *Client) OpenAPI(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, c.ControlURL+"/api/openapi.json", nil, &out)
	return out, err
}

func (c *Client) bookURL(id int) string {
	return c.MockURL + "/books/" + strconv.Itoa(id)
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("request", "method", method, "url", u)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("response", "method", method, "url", u, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls "message" (mock endpoints) or "error" (control API) out
// of an error body, falling back to the raw text.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}
