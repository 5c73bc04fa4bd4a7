// Package myhome is the REST client of a MyHOMEServer hub.
package myhome

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

var _ ports.HubClient = (*Client)(nil)

const defaultTimeout = 10 * time.Second

type Client struct {
	url        string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient returns a client for host, a hostname or a full base URL.
func NewClient(host string, opts ...Option) *Client {
	url := host
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	c := &Client{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory adapts NewClient to ports.HubClientFactory.
func Factory(opts ...Option) ports.HubClientFactory {
	return func(host string) ports.HubClient {
		return NewClient(host, opts...)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type serverResponse struct {
	Serial  string `json:"serial"`
	Version string `json:"version"`
}

type objectResponse struct {
	ID   int               `json:"id"`
	Name string            `json:"name"`
	Type string            `json:"type"`
	Room *model.Place      `json:"room"`
	Zone *model.Place      `json:"zone"`
	Info map[string]string `json:"info"`
}

type valueResponse struct {
	Type   string `json:"type"`
	Power  bool   `json:"power"`
	Dimmer int    `json:"dimmer"`
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	var res loginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/login", loginRequest{Username: username, Password: password}, &res)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			switch se.code {
			case http.StatusUnauthorized:
				return ports.ErrLoginDenied
			case http.StatusForbidden:
				return ports.ErrRemoteAccessDenied
			}
		}
		return err
	}

	c.mu.Lock()
	c.token = res.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) ServerSerial(ctx context.Context) (string, error) {
	var res serverResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/server", nil, &res); err != nil {
		return "", err
	}
	if res.Serial == "" {
		return "", fmt.Errorf("%w: server info without serial", ports.ErrTransport)
	}
	return res.Serial, nil
}

func (c *Client) Objects(ctx context.Context) ([]model.Device, error) {
	var res []objectResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/objects", nil, &res); err != nil {
		return nil, err
	}
	devices := make([]model.Device, 0, len(res))
	for _, o := range res {
		devices = append(devices, model.Device{
			ID:   o.ID,
			Name: o.Name,
			Kind: model.DeviceKind(strings.ToLower(o.Type)),
			Room: o.Room,
			Zone: o.Zone,
			Info: o.Info,
		})
	}
	return devices, nil
}

func (c *Client) ObjectValue(ctx context.Context, id int) (model.DeviceValue, error) {
	var res valueResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/objects/%d/value", id), nil, &res); err != nil {
		return model.DeviceValue{}, err
	}
	return model.DeviceValue{
		Kind:   model.DeviceKind(strings.ToLower(res.Type)),
		Power:  res.Power,
		Dimmer: res.Dimmer,
	}, nil
}

func (c *Client) SetPower(ctx context.Context, id int, on bool) error {
	body := map[string]bool{"power": on}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/objects/%d/value", id), body, nil)
}

func (c *Client) SetDimmer(ctx context.Context, id int, level int) error {
	body := map[string]int{"dimmer": level}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/objects/%d/value", id), body, nil)
}

// Close forgets the session token and releases idle connections.
func (c *Client) Close() error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	c.httpClient.CloseIdleConnections()
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("hub API error: %d", e.code)
	}
	return fmt.Sprintf("hub API error: %d: %s", e.code, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ports.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		se := &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %w", ports.ErrTransport, se)
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ports.ErrTransport, path, err)
	}
	return nil
}
