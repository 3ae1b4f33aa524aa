package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/pders01/tendr/internal/config"
	"github.com/pders01/tendr/internal/debuglog"
	"github.com/pders01/tendr/internal/tender"
)

const (
	tendersPath = "/tenders"

	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20
)

// Page is the list endpoint's response envelope.
type Page struct {
	Success    bool            `json:"success"`
	Data       []tender.Record `json:"data"`
	TotalCount int             `json:"totalCount"`
	TotalPages int             `json:"totalPages"`
	Message    string          `json:"message,omitempty"`
}

type Client struct {
	baseURL   string
	token     string
	userAgent string
	client    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.API.BaseURL, "/"),
		token:     cfg.API.Token,
		userAgent: cfg.API.UserAgent,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// List fetches one page of tenders. Every failure is either a
// *TransportError or a *ServerError; an empty page is a success.
func (c *Client) List(ctx context.Context, q Query) (*Page, error) {
	endpoint := c.baseURL + tendersPath + "?" + q.Values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: "creating request", Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := debuglog.WithFields(map[string]interface{}{
		"request_id": requestID,
		"page":       q.Page,
	})
	log.Debugf("GET %s", endpoint)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "fetching tenders", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Op: "reading response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &ServerError{StatusCode: resp.StatusCode}
		var envelope Page
		if json.Unmarshal(body, &envelope) == nil {
			se.Message = envelope.Message
		}
		log.Warnf("list failed: %v", se)
		return nil, se
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &TransportError{Op: "decoding response", Err: err}
	}
	if !page.Success {
		msg := page.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return nil, &ServerError{StatusCode: resp.StatusCode, Message: msg}
	}

	log.Debugf("received %d tenders (total %d, pages %d)", len(page.Data), page.TotalCount, page.TotalPages)
	return &page, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("api.Client(%s)", c.baseURL)
}
