package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// DefaultTimeout bounds every API call
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Client represents an HTTP client for the link API
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a new link API client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// CreateLink creates a short link. A nil validity leaves the server default.
func (c *Client) CreateLink(ctx context.Context, originalURL string, validity *int, shortcode string) (*domain.CreateLinkResponse, error) {
	reqBody := domain.CreateLinkRequest{URL: originalURL, Shortcode: shortcode}
	if validity != nil {
		reqBody.Validity = *validity
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result domain.CreateLinkResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/shorturls", jsonData, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetStats retrieves the statistics of a short link
func (c *Client) GetStats(ctx context.Context, shortcode string) (*domain.StatsResponse, error) {
	var stats domain.StatsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/shorturls/"+shortcode, nil, http.StatusOK, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListLinks retrieves active short links. A non-positive limit leaves the server default.
func (c *Client) ListLinks(ctx context.Context, limit int) (*domain.ListResponse, error) {
	path := "/api/urls"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var list domain.ListResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Health retrieves the server health report
func (c *Client) Health(ctx context.Context) (*domain.HealthResponse, error) {
	var health domain.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, http.StatusOK, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// DownloadExport fetches the XLSX statistics report of a short link and
// returns it with the filename suggested by the server.
func (c *Client) DownloadExport(ctx context.Context, shortcode string) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/shorturls/"+shortcode+"/export", nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", decodeAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	var filename string
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return data, filename, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, wantStatus int, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeAPIError reads the server's error message, if the body carries one
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body domain.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}
