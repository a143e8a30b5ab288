package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AzureClient recognizes handwriting through the Azure Computer Vision
// Read API (v3.2): one analyze request, then polling until the
// operation reports success or the attempt bound is reached.
type AzureClient struct {
	apiKey   string
	endpoint string
	http     *http.Client

	// PollInterval and MaxPolls bound the asynchronous Read operation.
	// After MaxPolls the last-seen result is used as-is; this is a
	// best-effort bound, not a hard deadline.
	PollInterval time.Duration
	MaxPolls     int
}

// NewAzureClient creates a Read API client for the given endpoint,
// e.g. "https://<resource>.cognitiveservices.azure.com".
func NewAzureClient(apiKey, endpoint string) *AzureClient {
	return &AzureClient{
		apiKey:       apiKey,
		endpoint:     strings.TrimRight(endpoint, "/"),
		http:         &http.Client{Timeout: 30 * time.Second},
		PollInterval: time.Second,
		MaxPolls:     60,
	}
}

type readResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []struct {
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
		} `json:"readResults"`
	} `json:"analyzeResult"`
}

// Recognize submits the sheet bytes for analysis and polls for the
// recognized text, joined with newlines in reading order.
func (c *AzureClient) Recognize(ctx context.Context, data []byte) (string, error) {
	opURL, err := c.submit(ctx, data)
	if err != nil {
		return "", err
	}

	var result readResult
	for i := 0; i < c.MaxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.PollInterval):
		}

		if err := c.poll(ctx, opURL, &result); err != nil {
			return "", err
		}
		if result.Status == "succeeded" {
			break
		}
	}

	var sb strings.Builder
	for _, rr := range result.AnalyzeResult.ReadResults {
		for _, line := range rr.Lines {
			sb.WriteString(line.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func (c *AzureClient) submit(ctx context.Context, data []byte) (string, error) {
	url := c.endpoint + "/vision/v3.2/read/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("read analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("read analyze request failed with status %d: %s", resp.StatusCode, body)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("read analyze response missing Operation-Location header")
	}
	return opURL, nil
}

func (c *AzureClient) poll(ctx context.Context, opURL string, out *readResult) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("poll read operation: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode read operation result: %w", err)
	}
	return nil
}
