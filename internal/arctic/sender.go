package arctic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sender POSTs JSON documents to a single endpoint.
type Sender struct {
	client   *http.Client
	endpoint string
}

func NewSender(endpoint string, timeout time.Duration) (*Sender, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: must be an absolute http(s) URL", endpoint)
	}
	return &Sender{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
	}, nil
}

func (s *Sender) Endpoint() string {
	return s.endpoint
}

// Send returns the response status code. Non-2xx responses are not errors;
// only failures to deliver the request are.
func (s *Sender) Send(ctx context.Context, document any) (int, error) {
	body, err := json.Marshal(document)
	if err != nil {
		return 0, fmt.Errorf("failed to encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection is reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
