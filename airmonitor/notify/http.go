package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// HTTPTransport posts the message as JSON to a form-relay endpoint.
type HTTPTransport struct {
	URL    string
	Client *http.Client
}

func NewHTTPTransport(url string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (transport *HTTPTransport) Deliver(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal report")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, transport.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build report request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := transport.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "report request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("report rejected with status %d", resp.StatusCode)
	}
	return nil
}
