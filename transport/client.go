// Package transport moves finished traces off the recording process: an
// HTTP client that delivers them to a receiver, and the receiver itself.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/zoobzio/profilez"
	"go.uber.org/zap"
)

// HTTPSender posts blobs to <endpoint>/traces/<route>.
type HTTPSender struct {
	client   *http.Client
	logger   *zap.Logger
	endpoint string
	format   profilez.Format
}

var _ profilez.ResultSender = (*HTTPSender)(nil)

// NewHTTPSender creates a sender for endpoint, e.g. "http://localhost:8081".
func NewHTTPSender(endpoint string, format profilez.Format) *HTTPSender {
	return &HTTPSender{
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   zap.NewNop(),
		endpoint: strings.TrimRight(endpoint, "/"),
		format:   format,
	}
}

// WithClient replaces the HTTP client.
func (s *HTTPSender) WithClient(client *http.Client) *HTTPSender {
	s.client = client
	return s
}

// WithLogger sets the logger.
func (s *HTTPSender) WithLogger(logger *zap.Logger) *HTTPSender {
	s.logger = logger
	return s
}

// SendBlob posts data to route and fails on any non-2xx response.
func (s *HTTPSender) SendBlob(ctx context.Context, route string, data []byte) error {
	target := s.endpoint + "/traces/" + url.PathEscape(route)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return errors.Annotate(err, "building upload request")
	}
	req.Header.Set("Content-Type", s.format.ContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Annotatef(err, "uploading to %s", target)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("upload to %s failed: %s: %s", target, resp.Status, strings.TrimSpace(string(body)))
	}

	s.logger.Info("trace uploaded",
		zap.String("route", route),
		zap.Int("bytes", len(data)),
		zap.Int("status", resp.StatusCode))
	return nil
}
