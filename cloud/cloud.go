/*
DESCRIPTION
  cloud.go provides the cloud image store sender, which uploads base64
  encoded images as timestamped JSON documents over HTTP.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cloud uploads captured images to the cloud image store. Each
// image is stored as a JSON document keyed by its capture timestamp.
package cloud

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
)

const pkg = "cloud: "

// defaultTimeout bounds each upload request.
const defaultTimeout = 10 * time.Second

// document is the uploaded JSON image record.
type document struct {
	Image     string            `json:"image"`
	Timestamp string            `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sender uploads image documents to the cloud store.
type Sender struct {
	dbURL  string
	apiKey string
	client *http.Client
	report func(sent int, err error)
	log    logging.Logger
}

// SenderOption is a functional option for Sender.
type SenderOption func(*Sender)

// WithHTTPClient replaces the HTTP client, for testing.
func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *Sender) { s.client = c }
}

// WithTimeout sets the per-upload request timeout.
func WithTimeout(d time.Duration) SenderOption {
	return func(s *Sender) { s.client.Timeout = d }
}

// WithReportCallback registers a callback invoked after each upload with
// the byte count sent and any error.
func WithReportCallback(fn func(sent int, err error)) SenderOption {
	return func(s *Sender) { s.report = fn }
}

// NewSender returns a Sender for the given cloud database URL and API key.
func NewSender(dbURL, apiKey string, l logging.Logger, opts ...SenderOption) (*Sender, error) {
	if dbURL == "" {
		return nil, errors.New("database url must not be empty")
	}
	if apiKey == "" {
		return nil, errors.New("api key must not be empty")
	}
	_, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("bad database url: %w", err)
	}
	s := &Sender{
		dbURL:  strings.TrimRight(dbURL, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: defaultTimeout},
		log:    l,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Upload stores a base64 encoded image under the given timestamp key.
func (s *Sender) Upload(image, timestamp string) error {
	return s.UploadWithMetadata(image, timestamp, nil)
}

// UploadWithMetadata stores a base64 encoded image with optional string
// metadata under the given timestamp key. The document is written with an
// HTTP PUT so re-uploading a timestamp overwrites rather than duplicates.
func (s *Sender) UploadWithMetadata(image, timestamp string, metadata map[string]string) error {
	if image == "" {
		return errors.New("image must not be empty")
	}
	if timestamp == "" {
		return errors.New("timestamp must not be empty")
	}

	body, err := json.Marshal(document{Image: image, Timestamp: timestamp, Metadata: metadata})
	if err != nil {
		return fmt.Errorf("could not marshal image document: %w", err)
	}

	u := fmt.Sprintf("%s/images/%s.json?auth=%s", s.dbURL, url.PathEscape(timestamp), url.QueryEscape(s.apiKey))
	req, err := http.NewRequest(http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		err = fmt.Errorf("could not upload image: %w", err)
		s.reportResult(0, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err = fmt.Errorf("upload rejected: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		s.reportResult(0, err)
		return err
	}

	s.log.Info(pkg+"uploaded image", "timestamp", timestamp, "bytes", len(body))
	s.reportResult(len(body), nil)
	return nil
}

func (s *Sender) reportResult(sent int, err error) {
	if s.report != nil {
		s.report(sent, err)
	}
}
