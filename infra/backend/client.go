// Package backend fetches dispatch snapshots from the booking backend.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/kilianp07/dispatchboard/core/logger"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/infra/snapshot"
)

// Config describes the backend endpoint and its client credentials.
// Authentication is skipped when ClientID is empty.
type Config struct {
	URL            string `json:"url"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	TokenURL       string `json:"token_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks the endpoint and credentials.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("backend: url is required")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("backend: url: %w", err)
	}
	if c.ClientID != "" && (c.ClientSecret == "" || c.TokenURL == "") {
		return errors.New("backend: client_secret and token_url are required with client_id")
	}
	return nil
}

// Client reads the dispatch snapshot of a day.
type Client struct {
	base string
	http *http.Client
	log  logger.Logger
}

// NewClient builds a client. With credentials configured, requests carry a
// bearer token obtained and refreshed through the client credentials flow.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hc := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		hc = cc.Client(context.Background())
		hc.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{base: strings.TrimRight(cfg.URL, "/"), http: hc, log: log}, nil
}

// Snapshot fetches GET <url>/dispatch/<date>. An empty date asks the
// backend for the current operating day.
func (c *Client) Snapshot(ctx context.Context, date string) (model.Snapshot, error) {
	u := c.base + "/dispatch"
	if date != "" {
		u += "/" + url.PathEscape(date)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("backend: request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("backend: get snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.Snapshot{}, fmt.Errorf("backend: get snapshot: status %d", resp.StatusCode)
	}
	var snap model.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("backend: decode snapshot: %w", err)
	}
	if err := snapshot.Validate(snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("backend: %w", err)
	}
	c.log.Infof("fetched snapshot %s: %d guides, %d tour runs", snap.Date, len(snap.GuideTimelines), len(snap.TourRuns))
	return snap, nil
}
