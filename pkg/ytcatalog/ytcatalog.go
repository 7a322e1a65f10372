package ytcatalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNotFound      = errors.New("video not found")
	ErrNotEmbeddable = errors.New("video is not embeddable")
	ErrNoAPIKey      = errors.New("youtube api key is not configured")
	ErrUpstream      = errors.New("youtube request failed")
)

const (
	defaultSearchURL  = "https://www.googleapis.com/youtube/v3/search"
	defaultOEmbedURL  = "https://www.youtube.com/oembed"
	defaultPageURL    = "https://youtu.be/"
	defaultMaxResults = 10
)

// Candidate is one search result, shaped like the media of a queued item.
type Candidate struct {
	VideoId     string `json:"videoId"`
	Image       string `json:"image"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

type Config struct {
	APIKey     string
	MaxResults int
	Timeout    time.Duration
	// Overrides for the upstream endpoints, empty means the public ones.
	SearchURL string
	OEmbedURL string
	PageURL   string
}

type Client struct {
	http       *http.Client
	apiKey     string
	maxResults int
	searchURL  string
	oembedURL  string
	pageURL    string
}

func New(cfg *Config) *Client {
	c := Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		maxResults: cfg.MaxResults,
		searchURL:  cfg.SearchURL,
		oembedURL:  cfg.OEmbedURL,
		pageURL:    cfg.PageURL,
	}
	if c.http.Timeout <= 0 {
		c.http.Timeout = 10 * time.Second
	}
	if c.maxResults <= 0 {
		c.maxResults = defaultMaxResults
	}
	if c.searchURL == "" {
		c.searchURL = defaultSearchURL
	}
	if c.oembedURL == "" {
		c.oembedURL = defaultOEmbedURL
	}
	if c.pageURL == "" {
		c.pageURL = defaultPageURL
	}

	return &c
}

// Get resolves a single video. It falls back to the watch page when the video cannot be embedded.
func (c *Client) Get(ctx context.Context, videoId string) (Candidate, error) {
	candidate, err := c.getWithEmbed(ctx, videoId)
	if err != nil {
		if !errors.Is(err, ErrNotEmbeddable) {
			return Candidate{}, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		candidate, err = c.getFromPage(ctx, videoId)
		if err != nil {
			return Candidate{}, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return candidate, nil
}
