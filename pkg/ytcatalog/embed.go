package ytcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

func (c *Client) getWithEmbed(ctx context.Context, videoId string) (Candidate, error) {
	q := url.Values{}
	q.Set("url", "https://www.youtube.com/watch?v="+videoId)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.oembedURL+"?"+q.Encode(), nil)
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusNotFound:
			return Candidate{}, ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return Candidate{}, ErrNotEmbeddable
		default:
			return Candidate{}, fmt.Errorf("%w: unexpected status code: %d", ErrUpstream, resp.StatusCode)
		}
	}

	var result oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Candidate{}, fmt.Errorf("failed to decode oembed response: %w", err)
	}

	return Candidate{
		VideoId: videoId,
		Image:   result.ThumbnailUrl,
		Title:   result.Title,
		Author:  result.AuthorName,
	}, nil
}
