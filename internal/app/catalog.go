package app

import (
	"context"

	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/pkg/ytcatalog"
)

// mediaCatalog resolves media of items added without metadata.
type mediaCatalog struct {
	client *ytcatalog.Client
}

func (c mediaCatalog) Get(ctx context.Context, videoId string) (domain.Media, error) {
	candidate, err := c.client.Get(ctx, videoId)
	if err != nil {
		return domain.Media{}, err
	}

	return domain.Media{
		ExternalId:   candidate.VideoId,
		Image:        candidate.Image,
		Title:        candidate.Title,
		Description:  candidate.Description,
		SourceAuthor: candidate.Author,
	}, nil
}
