// Package persistence writes the in-memory database image back to the local
// cache slot after every mutation.
package persistence

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sitestore/internal/codec"
	"github.com/dmitrijs2005/sitestore/internal/kvstore"
	"github.com/dmitrijs2005/sitestore/internal/logging"
)

// Serializer produces the current database image.
type Serializer interface {
	Serialize(ctx context.Context) ([]byte, error)
}

type Sink struct {
	engine Serializer
	repo   kvstore.Repository
	key    string
	logger logging.Logger
}

func NewSink(engine Serializer, repo kvstore.Repository, key string, logger logging.Logger) *Sink {
	return &Sink{engine: engine, repo: repo, key: key, logger: logger}
}

// Commit overwrites the slot with the encoded image.
func (s *Sink) Commit(ctx context.Context) error {
	image, err := s.engine.Serialize(ctx)
	if err != nil {
		return fmt.Errorf("serialize image: %w", err)
	}

	text := codec.Encode(image)
	if err := s.repo.Set(ctx, s.key, []byte(text)); err != nil {
		return fmt.Errorf("write slot %s: %w", s.key, err)
	}

	s.logger.Debug(ctx, "image committed", "key", s.key, "bytes", len(image))
	return nil
}
