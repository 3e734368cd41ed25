// Package snapshot abstracts where the initial database image comes from.
//
// Every Source answers one question, TryLoad, with either an image or
// "absent". Failures are never surfaced: a corrupt cache or an unreachable
// remote simply means the bootstrapper moves on to the next option.
package snapshot

import (
	"context"

	"github.com/dmitrijs2005/sitestore/internal/codec"
	"github.com/dmitrijs2005/sitestore/internal/kvstore"
	"github.com/dmitrijs2005/sitestore/internal/logging"
)

// Source yields a binary database image, or ok=false when none is available.
type Source interface {
	Name() string
	TryLoad(ctx context.Context) (image []byte, ok bool)
}

// LocalCacheSource reads one slot of the local key-value area.
type LocalCacheSource struct {
	repo   kvstore.Repository
	key    string
	logger logging.Logger
}

func NewLocalCacheSource(repo kvstore.Repository, key string, logger logging.Logger) *LocalCacheSource {
	return &LocalCacheSource{repo: repo, key: key, logger: logger}
}

func (s *LocalCacheSource) Name() string { return "local" }

func (s *LocalCacheSource) TryLoad(ctx context.Context) ([]byte, bool) {
	value, err := s.repo.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn(ctx, "local cache read failed", "key", s.key, "error", err)
		return nil, false
	}
	if len(value) == 0 {
		return nil, false
	}

	image, err := codec.Decode(string(value))
	if err != nil {
		s.logger.Warn(ctx, "local cache slot is corrupt, ignoring it", "key", s.key, "error", err)
		return nil, false
	}
	if len(image) == 0 {
		return nil, false
	}
	return image, true
}

// EmptySource never has an image; it forces a fresh database.
type EmptySource struct{}

func (EmptySource) Name() string { return "none" }

func (EmptySource) TryLoad(context.Context) ([]byte, bool) { return nil, false }
