package snapshot

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sitestore/internal/logging"
)

// DefaultRemoteTimeout bounds a single remote fetch.
const DefaultRemoteTimeout = 10 * time.Second

// Fetcher performs one read-only fetch of a remote image.
type Fetcher interface {
	Describe() string
	Fetch(ctx context.Context) ([]byte, error)
}

// RemoteSnapshotSource makes exactly one bounded attempt per TryLoad call.
type RemoteSnapshotSource struct {
	fetcher Fetcher
	timeout time.Duration
	logger  logging.Logger
}

func NewRemoteSnapshotSource(f Fetcher, timeout time.Duration, logger logging.Logger) *RemoteSnapshotSource {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &RemoteSnapshotSource{fetcher: f, timeout: timeout, logger: logger}
}

func (s *RemoteSnapshotSource) Name() string { return "remote" }

func (s *RemoteSnapshotSource) TryLoad(ctx context.Context) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	image, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.logger.Warn(ctx, "remote snapshot unavailable",
			"remote", s.fetcher.Describe(), "elapsed", time.Since(started), "error", err)
		return nil, false
	}
	if len(image) == 0 {
		s.logger.Warn(ctx, "remote snapshot is empty", "remote", s.fetcher.Describe())
		return nil, false
	}

	s.logger.Info(ctx, "remote snapshot fetched", "remote", s.fetcher.Describe(), "bytes", len(image))
	return image, true
}
