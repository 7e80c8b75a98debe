package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/launchlist/pkg/launch"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the number of pages requested per wave
	MaxConcurrency int
	// PageSize is the limit sent with every request
	PageSize int
	// Timeout per page fetch
	Timeout time.Duration
	// MaxPages caps the walk in case the API never returns a short page
	MaxPages int
}

// DefaultConfig returns a configuration that stays within the client's
// default rate limit.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		PageSize:       DefaultPageSize,
		Timeout:        15 * time.Second,
		MaxPages:       1000,
	}
}

// PageFetcher fetches a single page. *client.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, offset, limit int) ([]launch.Launch, error)
}

// BatchFetcher walks the whole collection with parallel requests
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxPages <= 0 {
		config.MaxPages = defaults.MaxPages
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page in order. Launches already seen on an earlier
// page are skipped. On error the launches collected before the failing page
// are returned with the error.
func (bf *BatchFetcher) FetchAll(ctx context.Context) ([]launch.Launch, error) {
	start := time.Now()
	seen := make(map[int]struct{})
	var out []launch.Launch

	for first := 1; first <= bf.config.MaxPages; first += bf.config.MaxConcurrency {
		size := bf.config.MaxConcurrency
		if first+size-1 > bf.config.MaxPages {
			size = bf.config.MaxPages - first + 1
		}

		pages, err := bf.fetchWave(ctx, first, size)

		for i, page := range pages {
			if page == nil {
				break
			}
			for _, l := range page {
				if _, dup := seen[l.FlightNumber]; dup {
					continue
				}
				seen[l.FlightNumber] = struct{}{}
				out = append(out, l)
			}
			if !HasMore(len(page), bf.config.PageSize) {
				log.Info().
					Int("pages", first+i).
					Int("launches", len(out)).
					Dur("duration", time.Since(start)).
					Msg("Fetch complete")
				return out, nil
			}
		}

		if err != nil {
			log.Warn().
				Err(err).
				Int("launches", len(out)).
				Msg("Wave failed - returning partial results")
			return out, fmt.Errorf("fetch pages %d-%d (partial data: %d launches): %w", first, first+size-1, len(out), err)
		}

		log.Debug().
			Int("through_page", first+size-1).
			Int("launches", len(out)).
			Msg("Fetch progress")
	}

	log.Warn().
		Int("max_pages", bf.config.MaxPages).
		Msg("Page limit reached before a short page")
	return out, nil
}

// fetchWave requests pages first..first+size-1 in parallel. A nil entry
// marks a page that failed or was cancelled.
func (bf *BatchFetcher) fetchWave(ctx context.Context, first, size int) ([][]launch.Launch, error) {
	pages := make([][]launch.Launch, size)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < size; i++ {
		page := first + i
		g.Go(func() error {
			pageCtx, cancel := context.WithTimeout(gctx, bf.config.Timeout)
			defer cancel()

			records, err := bf.fetcher.FetchPage(pageCtx, OffsetFor(page, bf.config.PageSize), bf.config.PageSize)
			if err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			if records == nil {
				records = []launch.Launch{}
			}
			pages[i] = records
			return nil
		})
	}

	return pages, g.Wait()
}
