package reddit

import (
	"context"

	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
)

const defaultMetaPageSize = 1000

// metaCache is the in-memory snapshot of every subreddit's protected
// fields, loaded once per cycle so upsert decisions do not need a
// round-trip per item.
type metaCache struct {
	complete bool
	rows     map[string]db.SubredditMeta
}

// loadMetaCache pages through reddit_subreddits and cross-checks the
// loaded total against an exact head count. Stopping on a short page
// alone is not proof of completeness, so a cache that loads fewer rows
// than the count is flagged incomplete and never drives write
// decisions.
func loadMetaCache(ctx context.Context, q *db.Queries, pageSize int) (*metaCache, error) {
	if pageSize <= 0 {
		pageSize = defaultMetaPageSize
	}
	want, err := q.CountSubreddits(ctx)
	if err != nil {
		return nil, err
	}
	c := &metaCache{rows: make(map[string]db.SubredditMeta, want)}
	for offset := 0; ; offset += pageSize {
		page, err := q.ListSubredditMetaPage(ctx, db.ListSubredditMetaPageParams{
			PageLimit:  int32(pageSize),
			PageOffset: int32(offset),
		})
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			c.rows[m.Name] = m
		}
		if len(page) < pageSize {
			break
		}
	}
	if int64(len(c.rows)) >= want {
		c.complete = true
	} else {
		logger.Error("subreddit metadata cache incomplete, falling back to per-row lookups",
			"loaded", len(c.rows),
			"expected", want,
		)
	}
	return c, nil
}

// lookup returns the protected-field row for name. Incomplete caches
// are not trusted, so both misses and incompleteness go back to the
// database.
func (c *metaCache) lookup(ctx context.Context, q *db.Queries, name string) (db.SubredditMeta, error) {
	if c.complete {
		if m, ok := c.rows[name]; ok {
			return m, nil
		}
	}
	return q.GetSubredditMeta(ctx, name)
}

// store refreshes the cached row after a write so later decisions in
// the same cycle see the merged state.
func (c *metaCache) store(m db.SubredditMeta) {
	c.rows[m.Name] = m
}
