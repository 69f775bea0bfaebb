package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// BatchUpsertPosts performs a multi-row upsert for reddit_posts. It
// de-duplicates by reddit_id client-side so a listing that repeats a post
// (stickied plus chronological) does not trip ON CONFLICT twice in one
// statement.
func (q *Queries) BatchUpsertPosts(ctx context.Context, posts []UpsertPostParams, batchSize int) error {
	if len(posts) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	uniq := make(map[string]UpsertPostParams, len(posts))
	order := make([]string, 0, len(posts))
	for _, p := range posts {
		if _, seen := uniq[p.RedditID]; !seen {
			order = append(order, p.RedditID)
		}
		uniq[p.RedditID] = p
	}
	dedup := make([]UpsertPostParams, 0, len(uniq))
	for _, id := range order {
		dedup = append(dedup, uniq[id])
	}
	const cols = 23
	for start := 0; start < len(dedup); start += batchSize {
		end := start + batchSize
		if end > len(dedup) {
			end = len(dedup)
		}
		batch := dedup[start:end]
		var sb strings.Builder
		sb.WriteString("INSERT INTO reddit_posts (reddit_id, title, author, subreddit_name, created_utc, score, upvote_ratio, num_comments, over_18, spoiler, stickied, locked, is_self, is_video, is_gallery, permalink, url, domain, selftext, post_type, sub_primary_category, sub_tags, sub_over18) VALUES ")
		args := make([]any, 0, len(batch)*cols)
		for i, p := range batch {
			if i > 0 {
				sb.WriteByte(',')
			}
			idx := i*cols + 1
			sb.WriteByte('(')
			for j := 0; j < cols; j++ {
				if j > 0 {
					sb.WriteByte(',')
				}
				fmt.Fprintf(&sb, "$%d", idx+j)
			}
			sb.WriteByte(')')
			args = append(args,
				p.RedditID, p.Title, p.Author, p.SubredditName, p.CreatedUtc,
				p.Score, p.UpvoteRatio, p.NumComments, p.Over18, p.Spoiler,
				p.Stickied, p.Locked, p.IsSelf, p.IsVideo, p.IsGallery,
				p.Permalink, p.Url, p.Domain, p.Selftext, p.PostType,
				p.SubPrimaryCategory, pq.Array(p.SubTags), p.SubOver18,
			)
		}
		sb.WriteString(" ON CONFLICT (reddit_id) DO UPDATE SET score=EXCLUDED.score,upvote_ratio=EXCLUDED.upvote_ratio,num_comments=EXCLUDED.num_comments,stickied=EXCLUDED.stickied,locked=EXCLUDED.locked")
		if _, err := q.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// BatchInsertSystemLogs inserts many system_logs rows per statement. Used by
// the DB log sink when its batch size is above one.
func (q *Queries) BatchInsertSystemLogs(ctx context.Context, entries []InsertSystemLogParams, batchSize int) error {
	if len(entries) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	const cols = 8
	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]
		var sb strings.Builder
		sb.WriteString("INSERT INTO system_logs (timestamp, source, script_name, level, message, context, action, duration_ms) VALUES ")
		args := make([]any, 0, len(batch)*cols)
		for i, e := range batch {
			if i > 0 {
				sb.WriteByte(',')
			}
			idx := i*cols + 1
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)", idx, idx+1, idx+2, idx+3, idx+4, idx+5, idx+6, idx+7)
			args = append(args, e.Timestamp, e.Source, e.ScriptName, e.Level, e.Message, e.Context, e.Action, e.DurationMs)
		}
		if _, err := q.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// BatchInsertDiscoveredUsers queues many authors with ON CONFLICT DO NOTHING
// semantics. Duplicate usernames are dropped client-side first.
func (q *Queries) BatchInsertDiscoveredUsers(ctx context.Context, usernames []string, batchSize int) error {
	if len(usernames) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 2000
	}
	seen := make(map[string]struct{}, len(usernames))
	dedup := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		dedup = append(dedup, u)
	}
	for start := 0; start < len(dedup); start += batchSize {
		end := start + batchSize
		if end > len(dedup) {
			end = len(dedup)
		}
		batch := dedup[start:end]
		var sb strings.Builder
		sb.WriteString("INSERT INTO reddit_users (username) VALUES ")
		args := make([]any, 0, len(batch))
		for i, u := range batch {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "($%d)", i+1)
			args = append(args, u)
		}
		sb.WriteString(" ON CONFLICT (username) DO NOTHING")
		if _, err := q.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}
