package reddit

import (
	"database/sql"
	"fmt"

	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/utils"
)

// Normalization ceilings for the composite score. Values at or above
// the ceiling map to 100.
const (
	ceilAvgUpvotes    = 1000.0
	ceilEngagement    = 0.1
	ceilPostFrequency = 20.0 // posts per day

	// Below this engagement the posting-time buckets are noise and
	// best day/hour stay null.
	minTimingEngagement = 0.01

	// Author karma/age floors are only recomputed once this many
	// distinct scored authors have been observed.
	minAuthorsForRequirements = 10
)

// Metrics is the per-cycle computed snapshot for one subreddit.
type Metrics struct {
	AvgUpvotes    float64
	AvgComments   float64
	Engagement    float64
	Score         float64
	PostFrequency float64
	BestDay       sql.NullString
	BestHour      sql.NullInt32
}

// ComputeMetrics derives the stored metrics from one cycle's fetches:
// the about payload, the hot listing, and the yearly top listing used
// for posting-time buckets.
func ComputeMetrics(about About, hot, top []Post) Metrics {
	var m Metrics
	if len(hot) > 0 {
		var upvotes, comments float64
		oldest, newest := hot[0].Created(), hot[0].Created()
		for _, p := range hot {
			upvotes += float64(p.Score)
			comments += float64(p.NumComments)
			created := p.Created()
			if created.Before(oldest) {
				oldest = created
			}
			if created.After(newest) {
				newest = created
			}
		}
		m.AvgUpvotes = upvotes / float64(len(hot))
		m.AvgComments = comments / float64(len(hot))
		spanDays := newest.Sub(oldest).Hours() / 24
		if spanDays < 1 {
			spanDays = 1
		}
		m.PostFrequency = float64(len(hot)) / spanDays
	}
	if about.Subscribers > 0 {
		m.Engagement = m.AvgUpvotes / float64(about.Subscribers)
	}
	m.Score = utils.Round2(0.5*normalize(m.AvgUpvotes, ceilAvgUpvotes) +
		0.3*normalize(m.Engagement, ceilEngagement) +
		0.2*normalize(m.PostFrequency, ceilPostFrequency))
	if m.Engagement > minTimingEngagement {
		if day, hour, ok := bestPostingTime(top); ok {
			m.BestDay = sql.NullString{String: day, Valid: true}
			m.BestHour = sql.NullInt32{Int32: hour, Valid: true}
		}
	}
	return m
}

func normalize(v, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	return utils.Clamp(v/ceiling, 0, 1) * 100
}

// bestPostingTime buckets the top posts by local weekday and hour and
// returns the argmax of each. Ties keep the bucket seen first.
func bestPostingTime(top []Post) (string, int32, bool) {
	if len(top) == 0 {
		return "", 0, false
	}
	type bucket struct {
		count int
		first int
	}
	days := make(map[string]*bucket)
	hours := make(map[int32]*bucket)
	for i, p := range top {
		local := p.Created().Local()
		day := local.Weekday().String()
		if b, ok := days[day]; ok {
			b.count++
		} else {
			days[day] = &bucket{count: 1, first: i}
		}
		hour := int32(local.Hour())
		if b, ok := hours[hour]; ok {
			b.count++
		} else {
			hours[hour] = &bucket{count: 1, first: i}
		}
	}
	var bestDay string
	var dayBucket *bucket
	for day, b := range days {
		if dayBucket == nil || b.count > dayBucket.count ||
			(b.count == dayBucket.count && b.first < dayBucket.first) {
			bestDay, dayBucket = day, b
		}
	}
	var bestHour int32
	var hourBucket *bucket
	for hour, b := range hours {
		if hourBucket == nil || b.count > hourBucket.count ||
			(b.count == hourBucket.count && b.first < hourBucket.first) {
			bestHour, hourBucket = hour, b
		}
	}
	return bestDay, bestHour, true
}

// BestLabel renders the posting-time half of the "Completed" log line.
func (m Metrics) BestLabel() string {
	if !m.BestDay.Valid || !m.BestHour.Valid {
		return "Best: N/A N/A"
	}
	return fmt.Sprintf("Best: %s %02d:00", m.BestDay.String, m.BestHour.Int32)
}

// CompletedLine renders the per-subreddit completion message.
func CompletedLine(name string, m Metrics) string {
	return fmt.Sprintf("Completed r/%s | engagement %.4f | avg upvotes %.1f | score %.1f | %s",
		name, m.Engagement, m.AvgUpvotes, m.Score, m.BestLabel())
}

// Requirements holds the estimated posting floors derived from the
// authors seen in a subreddit's listings.
type Requirements struct {
	MinPostKarma      sql.NullInt32
	MinCommentKarma   sql.NullInt32
	MinAccountAgeDays sql.NullInt32
}

// ComputeRequirements takes the stored rows of the distinct authors
// observed this cycle and returns the lower-quartile karma and
// account-age floors. With fewer than ten scored authors every field
// stays null so the stored values survive the merge.
func ComputeRequirements(authors []db.RedditUser) Requirements {
	var post, comment []int64
	var age []int64
	for _, u := range authors {
		if !u.PostKarma.Valid {
			continue
		}
		post = append(post, u.PostKarma.Int64)
		if u.CommentKarma.Valid {
			comment = append(comment, u.CommentKarma.Int64)
		}
		if u.AccountAgeDays.Valid {
			age = append(age, int64(u.AccountAgeDays.Int32))
		}
	}
	var r Requirements
	if len(post) < minAuthorsForRequirements {
		return r
	}
	r.MinPostKarma = sql.NullInt32{Int32: int32(utils.LowerQuartile(post)), Valid: true}
	if len(comment) > 0 {
		r.MinCommentKarma = sql.NullInt32{Int32: int32(utils.LowerQuartile(comment)), Valid: true}
	}
	if len(age) > 0 {
		r.MinAccountAgeDays = sql.NullInt32{Int32: int32(utils.LowerQuartile(age)), Valid: true}
	}
	return r
}
