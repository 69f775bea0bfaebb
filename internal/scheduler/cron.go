package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseCronExpression resolves when expr next fires after base. Only
// the @-forms are supported: @yearly, @monthly, @weekly, @daily,
// @hourly, and "@every <duration>" where the duration also accepts a
// "d" suffix for days.
func ParseCronExpression(expr string, base time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "@yearly" || expr == "@annually":
		return time.Date(base.Year()+1, 1, 1, 0, 0, 0, 0, base.Location()), nil
	case expr == "@monthly":
		return nextMonth(base), nil
	case expr == "@weekly":
		return nextWeek(base), nil
	case expr == "@daily":
		return nextDay(base), nil
	case expr == "@hourly":
		return base.Add(time.Hour).Truncate(time.Hour), nil
	case strings.HasPrefix(expr, "@every "):
		return parseEveryDuration(strings.TrimPrefix(expr, "@every "), base)
	}
	return time.Time{}, fmt.Errorf("unsupported cron expression: %q", expr)
}

// ValidateCronExpression reports whether expr is a form this scheduler
// can fire. Five-field cron lines are called out separately so the
// error says what to use instead.
func ValidateCronExpression(expr string) error {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "@yearly", "@annually", "@monthly", "@weekly", "@daily", "@hourly":
		return nil
	}
	if strings.HasPrefix(expr, "@every ") {
		_, err := parseEveryDuration(strings.TrimPrefix(expr, "@every "), time.Now())
		return err
	}
	if len(strings.Fields(expr)) >= 5 {
		return fmt.Errorf("five-field cron is not supported, use @daily/@hourly/@every <duration>")
	}
	return fmt.Errorf("invalid cron expression %q", expr)
}

// parseEveryDuration resolves base plus a duration. time.ParseDuration
// has no day unit, so "7d" is handled here.
func parseEveryDuration(duration string, base time.Time) (time.Time, error) {
	if strings.HasSuffix(duration, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(duration, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid duration: %s", duration)
		}
		return base.Add(time.Duration(days) * 24 * time.Hour), nil
	}
	d, err := time.ParseDuration(duration)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration: %s", duration)
	}
	return base.Add(d), nil
}

func nextMonth(t time.Time) time.Time {
	year, month := t.Year(), t.Month()+1
	if month > 12 {
		month = 1
		year++
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
}

func nextWeek(t time.Time) time.Time {
	days := (7 - int(t.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day()+days, 0, 0, 0, 0, t.Location())
}

func nextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}
