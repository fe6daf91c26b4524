// Package cronexpr validates the five cron fields a BackupDefinition's
// Schedule is made of, and computes predicted next-run times for display
// purposes. The crontab file itself is generated and handed to the system
// cron daemon by internal/controldaemon — this package never schedules
// anything itself.
package cronexpr

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks all five fields of s, individually and as a whole
// expression, returning a pgerr.KindValidation error describing the first
// problem found.
func ValidateSchedule(s catalog.Schedule) error {
	if err := validateField("minute", s.Minute, 0, 59); err != nil {
		return err
	}
	if err := validateField("hour", s.Hour, 0, 23); err != nil {
		return err
	}
	if err := validateField("day of month", s.DayOfMonth, 1, 31); err != nil {
		return err
	}
	if err := validateField("month", s.Month, 1, 12); err != nil {
		return err
	}
	if err := validateField("day of week", s.Weekday, 0, 7); err != nil {
		return err
	}

	expr := fmt.Sprintf("%s %s %s %s %s", s.Minute, s.Hour, s.DayOfMonth, s.Month, s.Weekday)
	if _, err := parser.Parse(expr); err != nil {
		return pgerr.Wrap(pgerr.KindValidation, "invalid cron schedule \""+expr+"\"", err)
	}
	return nil
}

// validateField accepts "*", a bare "*/n" step, a single integer in
// [min,max], or an "a-b" range in [min,max] with a <= b — the same shapes
// check_minutes_interval/check_hours_interval accept, generalized to all
// five fields.
func validateField(name, field string, min, max int) error {
	if field == "" {
		return pgerr.New(pgerr.KindValidation, name+" field must not be empty")
	}
	if field == "*" || strings.HasPrefix(field, "*/") {
		return nil
	}

	if lo, hi, ok := splitRange(field); ok {
		if lo > hi {
			return pgerr.New(pgerr.KindValidation, fmt.Sprintf("%s range %q: start must not exceed end", name, field))
		}
		if lo < min || hi > max {
			return pgerr.New(pgerr.KindValidation, fmt.Sprintf("%s range %q out of bounds [%d,%d]", name, field, min, max))
		}
		return nil
	}

	n, err := strconv.Atoi(field)
	if err != nil {
		return pgerr.New(pgerr.KindValidation, fmt.Sprintf("%s %q is not a valid integer, range, or \"*\"", name, field))
	}
	if n < min || n > max {
		return pgerr.New(pgerr.KindValidation, fmt.Sprintf("%s %d out of bounds [%d,%d]", name, n, min, max))
	}
	return nil
}

func splitRange(field string) (lo, hi int, ok bool) {
	a, b, found := strings.Cut(field, "-")
	if !found {
		return 0, 0, false
	}
	lo, errA := strconv.Atoi(a)
	hi, errB := strconv.Atoi(b)
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// PickFromInterval deterministically picks a value within an "a-b" interval
// for a given entity (typically a pgsql node id), so that repeated
// registrations for the same entity land on the same minute/hour and spread
// load stably across entities rather than re-rolling on every call.
func PickFromInterval(interval string, entityID int64) (int, error) {
	lo, hi, ok := splitRange(interval)
	if !ok {
		return 0, pgerr.New(pgerr.KindValidation, fmt.Sprintf("interval %q is not an \"a-b\" range", interval))
	}
	if lo > hi {
		return 0, pgerr.New(pgerr.KindValidation, fmt.Sprintf("interval %q: start must not exceed end", interval))
	}

	span := hi - lo + 1
	h := fnv.New64a()
	fmt.Fprintf(h, "%d", entityID)
	return lo + int(h.Sum64()%uint64(span)), nil
}

// NextOccurrences returns count predicted run times after `after`, computed
// from the schedule alone without reading the installed crontab.
func NextOccurrences(s catalog.Schedule, after time.Time, count int) ([]time.Time, error) {
	expr := fmt.Sprintf("%s %s %s %s %s", s.Minute, s.Hour, s.DayOfMonth, s.Month, s.Weekday)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, pgerr.Wrap(pgerr.KindValidation, "invalid cron schedule \""+expr+"\"", err)
	}

	times := make([]time.Time, 0, count)
	cursor := after
	for i := 0; i < count; i++ {
		cursor = sched.Next(cursor)
		times = append(times, cursor)
	}
	return times, nil
}
