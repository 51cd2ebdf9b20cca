package budget

import (
	"time"

	"github.com/grnet/mcp-aws-orgs/internal/envelope"
)

const dateLayout = "2006-01-02"

// maxLookback is how far back Cost Explorer queries are allowed to reach.
// The service itself keeps around thirteen months, one year leaves margin.
const maxLookback = 365 * 24 * time.Hour

// analysisRange resolves the explicit date pair, the period shortcut or the
// default (current month to date) into a concrete start/end pair.
func analysisRange(today time.Time, period, startDate, endDate string) (time.Time, time.Time, error) {
	today = truncateDay(today)

	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			return time.Time{}, time.Time{}, envelope.Errorf(envelope.KindInvalidArgument,
				"start_date and end_date must be given together")
		}
		start, err := parseDate(startDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := parseDate(endDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}

	switch period {
	case "past_month":
		firstOfCurrent := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		lastOfPrevious := firstOfCurrent.AddDate(0, 0, -1)
		firstOfPrevious := time.Date(lastOfPrevious.Year(), lastOfPrevious.Month(), 1, 0, 0, 0, 0, time.UTC)
		return firstOfPrevious, lastOfPrevious, nil
	case "", "current_month":
		firstOfCurrent := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return firstOfCurrent, today, nil
	default:
		return time.Time{}, time.Time{}, envelope.Errorf(envelope.KindInvalidArgument,
			"period must be past_month or current_month, got %q", period)
	}
}

// validateRange enforces the Cost Explorer constraints: ordered dates, no
// future end, and a bounded lookback.
func validateRange(today, start, end time.Time) error {
	today = truncateDay(today)
	if start.After(end) {
		return envelope.Errorf(envelope.KindInvalidArgument,
			"start_date %s is after end_date %s", start.Format(dateLayout), end.Format(dateLayout))
	}
	if end.After(today) {
		return envelope.Errorf(envelope.KindInvalidArgument,
			"end_date %s is in the future", end.Format(dateLayout))
	}
	if start.Before(today.Add(-maxLookback)) {
		return envelope.Errorf(envelope.KindInvalidArgument,
			"start_date %s is more than a year in the past", start.Format(dateLayout))
	}
	return nil
}

// parseDate accepts a plain date or any ISO timestamp whose first ten
// characters are one.
func parseDate(value string) (time.Time, error) {
	if len(value) > len(dateLayout) {
		value = value[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, envelope.Errorf(envelope.KindInvalidArgument,
			"invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
