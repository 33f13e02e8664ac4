package services

import "time"

// Bucket is one half-open reporting interval [Start, End).
type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the bucket. A timestamp exactly
// on End belongs to the next bucket.
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the preceding (or same) Monday at midnight.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// YesterdayFor returns the start of the calendar day before t.
func YesterdayFor(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -1)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// DailyBuckets covers every calendar day touched by [from, to].
func DailyBuckets(from, to time.Time) []Bucket {
	var buckets []Bucket
	for d := startOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		buckets = append(buckets, Bucket{
			Label: d.Format("2006-01-02"),
			Start: d,
			End:   d.AddDate(0, 0, 1),
		})
	}
	return buckets
}

// WeeklyBuckets covers every Monday-started week touched by [from, to].
func WeeklyBuckets(from, to time.Time) []Bucket {
	var buckets []Bucket
	for w := startOfWeek(from); !w.After(to); w = w.AddDate(0, 0, 7) {
		buckets = append(buckets, Bucket{
			Label: w.Format("2006-01-02"),
			Start: w,
			End:   w.AddDate(0, 0, 7),
		})
	}
	return buckets
}

// MonthlyBuckets covers every calendar month touched by [from, to].
func MonthlyBuckets(from, to time.Time) []Bucket {
	var buckets []Bucket
	for m := startOfMonth(from); !m.After(to); m = m.AddDate(0, 1, 0) {
		buckets = append(buckets, Bucket{
			Label: m.Format("2006-01"),
			Start: m,
			End:   m.AddDate(0, 1, 0),
		})
	}
	return buckets
}

// BucketsFor selects a bucketing granularity by name. Unknown granularities
// fall back to monthly.
func BucketsFor(granularity string, from, to time.Time) []Bucket {
	switch granularity {
	case "day", "daily":
		return DailyBuckets(from, to)
	case "week", "weekly":
		return WeeklyBuckets(from, to)
	default:
		return MonthlyBuckets(from, to)
	}
}
