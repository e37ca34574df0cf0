package dedup

import (
	"sort"
	"time"

	"github.com/roach88/orderdedup/internal/order"
)

// PeriodReport describes the issue-date coverage of a record set.
type PeriodReport struct {
	Total         int         `json:"total"`
	WithIssueDate int         `json:"with_issue_date"`
	Earliest      *time.Time  `json:"earliest"`
	Latest        *time.Time  `json:"latest"`
	ByYear        []YearCount `json:"by_year"`
}

// YearCount is the number of records issued in one calendar year (UTC).
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// AnalyzePeriod computes the issue-date range and per-year distribution.
// Records without an issue date count toward Total only.
func AnalyzePeriod(records []order.Order) PeriodReport {
	r := PeriodReport{Total: len(records), ByYear: []YearCount{}}
	years := map[int]int{}
	for _, rec := range records {
		if rec.IssuedAt == nil {
			continue
		}
		t := rec.IssuedAt.UTC()
		r.WithIssueDate++
		years[t.Year()]++
		if r.Earliest == nil || t.Before(*r.Earliest) {
			r.Earliest = &t
		}
		if r.Latest == nil || t.After(*r.Latest) {
			r.Latest = &t
		}
	}
	for y, n := range years {
		r.ByYear = append(r.ByYear, YearCount{Year: y, Count: n})
	}
	sort.Slice(r.ByYear, func(i, j int) bool { return r.ByYear[i].Year < r.ByYear[j].Year })
	return r
}
