package domain

import (
	"fmt"
	"time"
)

// Metric enumerates the comparison metrics an A/B test can be decided on.
type Metric string

const (
	MetricCompletionRate  Metric = "completion_rate"
	MetricEngagementScore Metric = "engagement_score"
	MetricCTAClickRate    Metric = "cta_click_rate"
)

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricCompletionRate, MetricEngagementScore, MetricCTAClickRate:
		return true
	}
	return false
}

// IsRate reports whether the metric is a percentage in [0, 100].
func (m Metric) IsRate() bool {
	return m == MetricCompletionRate || m == MetricCTAClickRate
}

// ParseMetric converts s to a Metric, rejecting unknown values.
func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: unsupported metricName %q", ErrValidation, s)
	}
	return m, nil
}

// ABTest compares exactly two variants of one content item. At most one test
// per content item is running (ConcludedAt == nil) at any time.
type ABTest struct {
	ID               string     `json:"id" db:"id"`
	ContentID        string     `json:"contentId" db:"content_id"`
	VariantAID       string     `json:"variantAId" db:"variant_a_id"`
	VariantBID       string     `json:"variantBId" db:"variant_b_id"`
	MetricName       Metric     `json:"metricName" db:"metric_name"`
	TestDurationDays int        `json:"testDurationDays" db:"test_duration_days"`
	StartedAt        time.Time  `json:"startedAt" db:"started_at"`
	ConcludedAt      *time.Time `json:"concludedAt" db:"concluded_at"`
	SampleSizeA      int        `json:"sampleSizeA" db:"sample_size_a"`
	SampleSizeB      int        `json:"sampleSizeB" db:"sample_size_b"`
	WinnerID         *string    `json:"winnerId" db:"winner_id"`
	ConfidenceScore  float64    `json:"confidenceScore" db:"confidence_score"`
}

// Running reports whether the test has not been concluded yet.
func (t *ABTest) Running() bool { return t.ConcludedAt == nil }

// EndsAt returns the time the test's configured duration elapses.
func (t *ABTest) EndsAt() time.Time {
	return t.StartedAt.Add(time.Duration(t.TestDurationDays) * 24 * time.Hour)
}

// Conclusion is the terminal update applied to a running test.
type Conclusion struct {
	SampleSizeA     int
	SampleSizeB     int
	WinnerID        *string
	ConfidenceScore float64
	ConcludedAt     time.Time
}
