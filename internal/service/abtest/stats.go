package abtest

import (
	"math"

	"github.com/soundbite/engagement/internal/domain"
)

// EventCounts tallies the event kinds the metrics are built from.
type EventCounts struct {
	Impressions int `json:"impression"`
	PlayStarts  int `json:"play_start"`
	Completes   int `json:"complete"`
	Likes       int `json:"like"`
	Shares      int `json:"share"`
	Saves       int `json:"save"`
	CTAClicks   int `json:"cta_click"`
}

// VariantStats is a single pass summary of one variant's events.
type VariantStats struct {
	Counts       EventCounts
	SampleSize   int
	EngagedUsers int
}

// Summarize counts events and distinct users. Anonymous events count
// toward event totals but not toward the sample size.
func Summarize(events []domain.EngagementEvent) VariantStats {
	var s VariantStats
	users := make(map[string]struct{})
	engaged := make(map[string]struct{})
	for _, e := range events {
		switch e.Kind {
		case domain.EventImpression:
			s.Counts.Impressions++
		case domain.EventPlayStart:
			s.Counts.PlayStarts++
		case domain.EventComplete:
			s.Counts.Completes++
		case domain.EventLike:
			s.Counts.Likes++
		case domain.EventShare:
			s.Counts.Shares++
		case domain.EventSave:
			s.Counts.Saves++
		case domain.EventCTAClick:
			s.Counts.CTAClicks++
		}
		if e.UserID == nil {
			continue
		}
		users[*e.UserID] = struct{}{}
		if e.Kind == domain.EventLike || e.Kind == domain.EventShare || e.Kind == domain.EventSave {
			engaged[*e.UserID] = struct{}{}
		}
	}
	s.SampleSize = len(users)
	s.EngagedUsers = len(engaged)
	return s
}

// MetricValue computes metric m for s.
func MetricValue(m domain.Metric, s VariantStats) float64 {
	c := s.Counts
	switch m {
	case domain.MetricCompletionRate:
		if c.PlayStarts == 0 {
			return 0
		}
		return float64(c.Completes) / float64(c.PlayStarts) * 100
	case domain.MetricEngagementScore:
		return float64(c.Likes) + 2*float64(c.Shares) + 1.5*float64(c.Saves)
	case domain.MetricCTAClickRate:
		if c.Impressions == 0 {
			return 0
		}
		return float64(c.CTAClicks) / float64(c.Impressions) * 100
	}
	return 0
}

// Proportion is the value fed to the z-test. Rate metrics are scaled to
// [0, 1]. The engagement score is unbounded, so the share of sampled users
// who liked, shared or saved stands in for it.
func Proportion(m domain.Metric, s VariantStats) float64 {
	if m.IsRate() {
		return clamp01(MetricValue(m, s) / 100)
	}
	if s.SampleSize == 0 {
		return 0
	}
	return clamp01(float64(s.EngagedUsers) / float64(s.SampleSize))
}

// Significance is the outcome of a two-proportion z-test.
type Significance struct {
	ZScore      float64
	PValue      float64
	Confidence  float64
	Significant bool
}

var insignificant = Significance{PValue: 1}

// ZTest compares proportions p1 and p2 observed over n1 and n2 samples
// with a pooled standard error. An empty sample, a zero standard error or
// equal proportions give p = 1 and confidence 0.
func ZTest(p1 float64, n1 int, p2 float64, n2 int, alpha float64) Significance {
	if n1 <= 0 || n2 <= 0 || p1 == p2 {
		return insignificant
	}
	pool := (p1*float64(n1) + p2*float64(n2)) / float64(n1+n2)
	se := math.Sqrt(pool * (1 - pool) * (1/float64(n1) + 1/float64(n2)))
	if se == 0 || math.IsNaN(se) {
		return insignificant
	}

	z := math.Abs(p1-p2) / se
	p := clamp01(2 * (1 - NormalCDF(z)))
	return Significance{
		ZScore:      z,
		PValue:      p,
		Confidence:  round2((1 - p) * 100),
		Significant: p < alpha,
	}
}

// NormalCDF is the standard normal CDF using Abramowitz and Stegun 26.2.17
// (absolute error below 7.5e-8).
func NormalCDF(x float64) float64 {
	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)
	if x < 0 {
		return 1 - NormalCDF(-x)
	}
	t := 1 / (1 + p*x)
	poly := t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	pdf := math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
	return 1 - pdf*poly
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
