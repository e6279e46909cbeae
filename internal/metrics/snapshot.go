package metrics

import (
	"sort"

	"github.com/nikhilbhutani/docchat/internal/models"
)

const dateLayout = "2006-01-02"

type DailyStats struct {
	TotalQueries   int   `json:"total_queries"`
	TotalTokens    int   `json:"total_tokens"`
	TotalLatencyMs int64 `json:"total_latency_ms"`
	ErrorCount     int   `json:"error_count"`
	RefusedCount   int   `json:"refused_count"`
}

// Snapshot is the dashboard view of the log at the moment it was taken.
type Snapshot struct {
	TotalQueries       int                   `json:"total_queries"`
	TotalTokens        int                   `json:"total_tokens"`
	ErrorCount         int                   `json:"error_count"`
	RefusedRate        float64               `json:"refused_rate"`
	AverageLatencyMs   float64               `json:"average_latency_ms"`
	AverageConfidence  float64               `json:"average_confidence"`
	AvgTokensPerQuery  float64               `json:"avg_tokens_per_query"`
	P50LatencyMs       int64                 `json:"p50_latency_ms"`
	P95LatencyMs       int64                 `json:"p95_latency_ms"`
	DailyStats         map[string]DailyStats `json:"daily_stats"`
	RecentInteractions []models.Interaction  `json:"recent_interactions"`
	RecentErrors       []models.ErrorEvent   `json:"recent_errors"`
}

// Snapshot computes summary statistics over every record appended before the
// call. An empty log yields zeros, not an error.
func (s *Store) Snapshot() Snapshot {
	interactions, errs := s.view()
	return summarize(interactions, errs, s.recentInteractions, s.recentErrors)
}

func summarize(interactions []models.Interaction, errs []models.ErrorEvent, recentN, recentErrN int) Snapshot {
	snap := Snapshot{
		TotalQueries:       len(interactions),
		ErrorCount:         len(errs),
		DailyStats:         make(map[string]DailyStats),
		RecentInteractions: tail(interactions, recentN),
		RecentErrors:       tail(errs, recentErrN),
	}

	latencies := make([]int64, 0, len(interactions))
	var totalLatency int64
	var totalConfidence float64
	refused := 0

	for _, in := range interactions {
		snap.TotalTokens += in.TokensTotal
		totalLatency += in.LatencyMs
		totalConfidence += in.Confidence
		latencies = append(latencies, in.LatencyMs)

		key := in.Timestamp.UTC().Format(dateLayout)
		day := snap.DailyStats[key]
		day.TotalQueries++
		day.TotalTokens += in.TokensTotal
		day.TotalLatencyMs += in.LatencyMs
		if in.WasRefused {
			day.RefusedCount++
			refused++
		}
		snap.DailyStats[key] = day
	}

	for _, ev := range errs {
		key := ev.Timestamp.UTC().Format(dateLayout)
		day := snap.DailyStats[key]
		day.ErrorCount++
		snap.DailyStats[key] = day
	}

	if n := len(interactions); n > 0 {
		snap.AverageLatencyMs = float64(totalLatency) / float64(n)
		snap.AverageConfidence = totalConfidence / float64(n)
		snap.AvgTokensPerQuery = float64(snap.TotalTokens) / float64(n)
		snap.RefusedRate = float64(refused) / float64(n)

		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		snap.P50LatencyMs = NearestRank(latencies, 50)
		snap.P95LatencyMs = NearestRank(latencies, 95)
	}
	return snap
}

// NearestRank returns the p-th percentile of an ascending sample: the value
// at rank ceil(p/100 * n). An empty sample yields 0.
func NearestRank(sorted []int64, p int) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := (p*n + 99) / 100
	rank = max(1, min(rank, n))
	return sorted[rank-1]
}

// tail returns a copy of the last n records in insertion order.
func tail[T any](records []T, n int) []T {
	if n > len(records) {
		n = len(records)
	}
	out := make([]T, n)
	copy(out, records[len(records)-n:])
	return out
}
