package report

import (
	"sort"

	"casepulse/pkg/contracts/domain"
)

// MetricPrecision is the number of decimals averages are rounded to.
const MetricPrecision = 2

// ComputeMetrics returns the case count and the two averages of a subset.
func ComputeMetrics(subset []domain.CaseRecord) domain.HospitalMetrics {
	return domain.HospitalMetrics{
		CaseCount:              len(subset),
		AverageDifference:      mean(subset, func(r domain.CaseRecord) domain.Optional { return r.Difference }).Round(MetricPrecision),
		AverageServiceDuration: mean(subset, func(r domain.CaseRecord) domain.Optional { return r.ServiceDuration }).Round(MetricPrecision),
	}
}

// mean averages the present values; it is absent when none are present.
func mean(subset []domain.CaseRecord, field func(domain.CaseRecord) domain.Optional) domain.Optional {
	var sum float64
	var n int
	for _, r := range subset {
		v := field(r)
		if !v.Valid {
			continue
		}
		sum += v.Value
		n++
	}
	if n == 0 {
		return domain.None()
	}
	return domain.Some(sum / float64(n))
}

// ComputeLeaderboard groups a subset by doctor and ranks the groups by case
// count, then by total Difference, both descending. Groups are formed in
// ascending doctor order and equal rows keep that order.
func ComputeLeaderboard(subset []domain.CaseRecord) []domain.LeaderboardRow {
	byDoctor := make(map[string]*domain.LeaderboardRow)
	for _, r := range subset {
		if r.Doctor == "" {
			continue
		}
		row, ok := byDoctor[r.Doctor]
		if !ok {
			row = &domain.LeaderboardRow{Doctor: r.Doctor}
			byDoctor[r.Doctor] = row
		}
		row.CaseCount++
		row.TotalDifference += r.Difference.Or(0)
	}

	doctors := make([]string, 0, len(byDoctor))
	for d := range byDoctor {
		doctors = append(doctors, d)
	}
	sort.Strings(doctors)

	rows := make([]domain.LeaderboardRow, 0, len(doctors))
	for _, d := range doctors {
		rows = append(rows, *byDoctor[d])
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CaseCount != rows[j].CaseCount {
			return rows[i].CaseCount > rows[j].CaseCount
		}
		return rows[i].TotalDifference > rows[j].TotalDifference
	})
	return rows
}

// ComputeTrend sums Difference per month in ascending month order. Rows
// without a month form a final point with a nil Month.
func ComputeTrend(subset []domain.CaseRecord) []domain.TrendPoint {
	sums := make(map[int]float64)
	var missing float64
	var hasMissing bool

	for _, r := range subset {
		if r.Month == nil {
			missing += r.Difference.Or(0)
			hasMissing = true
			continue
		}
		sums[*r.Month] += r.Difference.Or(0)
	}

	months := make([]int, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Ints(months)

	points := make([]domain.TrendPoint, 0, len(months)+1)
	for _, m := range months {
		points = append(points, domain.TrendPoint{Month: domain.MonthPtr(m), Sum: sums[m]})
	}
	if hasMissing {
		points = append(points, domain.TrendPoint{Month: nil, Sum: missing})
	}
	return points
}

// ComputeGenderCounts counts each non-empty Sex value, most frequent first.
// Equal counts keep the order in which the values first appeared.
func ComputeGenderCounts(subset []domain.CaseRecord) []domain.GenderCount {
	index := make(map[string]int)
	var counts []domain.GenderCount
	for _, r := range subset {
		if r.Sex == "" {
			continue
		}
		i, ok := index[r.Sex]
		if !ok {
			i = len(counts)
			index[r.Sex] = i
			counts = append(counts, domain.GenderCount{Gender: r.Sex})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if counts == nil {
		counts = []domain.GenderCount{}
	}
	return counts
}
