package usage

import "sort"

// CoverageThreshold picks the per-cell usage level at which a schedule that
// runs every cell >= threshold captures at least percent of total historical
// consumption. It walks the nonzero cell averages largest-first and stops at
// the first cell where the running sum reaches the target, so the threshold
// is a value actually present in the matrix. An empty matrix yields 0.
//
// Also returns the sum of all nonzero cells, which schedule statistics are
// computed against.
func CoverageThreshold(averages [7][24]float64, percent float64) (threshold, total float64) {
	var cells []float64
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			if averages[day][hour] > 0 {
				cells = append(cells, averages[day][hour])
				total += averages[day][hour]
			}
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(cells)))

	target := total * percent / 100
	var running float64
	for _, v := range cells {
		running += v
		if running >= target {
			threshold = v
			break
		}
	}
	return threshold, total
}
