package usage

import "testing"

func matrixWithCells(cells map[[2]int]float64) [7][24]float64 {
	var m [7][24]float64
	for pos, v := range cells {
		m[pos[0]][pos[1]] = v
	}
	return m
}

func TestCoverageThreshold(t *testing.T) {
	m := matrixWithCells(map[[2]int]float64{
		{1, 7}:  5,
		{1, 18}: 3,
		{2, 7}:  2,
	})

	tests := []struct {
		name          string
		percent       float64
		wantThreshold float64
	}{
		// total = 10; 50% is covered by the largest cell alone.
		{"half coverage stops at largest cell", 50, 5},
		// 80% needs 5+3.
		{"eighty percent needs two cells", 80, 3},
		// 100% walks down to the smallest nonzero cell.
		{"full coverage ends at smallest cell", 100, 2},
		// A tiny target is still reached at the first (largest) cell.
		{"small target picks largest cell", 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threshold, total := CoverageThreshold(m, tt.percent)
			if threshold != tt.wantThreshold {
				t.Errorf("threshold = %v, want %v", threshold, tt.wantThreshold)
			}
			if total != 10 {
				t.Errorf("total = %v, want 10", total)
			}
		})
	}
}

func TestCoverageThreshold_EmptyMatrix(t *testing.T) {
	var m [7][24]float64
	threshold, total := CoverageThreshold(m, 80)
	if threshold != 0 {
		t.Errorf("threshold = %v, want 0", threshold)
	}
	if total != 0 {
		t.Errorf("total = %v, want 0", total)
	}
}

func TestCoverageThreshold_FullCoverageDistinctCells(t *testing.T) {
	// All-distinct positive cells at p=100: the walk stops at the element
	// that reaches the target, which is the smallest nonzero cell.
	m := matrixWithCells(map[[2]int]float64{
		{0, 1}: 4,
		{0, 2}: 3,
		{0, 3}: 2,
		{0, 4}: 1,
	})

	threshold, _ := CoverageThreshold(m, 100)
	if threshold != 1 {
		t.Errorf("threshold = %v, want 1 (smallest nonzero cell)", threshold)
	}
}
