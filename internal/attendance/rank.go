package attendance

// CompetitionRank returns the 1-based rank of target among rates using
// standard competition ranking: ties share a rank and the following ranks are
// skipped (100, 90, 90 rank as 1, 2, 2).
func CompetitionRank(rates []float64, target float64) int {
	rank := 1
	for _, r := range rates {
		if r > target {
			rank++
		}
	}
	return rank
}

// rankInClass ranks studentID among the class summaries. ok is false when the
// student has no row.
func rankInClass(rows []Summary, studentID string, lateWeight float64) (rank int, ok bool) {
	rates := make([]float64, 0, len(rows))
	var target float64
	for _, row := range rows {
		r := row.Rate(lateWeight)
		rates = append(rates, r)
		if row.StudentID == studentID {
			target, ok = r, true
		}
	}
	if !ok {
		return 0, false
	}
	return CompetitionRank(rates, target), true
}
