package model

// AgreementMetrics summarises how closely the raters of one case agree
type AgreementMetrics struct {
	JaccardSimilarity  float64  `json:"jaccardSimilarity"`  // Mean pairwise Jaccard over primary keys
	HasConflict        bool     `json:"hasConflict"`        // Similarity below the conflict threshold
	AgreementPercent   int      `json:"agreementPercent"`   // Similarity rounded to a percentage
	Raters             int      `json:"raters"`             // Distinct raters considered
	Pairs              int      `json:"pairs"`              // Pairwise comparisons made
	DisputedCategories []string `json:"disputedCategories"` // Keys chosen by some raters but not all
}

// Comparable reports whether at least one pair of raters was compared
func (m AgreementMetrics) Comparable() bool {
	return m.Pairs > 0
}

// CaseAgreement is the agreement of a single calibration case
type CaseAgreement struct {
	CaseID  string           `json:"caseId"`
	Metrics AgreementMetrics `json:"metrics"`
}

// PoolStatistics aggregates agreement over the calibration pool
type PoolStatistics struct {
	TotalCalibrationCases   int             `json:"totalCalibrationCases"`
	CasesWithMultipleLabels int             `json:"casesWithMultipleLabels"` // Cases labelled by two or more distinct raters
	AverageAgreement        float64         `json:"averageAgreement"`
	ConflictCount           int             `json:"conflictCount"`
	Cases                   []CaseAgreement `json:"cases"`
}
