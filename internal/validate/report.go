package validate

// Severity levels for findings.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Risk summarizes a whole validation run.
type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

// Report is the advisory outcome of a validation run. Warnings list chunks
// the LLM pass could not check; Coverage is the checked fraction.
type Report struct {
	Findings      []Finding `json:"findings"`
	Warnings      []string  `json:"warnings,omitempty"`
	ChunksTotal   int       `json:"chunks_total"`
	ChunksChecked int       `json:"chunks_checked"`
	Coverage      float64   `json:"coverage"`
	Risk          Risk      `json:"risk"`
}

// finish derives coverage and risk once all findings are in.
func (r *Report) finish() {
	if r.ChunksTotal > 0 {
		r.Coverage = float64(r.ChunksChecked) / float64(r.ChunksTotal)
	}
	r.Risk = assessRisk(r.Findings)
}

func assessRisk(findings []Finding) Risk {
	critical := 0
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			critical++
		}
	}
	switch {
	case critical > 0:
		return RiskHigh
	case len(findings) > 0:
		return RiskMedium
	default:
		return RiskLow
	}
}
