// Package screening scores image content annotations and decides whether a
// screenshot should be blocked from the dashboard.
package screening

// Likelihood is a verdict bucket reported by the image classifier.
type Likelihood string

const (
	VeryUnlikely Likelihood = "VERY_UNLIKELY"
	Unlikely     Likelihood = "UNLIKELY"
	Possible     Likelihood = "POSSIBLE"
	Likely       Likelihood = "LIKELY"
	VeryLikely   Likelihood = "VERY_LIKELY"
)

// Weight maps a likelihood bucket onto a unit scale. Unknown buckets weigh
// nothing.
func (l Likelihood) Weight() float64 {
	switch l {
	case VeryLikely:
		return 1.0
	case Likely:
		return 0.7
	case Possible:
		return 0.4
	case Unlikely:
		return 0.2
	default:
		return 0.0
	}
}

// atLeast reports whether l is at or above threshold on the likelihood scale.
func (l Likelihood) atLeast(threshold Likelihood) bool {
	return l.Weight() >= threshold.Weight()
}

// Annotation is the raw per-dimension verdict set from the classifier.
type Annotation struct {
	Adult    Likelihood `json:"adult"`
	Violence Likelihood `json:"violence"`
	Racy     Likelihood `json:"racy"`
	Medical  Likelihood `json:"medical"`
	Spoof    Likelihood `json:"spoof"`
}

// Result is a scored annotation with the block decision applied.
type Result struct {
	Annotation
	RiskScore   float64 `json:"riskScore"`
	ShouldBlock bool    `json:"shouldBlock"`
	IsAdult     bool    `json:"isAdult"`
	IsViolent   bool    `json:"isViolent"`
	IsRacy      bool    `json:"isRacy"`
}

// Risk dimension weights. Adult content dominates the composite score.
const (
	adultWeight    = 0.5
	violenceWeight = 0.3
	racyWeight     = 0.2
)

// Score computes the composite risk for an annotation and decides blocking.
// Every dimension flags at LIKELY and above, but racy content blocks only at
// the top bucket.
func Score(a Annotation) Result {
	risk := a.Adult.Weight()*adultWeight +
		a.Violence.Weight()*violenceWeight +
		a.Racy.Weight()*racyWeight

	isAdult := a.Adult.atLeast(Likely)
	isViolent := a.Violence.atLeast(Likely)
	isRacy := a.Racy.atLeast(Likely)

	return Result{
		Annotation:  a,
		RiskScore:   risk,
		ShouldBlock: isAdult || isViolent || a.Racy == VeryLikely,
		IsAdult:     isAdult,
		IsViolent:   isViolent,
		IsRacy:      isRacy,
	}
}
