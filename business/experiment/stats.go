package experiment

import "math"

// Significance gating: a winner is only recommended when the p-value clears
// the threshold and both variants have enough samples.
const (
	defaultPValueThreshold = 0.05
	defaultMinSampleSize   = 100

	z95 = 1.959963984540054 // two-sided 95% critical value
)

// Comparison is the two-sample significance result for a variant pair.
// Storage-independent: inputs are plain counts.
type Comparison struct {
	VariantA    string  `json:"variant_a"`
	VariantB    string  `json:"variant_b"`
	RateA       float64 `json:"rate_a"`
	RateB       float64 `json:"rate_b"`
	Difference  float64 `json:"difference"`
	ZScore      float64 `json:"z_score"`
	PValue      float64 `json:"p_value"`
	CILow       float64 `json:"ci_low"`
	CIHigh      float64 `json:"ci_high"`
	Significant bool    `json:"significant"`
	SampleMet   bool    `json:"sample_met"`
}

// twoProportionTest runs a pooled two-proportion z-test between variants A
// and B: successesX engaged out of trialsX shown. The confidence interval is
// the unpooled 95% interval on the rate difference (A - B).
func twoProportionTest(nameA string, successA, trialsA int64, nameB string, successB, trialsB int64) Comparison {
	cmp := Comparison{
		VariantA:  nameA,
		VariantB:  nameB,
		PValue:    1.0,
		SampleMet: trialsA >= defaultMinSampleSize && trialsB >= defaultMinSampleSize,
	}

	if trialsA == 0 || trialsB == 0 {
		return cmp
	}

	pA := float64(successA) / float64(trialsA)
	pB := float64(successB) / float64(trialsB)
	cmp.RateA = pA
	cmp.RateB = pB
	cmp.Difference = pA - pB

	pooled := float64(successA+successB) / float64(trialsA+trialsB)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(trialsA) + 1/float64(trialsB)))
	if se > 0 {
		cmp.ZScore = cmp.Difference / se
		cmp.PValue = twoTailedP(cmp.ZScore)
	}

	// unpooled SE for the interval on the difference
	seDiff := math.Sqrt(pA*(1-pA)/float64(trialsA) + pB*(1-pB)/float64(trialsB))
	cmp.CILow = cmp.Difference - z95*seDiff
	cmp.CIHigh = cmp.Difference + z95*seDiff

	cmp.Significant = cmp.SampleMet && cmp.PValue < defaultPValueThreshold

	return cmp
}

// twoTailedP converts a z score to a two-tailed p-value via the normal CDF.
func twoTailedP(z float64) float64 {
	return math.Erfc(math.Abs(z) / math.Sqrt2)
}
