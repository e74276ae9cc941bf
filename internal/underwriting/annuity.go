package underwriting

import "math"

// PaymentTiming selects whether payments fall at the end or the beginning of each period.
type PaymentTiming int

const (
	EndOfPeriod PaymentTiming = iota
	BeginningOfPeriod
)

// PresentValue returns the present value of an annuity paying payment each period
// for periods periods at rate per period, plus the discounted futureValue.
// The result has the same sign as payment: a 1000/month stream is worth a positive amount.
// A zero rate degenerates to payment*periods + futureValue.
func PresentValue(rate float64, periods int, payment, futureValue float64, timing PaymentTiming) float64 {
	n := float64(periods)
	if rate == 0 {
		return payment*n + futureValue
	}
	discount := math.Pow(1+rate, -n)
	annuity := payment * (1 - discount) / rate
	if timing == BeginningOfPeriod {
		annuity *= 1 + rate
	}
	return annuity + futureValue*discount
}
