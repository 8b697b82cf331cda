package queueing

import "math"

// ErlangC returns the probability an arrival waits in an M/M/c queue with
// c servers and offered load a = lambda/mu. It returns 1 when the system
// is saturated (a >= c) and 0 when there is no load.
func ErlangC(c int, a float64) float64 {
	if c < 1 || a <= 0 {
		return 0
	}
	if a >= float64(c) {
		return 1
	}

	// Sum a^k/k! iteratively to avoid factorial overflow.
	sum := 0.0
	term := 1.0
	for k := 0; k < c; k++ {
		sum += term
		term *= a / float64(k+1)
	}
	// term is now a^c/c!.
	rho := a / float64(c)
	numerator := term / (1 - rho)
	return numerator / (sum + numerator)
}

// MMCWaitSeconds returns the expected time in queue for an M/M/c system,
// in the same time unit as 1/lambda. It returns +Inf when the system is
// saturated.
func MMCWaitSeconds(c int, lambda, mu float64) float64 {
	if lambda <= 0 {
		return 0
	}
	if mu <= 0 || lambda >= float64(c)*mu {
		return math.Inf(1)
	}
	a := lambda / mu
	pWait := ErlangC(c, a)
	return pWait / (float64(c)*mu - lambda)
}

// MarginalServerImpact estimates the queue-wait reduction from adding one
// server: the expected wait with c servers minus the wait with c+1.
// The reduction is +Inf when c servers are saturated.
func MarginalServerImpact(c int, lambda, mu float64) float64 {
	current := MMCWaitSeconds(c, lambda, mu)
	if math.IsInf(current, 1) {
		return math.Inf(1)
	}
	return current - MMCWaitSeconds(c+1, lambda, mu)
}
