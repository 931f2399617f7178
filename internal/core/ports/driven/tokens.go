package driven

// TokenEstimator estimates how many embedding tokens a text costs.
type TokenEstimator interface {
	Estimate(text string) int
}
