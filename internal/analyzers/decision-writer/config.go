package decisionwriter

type Config struct {
	// AmountStep is the granularity reduced approval amounts are rounded
	// down to.
	AmountStep float64
	// MinReducedShare is the smallest share of the requested amount a
	// reduced approval may offer before the case goes to review.
	MinReducedShare   float64
	MinDataQuality    int
	ReviewSLABusiness int
}

func LoadConfig() *Config {
	return &Config{
		AmountStep:        100,
		MinReducedShare:   0.5,
		MinDataQuality:    5,
		ReviewSLABusiness: 2,
	}
}
