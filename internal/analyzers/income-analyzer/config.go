package incomeanalyzer

type Config struct {
	// DiversificationBase is the score of a single-source income.
	DiversificationBase float64
}

func LoadConfig() *Config {
	return &Config{DiversificationBase: 20}
}
