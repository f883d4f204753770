package riskscorer

type Config struct {
	TrendBonus   float64
	TrendPenalty float64
}

func LoadConfig() *Config {
	return &Config{TrendBonus: 5, TrendPenalty: 10}
}
