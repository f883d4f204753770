package financialcollector

type Config struct {
	// MinNetToGrossRatio flags applications whose take-home pay looks
	// implausibly low against gross income.
	MinNetToGrossRatio float64
	MaxRecentInquiries int
}

func LoadConfig() *Config {
	return &Config{
		MinNetToGrossRatio: 0.5,
		MaxRecentInquiries: 5,
	}
}
