package debtanalyzer

type Config struct {
	MaxOpenDebts int
	// ConsolidationSpread is how far, in percentage points, the weighted rate
	// of existing debt must exceed the quote rate before consolidation is
	// suggested.
	ConsolidationSpread float64
}

func LoadConfig() *Config {
	return &Config{
		MaxOpenDebts:        5,
		ConsolidationSpread: 2,
	}
}
