package collateralevaluator

type Config struct {
	// Valuations older than these many months lose confidence.
	FreshValuationMonths int
	StaleValuationMonths int
	// MaxReportedLTV bounds the LTV of fully encumbered collateral.
	MaxReportedLTV float64
	// UnsecuredIncomeMultiple is the loan size, in months of gross income,
	// above which an unsecured request draws a collateral recommendation.
	UnsecuredIncomeMultiple float64
}

func LoadConfig() *Config {
	return &Config{
		FreshValuationMonths:    6,
		StaleValuationMonths:    12,
		MaxReportedLTV:          999.99,
		UnsecuredIncomeMultiple: 12,
	}
}
