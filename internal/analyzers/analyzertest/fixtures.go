// Package analyzertest provides sample applications and fixed-output
// analyzers for tests across the assessment packages.
package analyzertest

import (
	"context"
	"time"

	"credit-assessment/internal/analyzers"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
)

// Now is the fixed clock used by fixtures.
var Now = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)

// QuoteRate matches the default configured quote rate.
const QuoteRate = 0.05

// Application returns a salaried applicant with 5000 gross monthly income,
// 1000 of existing monthly debt service, asking for 20000 over 60 months.
func Application() *models.LoanApplication {
	return &models.LoanApplication{
		ApplicationID: "APP-TEST-0001",
		SubmittedAt:   Now,
		Channel:       "web",
		Applicant: models.ApplicantInfo{
			FirstName:   "Jean",
			LastName:    "Dupont",
			DateOfBirth: models.NewDate(1985, time.March, 15),
			Nationality: "FR",
			TaxID:       "FR123456789",
			Email:       "jean.dupont@example.com",
			Phone:       "+33612345678",
		},
		Employment: models.EmploymentInfo{
			EmploymentType:     models.EmploymentEmployed,
			EmployerName:       "Acme SA",
			JobTitle:           "Software Engineer",
			Industry:           "technology",
			YearsEmployed:      6,
			YearsInProfession:  10,
			MonthlyGrossIncome: 5000,
			MonthlyNetIncome:   3800,
			IncomeVerified:     true,
		},
		ExistingDebts: []models.ExistingDebt{
			{
				DebtType: "auto_loan", Creditor: "Auto Finance", OriginalAmount: 30000,
				CurrentBalance: 18000, MonthlyPayment: 650, InterestRate: 4.5,
				RemainingMonths: 30, IsSecured: true, PaymentHistory: models.PaymentHistoryExcellent,
			},
			{
				DebtType: "credit_card", Creditor: "Card Bank", OriginalAmount: 10000,
				CurrentBalance: 2500, MonthlyPayment: 150, InterestRate: 18.9,
				PaymentHistory: models.PaymentHistoryGood,
			},
			{
				DebtType: "student_loan", Creditor: "Edu Lender", OriginalAmount: 25000,
				CurrentBalance: 12000, MonthlyPayment: 200, InterestRate: 3.2,
				RemainingMonths: 60, PaymentHistory: models.PaymentHistoryExcellent,
			},
		},
		LoanRequest: models.LoanRequest{
			Purpose:             models.PurposePersonal,
			RequestedAmount:     20000,
			RequestedTermMonths: 60,
			PreferredPaymentDay: 5,
			Description:         "Kitchen and furniture",
		},
		CreditHistory: models.CreditHistory{
			CreditScore:        720,
			CreditScoreSource:  "experian",
			NumberOfAccounts:   5,
			NumberClosed:       2,
			OldestAccountYears: 12,
			RecentInquiries:    1,
		},
	}
}

// SecuredApplication is a 9000 gross earner asking for a 240000 mortgage
// over 300 months against a 320000 property valued three months before Now.
func SecuredApplication() *models.LoanApplication {
	app := Application()
	app.Employment.MonthlyGrossIncome = 9000
	app.Employment.MonthlyNetIncome = 6600
	app.LoanRequest.Purpose = models.PurposeMortgage
	app.LoanRequest.RequestedAmount = 240000
	app.LoanRequest.RequestedTermMonths = 300
	app.Collateral = &models.CollateralInfo{
		CollateralType:    models.CollateralRealEstate,
		Description:       "Apartment, Lyon",
		EstimatedValue:    320000,
		ValuationDate:     models.NewDate(2024, time.March, 10),
		ValuationSource:   "certified appraiser",
		InsuranceCoverage: 320000,
	}
	return app
}

// Base builds the shared stage context for app, pricing the estimated payment
// at QuoteRate.
func Base(app *models.LoanApplication) analyzers.Base {
	payment := finance.RoundCurrency(finance.AmortizedPayment(
		app.LoanRequest.RequestedAmount, app.LoanRequest.RequestedTermMonths, QuoteRate))
	return analyzers.Base{
		Application:      app,
		CorrelationID:    "credit-20240615-103000-0a1b2c3d",
		QuoteRate:        QuoteRate,
		EstimatedPayment: payment,
		Now:              Now,
	}
}

// Outputs are canned stage results consistent with Application.
type Outputs struct {
	Financial  models.FinancialSummary
	Income     models.IncomeAnalysis
	Debt       models.DebtAnalysis
	Collateral models.CollateralEvaluation
	Risk       models.RiskAssessment
	Decision   models.CreditDecision
}

// ApprovedOutputs returns schema-valid outputs for an approved application.
func ApprovedOutputs() Outputs {
	terms := finance.BuildLoanTerms(20000, 60, 5.5, 0.01)
	return Outputs{
		Financial: models.FinancialSummary{
			TotalMonthlyIncome:   5000,
			IncomeStabilityScore: 100,
			IncomeSources:        []string{"salary"},
			EmploymentStability:  "stable",
			IncomeTrend:          models.TrendStable,
			VerificationStatus:   "verified",
			DataQualityScore:     10,
		},
		Income: models.IncomeAnalysis{
			GrossAnnualIncome:       60000,
			NetAnnualIncome:         45600,
			IncomeToExpenseRatio:    1.63,
			DisposableIncomeMonthly: 1470,
			IncomeSustainability:    models.GradeHigh,
			IncomeDiversification:   20,
			StressTestResult:        "passed",
			StressTestPassed:        true,
			MaxAffordablePayment:    1150,
		},
		Debt: models.DebtAnalysis{
			TotalExistingDebt:          32500,
			TotalMonthlyDebtPayments:   1000,
			DebtToIncomeRatio:          0.2,
			ProjectedDTI:               0.2755,
			DebtServiceCoverageRatio:   2.76,
			CreditUtilization:          25,
			DebtStructureAssessment:    "projected DTI 27.55% (good)",
			PaymentShockRisk:           models.GradeMedium,
			EstimatedNewMonthlyPayment: 377.42,
		},
		Collateral: models.CollateralEvaluation{
			CollateralType:      models.CollateralNone,
			LoanToValueRatio:    100,
			CollateralQuality:   models.QualityNone,
			ValuationConfidence: models.GradeLow,
			CollateralRisks:     []string{"Unsecured exposure"},
		},
		Risk: models.RiskAssessment{
			RiskLevel:            models.RiskVeryLow,
			RiskScore:            17,
			ProbabilityOfDefault: 0.93,
			LossGivenDefault:     70,
			ExpectedLoss:         129.5,
			RiskBreakdown: models.RiskBreakdown{
				CreditHistory: 76.36, IncomeStability: 100, DebtBurden: 90.82, Collateral: 25, Employment: 100,
			},
			BaselRiskWeight: 75,
		},
		Decision: models.CreditDecision{
			Decision:     models.DecisionApproved,
			DecisionDate: Now,
			Confidence:   91.5,
			LoanTerms:    &terms,
			NextSteps:    []string{"Sign the loan agreement"},
			ValidityDays: 30,
		},
	}
}

// FixedSuite returns analyzers that ignore their input and return out.
func FixedSuite(out Outputs) analyzers.Suite {
	return analyzers.Suite{
		Financial: analyzers.NewFunc(analyzers.FinancialCollector,
			func(context.Context, analyzers.FinancialInput) (models.FinancialSummary, error) {
				return out.Financial, nil
			}),
		Income: analyzers.NewFunc(analyzers.IncomeAnalyzer,
			func(context.Context, analyzers.IncomeInput) (models.IncomeAnalysis, error) {
				return out.Income, nil
			}),
		Debt: analyzers.NewFunc(analyzers.DebtAnalyzer,
			func(context.Context, analyzers.DebtInput) (models.DebtAnalysis, error) {
				return out.Debt, nil
			}),
		Collateral: analyzers.NewFunc(analyzers.CollateralEvaluator,
			func(context.Context, analyzers.CollateralInput) (models.CollateralEvaluation, error) {
				return out.Collateral, nil
			}),
		Risk: analyzers.NewFunc(analyzers.RiskScorer,
			func(context.Context, analyzers.RiskInput) (models.RiskAssessment, error) {
				return out.Risk, nil
			}),
		Decision: analyzers.NewFunc(analyzers.DecisionWriter,
			func(context.Context, analyzers.DecisionInput) (models.CreditDecision, error) {
				return out.Decision, nil
			}),
	}
}

// FailingDebt replaces the debt analyzer in s with one that always fails.
func FailingDebt(s analyzers.Suite, cause string) analyzers.Suite {
	s.Debt = analyzers.NewFunc(analyzers.DebtAnalyzer,
		func(context.Context, analyzers.DebtInput) (models.DebtAnalysis, error) {
			return models.DebtAnalysis{}, analyzers.Failf(analyzers.DebtAnalyzer, "%s", cause)
		})
	return s
}
