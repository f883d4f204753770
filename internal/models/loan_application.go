// internal/models/loan_application.go
package models

import (
	"fmt"
	"strings"
	"time"
)

type EmploymentType string

const (
	EmploymentEmployed     EmploymentType = "employed"
	EmploymentSelfEmployed EmploymentType = "self_employed"
	EmploymentContractor   EmploymentType = "contractor"
	EmploymentRetired      EmploymentType = "retired"
	EmploymentUnemployed   EmploymentType = "unemployed"
	EmploymentStudent      EmploymentType = "student"
)

type PaymentHistory string

const (
	PaymentHistoryExcellent PaymentHistory = "excellent"
	PaymentHistoryGood      PaymentHistory = "good"
	PaymentHistoryFair      PaymentHistory = "fair"
	PaymentHistoryPoor      PaymentHistory = "poor"
)

type CollateralType string

const (
	CollateralRealEstate          CollateralType = "real_estate"
	CollateralVehicle             CollateralType = "vehicle"
	CollateralSavings             CollateralType = "savings"
	CollateralInvestmentPortfolio CollateralType = "investment_portfolio"
	CollateralBusinessAssets      CollateralType = "business_assets"
	CollateralNone                CollateralType = "none"
)

type LoanPurpose string

const (
	PurposeMortgage          LoanPurpose = "mortgage"
	PurposeAuto              LoanPurpose = "auto"
	PurposePersonal          LoanPurpose = "personal"
	PurposeBusiness          LoanPurpose = "business"
	PurposeEducation         LoanPurpose = "education"
	PurposeDebtConsolidation LoanPurpose = "debt_consolidation"
	PurposeHomeImprovement   LoanPurpose = "home_improvement"
	PurposeOther             LoanPurpose = "other"
)

// Revolving debt types count toward credit utilization.
var revolvingDebtTypes = map[string]bool{
	"credit_card":    true,
	"revolving":      true,
	"line_of_credit": true,
	"overdraft":      true,
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// Accept full timestamps from clients that send them.
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
		}
	}
	d.Time = t.UTC()
	return nil
}

type ApplicantInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth Date   `json:"dateOfBirth"`
	Nationality string `json:"nationality"`
	TaxID       string `json:"taxId"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// AgeAt returns the applicant's age in whole years on the given day.
func (a ApplicantInfo) AgeAt(now time.Time) int {
	dob := a.DateOfBirth.Time
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

type EmploymentInfo struct {
	EmploymentType      EmploymentType `json:"employmentType"`
	EmployerName        string         `json:"employerName,omitempty"`
	JobTitle            string         `json:"jobTitle,omitempty"`
	Industry            string         `json:"industry,omitempty"`
	YearsEmployed       float64        `json:"yearsEmployed"`
	YearsInProfession   float64        `json:"yearsInProfession"`
	MonthlyGrossIncome  float64        `json:"monthlyGrossIncome"`
	MonthlyNetIncome    float64        `json:"monthlyNetIncome"`
	AdditionalIncome    float64        `json:"additionalIncome"`
	AdditionalIncomeSrc string         `json:"additionalIncomeSource,omitempty"`
	IncomeVerified      bool           `json:"incomeVerified"`
}

type ExistingDebt struct {
	DebtType        string         `json:"debtType"`
	Creditor        string         `json:"creditor"`
	OriginalAmount  float64        `json:"originalAmount"`
	CurrentBalance  float64        `json:"currentBalance"`
	MonthlyPayment  float64        `json:"monthlyPayment"`
	InterestRate    float64        `json:"interestRate"` // percent
	RemainingMonths int            `json:"remainingMonths"`
	IsSecured       bool           `json:"isSecured"`
	PaymentHistory  PaymentHistory `json:"paymentHistory"`
}

// IsRevolving reports whether the debt is a revolving credit line.
func (d ExistingDebt) IsRevolving() bool {
	return revolvingDebtTypes[strings.ToLower(d.DebtType)]
}

type CollateralInfo struct {
	CollateralType    CollateralType `json:"collateralType"`
	Description       string         `json:"description,omitempty"`
	EstimatedValue    float64        `json:"estimatedValue"`
	ValuationDate     Date           `json:"valuationDate"`
	ValuationSource   string         `json:"valuationSource,omitempty"`
	Encumbrances      float64        `json:"encumbrances"`
	InsuranceCoverage float64        `json:"insuranceCoverage"`
}

// NetValue is the estimated value minus existing liens.
func (c CollateralInfo) NetValue() float64 {
	return c.EstimatedValue - c.Encumbrances
}

type LoanRequest struct {
	Purpose             LoanPurpose `json:"purpose"`
	RequestedAmount     float64     `json:"requestedAmount"`
	RequestedTermMonths int         `json:"requestedTermMonths"`
	PreferredPaymentDay int         `json:"preferredPaymentDay,omitempty"`
	Description         string      `json:"description,omitempty"`
}

type CreditHistory struct {
	CreditScore         int     `json:"creditScore"`
	CreditScoreSource   string  `json:"creditScoreSource,omitempty"`
	NumberOfAccounts    int     `json:"numberOfAccounts"`
	NumberClosed        int     `json:"numberClosedAccounts"`
	OldestAccountYears  float64 `json:"oldestAccountYears"`
	RecentInquiries     int     `json:"recentInquiries"`
	Delinquencies30Days int     `json:"delinquencies30Days"`
	Delinquencies60Days int     `json:"delinquencies60Days"`
	Delinquencies90Days int     `json:"delinquencies90Days"`
	Bankruptcies        int     `json:"bankruptcies"`
	Foreclosures        int     `json:"foreclosures"`
	Collections         int     `json:"collections"`
}

// LoanApplication is the immutable input to an assessment run.
type LoanApplication struct {
	ApplicationID string          `json:"applicationId,omitempty"`
	SubmittedAt   time.Time       `json:"submittedAt"`
	Channel       string          `json:"channel,omitempty"`
	Applicant     ApplicantInfo   `json:"applicant"`
	Employment    EmploymentInfo  `json:"employment"`
	ExistingDebts []ExistingDebt  `json:"existingDebts"`
	Collateral    *CollateralInfo `json:"collateral,omitempty"`
	LoanRequest   LoanRequest     `json:"loanRequest"`
	CreditHistory CreditHistory   `json:"creditHistory"`
}

func (a *LoanApplication) FullName() string {
	return strings.TrimSpace(a.Applicant.FirstName + " " + a.Applicant.LastName)
}

// TotalMonthlyIncome is gross employment income plus additional income.
func (a *LoanApplication) TotalMonthlyIncome() float64 {
	return a.Employment.MonthlyGrossIncome + a.Employment.AdditionalIncome
}

func (a *LoanApplication) TotalMonthlyDebtPayments() float64 {
	var total float64
	for _, d := range a.ExistingDebts {
		total += d.MonthlyPayment
	}
	return total
}

func (a *LoanApplication) TotalExistingDebt() float64 {
	var total float64
	for _, d := range a.ExistingDebts {
		total += d.CurrentBalance
	}
	return total
}

func (a *LoanApplication) HasCollateral() bool {
	return a.Collateral != nil && a.Collateral.CollateralType != CollateralNone && a.Collateral.EstimatedValue > 0
}

// StructuralIssues lists field-level constraint violations: ranges and
// enumerations a payload must satisfy before business validation applies.
func (a *LoanApplication) StructuralIssues(now time.Time) []string {
	var issues []string

	if strings.TrimSpace(a.Applicant.FirstName) == "" || strings.TrimSpace(a.Applicant.LastName) == "" {
		issues = append(issues, "Applicant name is required")
	}
	if a.Applicant.DateOfBirth.IsZero() {
		issues = append(issues, "Applicant date of birth is required")
	} else if age := a.Applicant.AgeAt(now); age < 18 || age > 100 {
		issues = append(issues, fmt.Sprintf("Applicant age must be between 18 and 100, got %d", age))
	}

	switch a.Employment.EmploymentType {
	case EmploymentEmployed, EmploymentSelfEmployed, EmploymentContractor,
		EmploymentRetired, EmploymentUnemployed, EmploymentStudent:
	default:
		issues = append(issues, fmt.Sprintf("Unknown employment type %q", a.Employment.EmploymentType))
	}
	if a.Employment.MonthlyGrossIncome <= 0 || a.Employment.MonthlyNetIncome <= 0 {
		issues = append(issues, "Monthly gross and net income must be positive")
	}
	if a.Employment.YearsEmployed < 0 || a.Employment.YearsInProfession < 0 || a.Employment.AdditionalIncome < 0 {
		issues = append(issues, "Employment tenure and additional income cannot be negative")
	}

	for i, d := range a.ExistingDebts {
		if d.InterestRate < 0 || d.InterestRate > 100 {
			issues = append(issues, fmt.Sprintf("Existing debt %d: interest rate must be between 0 and 100", i+1))
		}
		if d.CurrentBalance < 0 || d.MonthlyPayment < 0 || d.OriginalAmount < 0 {
			issues = append(issues, fmt.Sprintf("Existing debt %d: amounts cannot be negative", i+1))
		}
		switch d.PaymentHistory {
		case PaymentHistoryExcellent, PaymentHistoryGood, PaymentHistoryFair, PaymentHistoryPoor:
		default:
			issues = append(issues, fmt.Sprintf("Existing debt %d: unknown payment history %q", i+1, d.PaymentHistory))
		}
	}

	if c := a.Collateral; c != nil {
		switch c.CollateralType {
		case CollateralRealEstate, CollateralVehicle, CollateralSavings,
			CollateralInvestmentPortfolio, CollateralBusinessAssets, CollateralNone:
		default:
			issues = append(issues, fmt.Sprintf("Unknown collateral type %q", c.CollateralType))
		}
		if c.EstimatedValue < 0 || c.Encumbrances < 0 || c.InsuranceCoverage < 0 {
			issues = append(issues, "Collateral amounts cannot be negative")
		}
	}

	switch a.LoanRequest.Purpose {
	case PurposeMortgage, PurposeAuto, PurposePersonal, PurposeBusiness, PurposeEducation,
		PurposeDebtConsolidation, PurposeHomeImprovement, PurposeOther:
	default:
		issues = append(issues, fmt.Sprintf("Unknown loan purpose %q", a.LoanRequest.Purpose))
	}
	if a.LoanRequest.RequestedTermMonths > 480 {
		issues = append(issues, "Requested term cannot exceed 480 months")
	}
	if d := a.LoanRequest.PreferredPaymentDay; d != 0 && (d < 1 || d > 28) {
		issues = append(issues, "Preferred payment day must be between 1 and 28")
	}

	ch := a.CreditHistory
	if ch.RecentInquiries < 0 || ch.Delinquencies30Days < 0 || ch.Delinquencies60Days < 0 ||
		ch.Delinquencies90Days < 0 || ch.Bankruptcies < 0 || ch.Foreclosures < 0 || ch.Collections < 0 {
		issues = append(issues, "Credit history counts cannot be negative")
	}

	return issues
}
