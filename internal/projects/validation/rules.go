package validation

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// DefaultBudgetTolerance is the accepted relative deviation between a
// project budget and its quotation total.
const DefaultBudgetTolerance = 0.10

const (
	RuleQuotationStatus     = "quotation_status"
	RuleCustomerConsistency = "customer_consistency"
	RuleProjectManager      = "project_manager_assigned"
	RuleDuplicateProject    = "duplicate_project"
	RuleBudgetConsistency   = "budget_consistency"
	RuleDirectEntryApproval = "direct_entry_approval"
	RuleBudgetPositive      = "budget_positive"
)

// DefaultRules returns the project creation rules in display order.
func DefaultRules(budgetTolerance float64) []Rule {
	if budgetTolerance < 0 {
		budgetTolerance = DefaultBudgetTolerance
	}

	return []Rule{
		{
			ID:          RuleQuotationStatus,
			Name:        "Quotation status check",
			Description: "Projects created from a quotation require the quotation to be approved.",
			Severity:    SeverityError,
			Check: func(s Subject) bool {
				if !s.fromQuotation() {
					return true
				}
				return s.Quotation != nil && s.Quotation.Status == QuotationApproved
			},
			Message: func(s Subject) string {
				switch {
				case s.Request.QuotationID == nil:
					return "A quotation reference is required for quotation-based projects."
				case s.Quotation == nil:
					return "The referenced quotation does not exist."
				default:
					return fmt.Sprintf("Quotation must be approved before creating a project (current status: %s).", s.Quotation.Status)
				}
			},
		},
		{
			ID:          RuleCustomerConsistency,
			Name:        "Customer consistency",
			Description: "The project customer must match the quotation customer.",
			Severity:    SeverityError,
			Check: func(s Subject) bool {
				if !s.fromQuotation() || s.Quotation == nil {
					return true
				}
				return s.Request.CustomerID == s.Quotation.CustomerID
			},
			Message: func(Subject) string {
				return "The selected customer does not match the quotation's customer."
			},
		},
		{
			ID:          RuleProjectManager,
			Name:        "Project manager assigned",
			Description: "Every project needs a responsible project manager.",
			Severity:    SeverityError,
			Check: func(s Subject) bool {
				return s.Request.ProjectManagerID != nil && *s.Request.ProjectManagerID != uuid.Nil
			},
			Message: func(Subject) string {
				return "A project manager must be assigned."
			},
		},
		{
			ID:          RuleDuplicateProject,
			Name:        "Duplicate project prevention",
			Description: "A quotation can be turned into at most one project.",
			Severity:    SeverityError,
			Check: func(s Subject) bool {
				return s.Duplicate == nil
			},
			Message: func(s Subject) string {
				return fmt.Sprintf("A project already exists for this quotation (project %s).", s.Duplicate.ID)
			},
		},
		{
			ID:          RuleBudgetConsistency,
			Name:        "Budget consistency",
			Description: "The project budget should stay close to the quotation total.",
			Severity:    SeverityWarning,
			Check: func(s Subject) bool {
				if !s.fromQuotation() || s.Quotation == nil {
					return true
				}
				return budgetWithinTolerance(s.Request.Budget, s.Quotation.TotalAmount, budgetTolerance)
			},
			Message: func(s Subject) string {
				return fmt.Sprintf("Budget %.2f deviates more than %.0f%% from the quotation total %.2f.",
					s.Request.Budget, budgetTolerance*100, s.Quotation.TotalAmount)
			},
		},
		{
			ID:          RuleDirectEntryApproval,
			Name:        "Direct-entry approval",
			Description: "Projects created without a quotation should be approved by a manager.",
			Severity:    SeverityWarning,
			Check: func(s Subject) bool {
				return s.Request.SourceType != SourceDirect
			},
			Message: func(Subject) string {
				return "Direct project entry without a quotation: manager approval is advisable."
			},
		},
		{
			ID:          RuleBudgetPositive,
			Name:        "Budget set",
			Description: "A project without a positive budget is flagged for review.",
			Severity:    SeverityInfo,
			Check: func(s Subject) bool {
				return s.Request.Budget > 0
			},
			Message: func(Subject) string {
				return "No positive budget has been entered for this project."
			},
		},
	}
}

// budgetWithinTolerance compares relative deviation against tolerance. A
// non-positive total only accepts a zero budget.
func budgetWithinTolerance(budget, total, tolerance float64) bool {
	if total <= 0 {
		return budget == 0
	}
	return math.Abs(budget-total)/total <= tolerance
}

// Evaluate runs every rule against subject. Failures keep the order of rules.
func Evaluate(rules []Rule, subject Subject) Result {
	result := Result{
		IsValid:  true,
		Errors:   []Issue{},
		Warnings: []Issue{},
		Infos:    []Issue{},
	}

	for _, rule := range rules {
		if rule.Check(subject) {
			continue
		}
		issue := Issue{RuleID: rule.ID, Name: rule.Name, Severity: rule.Severity, Message: rule.Name}
		if rule.Message != nil {
			issue.Message = rule.Message(subject)
		}

		switch rule.Severity {
		case SeverityError:
			result.IsValid = false
			result.Errors = append(result.Errors, issue)
		case SeverityWarning:
			result.Warnings = append(result.Warnings, issue)
		default:
			result.Infos = append(result.Infos, issue)
		}
	}

	return result
}
