package fund

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports every constraint a rule configuration violates.
// Nothing is persisted when validation fails.
type ValidationError struct {
	Errors []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule: %s", strings.Join(e.Errors, "; "))
}

// IsValidationError reports whether err is a ValidationError.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateRule checks a rule configuration and returns a ValidationError
// listing every violated constraint, or nil if the rule is well formed.
func ValidateRule(r Rule) error {
	var errs []string

	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "rule name is required")
	}
	if !ValidRuleTypes[r.Type] {
		errs = append(errs, fmt.Sprintf("unknown rule type %q", r.Type))
	}
	if !ValidTriggerTypes[r.Trigger] {
		errs = append(errs, fmt.Sprintf("unknown trigger type %q", r.Trigger))
	}

	switch r.Type {
	case RuleFixedAmount:
		if !r.Config.Amount.IsPositive() {
			errs = append(errs, "fixed amount rules require a positive amount")
		}
	case RulePercentage:
		if !r.Config.Percentage.IsPositive() || r.Config.Percentage.GreaterThan(hundred) {
			errs = append(errs, "percentage rules require a percentage between 0 and 100")
		}
	case RuleConditional:
		if len(r.Config.Conditions) == 0 {
			errs = append(errs, "conditional rules require at least one condition")
		}
	case RulePriorityFill:
		if r.Config.TargetID == "" {
			errs = append(errs, "priority fill rules require a target envelope")
		}
	}

	if r.Config.TargetType == TargetEnvelope && r.Config.TargetID == "" {
		errs = append(errs, "single envelope rules require a target envelope")
	}
	if r.Config.TargetType == TargetMultiple && len(r.Config.TargetIDs) == 0 {
		errs = append(errs, "multiple envelope rules require at least one target envelope")
	}

	for i, cond := range r.Config.Conditions {
		for _, msg := range validateCondition(cond) {
			errs = append(errs, fmt.Sprintf("condition %d: %s", i+1, msg))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ValidateCondition checks a single condition configuration.
func ValidateCondition(c Condition) error {
	if errs := validateCondition(c); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateCondition(c Condition) []string {
	var errs []string

	if !ValidConditionTypes[c.Type] {
		errs = append(errs, fmt.Sprintf("unknown condition type %q", c.Type))
		return errs
	}

	switch c.Type {
	case CondBalanceLessThan, CondBalanceGreaterThan, CondUnassignedAbove:
		if c.Value.IsNegative() {
			errs = append(errs, "balance conditions require a non-negative value")
		}
	case CondDateRange:
		if c.StartDate == nil || c.EndDate == nil {
			errs = append(errs, "date range conditions require both start and end dates")
		} else if !c.StartDate.Before(*c.EndDate) {
			errs = append(errs, "start date must be before end date")
		}
	case CondTransactionAmount:
		if !ValidOperators[c.Operator] {
			errs = append(errs, "transaction amount conditions require a valid operator")
		}
	}

	return errs
}
