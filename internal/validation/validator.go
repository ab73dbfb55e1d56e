// =============================================================================
// ISA Atributo - Validation Engine
// =============================================================================
//
// This module checks the internal consistency of extracted audit records.
// Reconciliation answers "do the components add up"; validation answers
// "does the document look like a well-formed CT-e":
//   - Access key: 44 digits, model 57, valid check digit, matches nCT
//   - States: known UF codes
//   - CFOP: four digits
//   - Declared total: greater than zero
//   - ICMS: base x rate matches the tax amount
//
// ERROR HANDLING:
//   - Findings are collected, never returned as Go errors
//   - Each finding carries the source file, document and field
//   - "error" findings mean the document is likely corrupt or not a CT-e;
//     "warning" findings are worth a look but are common in real files
//   - Validation never removes a record from the report
//
// =============================================================================

package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleAccessKeyFormat = "access_key_format"
	RuleAccessKeyModel  = "access_key_model"
	RuleAccessKeyDigit  = "access_key_check_digit"
	RuleAccessKeyNumber = "access_key_document_number"
	RuleDocumentNumber  = "document_number"
	RuleState           = "state"
	RuleCFOP            = "cfop"
	RuleDeclaredTotal   = "declared_total"
	RuleTaxRate         = "tax_rate"
	RuleTaxAmount       = "tax_amount"
)

// cteModel is the document model code embedded in every CT-e access key.
const cteModel = "57"

// ValidationError represents a single finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the record field that failed validation.
	Field string

	// Value is the offending value.
	Value string

	// Rule is the rule that was violated.
	Rule string

	// Message is a human-readable message.
	Message string

	// SourceFilename and DocumentNumber locate the record.
	SourceFilename string
	DocumentNumber string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s, CT-e %s, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.SourceFilename,
		e.DocumentNumber,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validating a batch.
type ValidationResult struct {
	// IsValid is true if there are no "error" findings.
	IsValid bool

	// Errors contains all findings, warnings included, in record order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// RecordsValidated is the number of records checked.
	RecordsValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks audit records.
type Validator struct {
	options ValidationOptions
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TaxTolerance is the accepted gap between base x rate and the ICMS
	// amount. Default: cte.ReconciliationTolerance
	TaxTolerance decimal.Decimal

	// TreatWarningsAsErrors makes IsValid false on any warning.
	TreatWarningsAsErrors bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		TaxTolerance: cte.ReconciliationTolerance,
	}
}

// NewValidator creates a Validator with the default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks all records with the default options.
//
// PARAMETERS:
//   - records: The records to validate.
//
// RETURNS:
//   - A slice of findings, empty when everything checks out.
func Validate(records []*cte.AuditRecord) []*ValidationError {
	return NewValidator().ValidateAll(records).Errors
}

// ValidateAll checks all records and returns a detailed result.
func (v *Validator) ValidateAll(records []*cte.AuditRecord) *ValidationResult {
	result := &ValidationResult{
		IsValid:          true,
		Errors:           make([]*ValidationError, 0),
		RecordsValidated: len(records),
	}

	for _, rec := range records {
		for _, err := range v.ValidateRecord(rec) {
			result.Errors = append(result.Errors, err)

			if err.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false
			} else {
				result.WarningCount++
				if v.options.TreatWarningsAsErrors {
					result.IsValid = false
				}
			}
		}
	}

	return result
}

// ValidateRecord checks a single record.
func (v *Validator) ValidateRecord(rec *cte.AuditRecord) []*ValidationError {
	var findings []*ValidationError
	add := func(severity, field, value, rule, message string) {
		findings = append(findings, &ValidationError{
			Severity:       severity,
			Field:          field,
			Value:          value,
			Rule:           rule,
			Message:        message,
			SourceFilename: rec.SourceFilename,
			DocumentNumber: rec.DocumentNumber,
		})
	}

	// Document number.
	if _, err := strconv.Atoi(rec.DocumentNumber); err != nil {
		add(SeverityWarning, "nCT", rec.DocumentNumber, RuleDocumentNumber, "Document number is missing or not numeric")
	}

	// Access key.
	if msg := validateAccessKey(rec.AccessKey); msg != "" {
		add(SeverityError, "chave", rec.AccessKey, RuleAccessKeyFormat, msg)
	} else {
		if model := rec.AccessKey[20:22]; model != cteModel {
			add(SeverityError, "chave", rec.AccessKey, RuleAccessKeyModel,
				fmt.Sprintf("Access key model is %s, expected %s", model, cteModel))
		}
		if want := CheckDigit(rec.AccessKey[:43]); rec.AccessKey[43] != want {
			add(SeverityError, "chave", rec.AccessKey, RuleAccessKeyDigit,
				fmt.Sprintf("Access key check digit is %c, expected %c", rec.AccessKey[43], want))
		}
		if !sameNumber(rec.AccessKey[25:34], rec.DocumentNumber) {
			add(SeverityWarning, "chave", rec.AccessKey, RuleAccessKeyNumber,
				fmt.Sprintf("Access key carries document number %s", strings.TrimLeft(rec.AccessKey[25:34], "0")))
		}
	}

	// States.
	if !IsState(rec.OriginState) {
		add(SeverityWarning, "UFIni", rec.OriginState, RuleState, "Unknown origin state")
	}
	if !IsState(rec.DestState) {
		add(SeverityWarning, "UFFim", rec.DestState, RuleState, "Unknown destination state")
	}

	// CFOP.
	if msg := validateCFOP(rec.CFOP); msg != "" {
		add(SeverityWarning, "CFOP", rec.CFOP, RuleCFOP, msg)
	}

	// Declared total.
	if !rec.DeclaredTotal.IsPositive() {
		add(SeverityWarning, "vTPrest", cte.FormatAmount(rec.DeclaredTotal), RuleDeclaredTotal, "Declared total is not greater than zero")
	}

	// Tax.
	if rec.Tax.Regime != "" {
		if rec.Tax.Rate.IsNegative() || rec.Tax.Rate.GreaterThan(decimal.NewFromInt(100)) {
			add(SeverityWarning, "pICMS", cte.FormatAmount(rec.Tax.Rate), RuleTaxRate, "ICMS rate outside 0-100")
		} else if !rec.Tax.Base.IsZero() {
			expected := rec.Tax.Base.Mul(rec.Tax.Rate).Div(decimal.NewFromInt(100)).Round(2)
			if expected.Sub(rec.Tax.Amount).Abs().GreaterThan(v.options.TaxTolerance) {
				add(SeverityWarning, "vICMS", cte.FormatAmount(rec.Tax.Amount), RuleTaxAmount,
					fmt.Sprintf("ICMS amount differs from base x rate (%s)", cte.FormatAmount(expected)))
			}
		}
	}

	return findings
}

// =============================================================================
// FIELD VALIDATORS
// =============================================================================

// states lists the federative units accepted in UFIni/UFFim. "EX" marks
// foreign origin or destination.
var states = map[string]bool{
	"AC": true, "AL": true, "AM": true, "AP": true, "BA": true, "CE": true,
	"DF": true, "ES": true, "GO": true, "MA": true, "MG": true, "MS": true,
	"MT": true, "PA": true, "PB": true, "PE": true, "PI": true, "PR": true,
	"RJ": true, "RN": true, "RO": true, "RR": true, "RS": true, "SC": true,
	"SE": true, "SP": true, "TO": true, "EX": true,
}

// IsState reports whether uf is a known state code.
func IsState(uf string) bool {
	return states[strings.ToUpper(uf)]
}

// CheckDigit computes the modulo-11 check digit of the first 43 digits of
// an access key. Weights run 2..9 from the rightmost digit and wrap; a
// remainder of 0 or 1 yields '0'.
func CheckDigit(digits string) byte {
	sum, weight := 0, 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	rem := sum % 11
	if rem < 2 {
		return '0'
	}
	return byte('0' + 11 - rem)
}

func validateAccessKey(key string) string {
	if key == "" {
		return "Access key is missing"
	}
	if len(key) != 44 {
		return fmt.Sprintf("Access key has %d digits, expected 44", len(key))
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return "Access key must contain only digits"
		}
	}
	return ""
}

func validateCFOP(cfop string) string {
	if cfop == "" || cfop == cte.NotFound {
		return "CFOP is missing"
	}
	if len(cfop) != 4 {
		return "CFOP must have 4 digits"
	}
	if _, err := strconv.Atoi(cfop); err != nil {
		return "CFOP must be numeric"
	}
	return ""
}

func sameNumber(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	return errA == nil && errB == nil && x == y
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// Messages returns one line per finding, for API responses.
func Messages(errors []*ValidationError) []string {
	out := make([]string, 0, len(errors))
	for _, err := range errors {
		out = append(out, fmt.Sprintf("[%s] %s: %s", err.Severity, err.Field, err.Message))
	}
	return out
}

// FormatErrors formats findings for display or logging.
//
// PARAMETERS:
//   - errors: The findings to format.
//
// RETURNS:
//   - A formatted string containing all findings.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
