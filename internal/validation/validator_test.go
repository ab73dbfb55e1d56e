package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
)

// validKey is a CT-e key for document 123 with a correct check digit.
const validKey = "35240198765432000111570010000001231000001236"

func validRecord() *cte.AuditRecord {
	return &cte.AuditRecord{
		SourceFilename: "cte_123.xml",
		DocumentNumber: "123",
		AccessKey:      validKey,
		CFOP:           "5353",
		OriginState:    "SP",
		DestState:      "PR",
		DeclaredTotal:  decimal.RequireFromString("1000.00"),
		Tax: cte.Tax{
			Regime: "ICMS00",
			Base:   decimal.RequireFromString("1000.00"),
			Rate:   decimal.RequireFromString("12.00"),
			Amount: decimal.RequireFromString("120.00"),
		},
	}
}

func rules(findings []*ValidationError) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Rule)
	}
	return out
}

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		digits string
		want   byte
	}{
		{"3524019876543200011157001000000123100000123", '6'},
		{"3524019876543200011157001000000001100000001", '6'},
		{"3524019876543200011155001000000123100000123", '9'},
	}
	for _, tt := range tests {
		assert.Equal(t, string(tt.want), string(CheckDigit(tt.digits)), tt.digits)
	}
}

func TestValidateRecord_Valid(t *testing.T) {
	assert.Empty(t, NewValidator().ValidateRecord(validRecord()))
}

func TestValidateRecord_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *cte.AuditRecord)
		want   []string
		sev    string
	}{
		{"MissingKey", func(r *cte.AuditRecord) { r.AccessKey = "" }, []string{RuleAccessKeyFormat}, SeverityError},
		{"ShortKey", func(r *cte.AuditRecord) { r.AccessKey = "123" }, []string{RuleAccessKeyFormat}, SeverityError},
		{"WrongDigit", func(r *cte.AuditRecord) { r.AccessKey = validKey[:43] + "0" }, []string{RuleAccessKeyDigit}, SeverityError},
		{"NFeModel", func(r *cte.AuditRecord) {
			r.AccessKey = "35240198765432000111550010000001231000001239"
		}, []string{RuleAccessKeyModel}, SeverityError},
		{"KeyNumberMismatch", func(r *cte.AuditRecord) { r.DocumentNumber = "124" }, []string{RuleAccessKeyNumber}, SeverityWarning},
		{"UnknownState", func(r *cte.AuditRecord) { r.DestState = "??" }, []string{RuleState}, SeverityWarning},
		{"MissingCFOP", func(r *cte.AuditRecord) { r.CFOP = cte.NotFound }, []string{RuleCFOP}, SeverityWarning},
		{"ShortCFOP", func(r *cte.AuditRecord) { r.CFOP = "535" }, []string{RuleCFOP}, SeverityWarning},
		{"ZeroTotal", func(r *cte.AuditRecord) { r.DeclaredTotal = decimal.Zero }, []string{RuleDeclaredTotal}, SeverityWarning},
		{"TaxRateOutOfRange", func(r *cte.AuditRecord) { r.Tax.Rate = decimal.NewFromInt(120) }, []string{RuleTaxRate}, SeverityWarning},
		{"TaxAmountMismatch", func(r *cte.AuditRecord) { r.Tax.Amount = decimal.RequireFromString("100.00") }, []string{RuleTaxAmount}, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)

			findings := NewValidator().ValidateRecord(rec)

			assert.Equal(t, tt.want, rules(findings))
			require.NotEmpty(t, findings)
			assert.Equal(t, tt.sev, findings[0].Severity)
			assert.Equal(t, "cte_123.xml", findings[0].SourceFilename)
		})
	}
}

func TestValidateRecord_TaxWithinTolerance(t *testing.T) {
	rec := validRecord()
	rec.Tax.Amount = decimal.RequireFromString("120.04")
	assert.Empty(t, NewValidator().ValidateRecord(rec))
}

func TestValidateRecord_NoTaxGroup(t *testing.T) {
	rec := validRecord()
	rec.Tax = cte.Tax{}
	assert.Empty(t, NewValidator().ValidateRecord(rec))
}

func TestValidateAll(t *testing.T) {
	warn := validRecord()
	warn.CFOP = "x"
	bad := validRecord()
	bad.AccessKey = ""

	result := NewValidator().ValidateAll([]*cte.AuditRecord{validRecord(), warn, bad})

	assert.False(t, result.IsValid)
	assert.Equal(t, 3, result.RecordsValidated)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.WarningCount)
	assert.Len(t, result.Errors, 2)
}

func TestValidateAll_WarningsAsErrors(t *testing.T) {
	warn := validRecord()
	warn.OriginState = "XX"

	opts := DefaultValidationOptions()
	assert.True(t, NewValidatorWithOptions(opts).ValidateAll([]*cte.AuditRecord{warn}).IsValid)

	opts.TreatWarningsAsErrors = true
	assert.False(t, NewValidatorWithOptions(opts).ValidateAll([]*cte.AuditRecord{warn}).IsValid)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	rec := validRecord()
	rec.CFOP = "1"
	findings := Validate([]*cte.AuditRecord{rec})

	assert.Contains(t, FormatErrors(findings), "1 finding(s)")
	assert.Contains(t, findings[0].Error(), "[WARNING] cte_123.xml, CT-e 123, Field 'CFOP'")
	assert.Equal(t, []string{"[warning] CFOP: CFOP must have 4 digits"}, Messages(findings))
}
