package cte

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// NotFound is the placeholder for text fields and mined codes that are absent
// from the document.
const NotFound = "N/A"

// InvoiceSeparator joins linked invoice numbers for display and export.
const InvoiceSeparator = " ; "

// ReconciliationTolerance is the largest drift between the declared total and
// the component sum that still counts as reconciled (exclusive). Components
// are rounded to cents independently, so a few cents of drift are expected.
var ReconciliationTolerance = decimal.New(5, -2)

// Status is the outcome of comparing the declared total with the component
// sum.
type Status int

const (
	StatusReconciled Status = iota
	StatusReconciliationError
)

func (s Status) String() string {
	if s == StatusReconciled {
		return "Reconciled"
	}
	return "ReconciliationError"
}

// Label is the status as shown to auditors.
func (s Status) Label() string {
	if s == StatusReconciled {
		return "Conciliado"
	}
	return "Erro na Conciliação"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Reconciled":
		*s = StatusReconciled
	case "ReconciliationError":
		*s = StatusReconciliationError
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Reconcile compares a component sum against the declared total.
func Reconcile(sum, declared decimal.Decimal) Status {
	if sum.Sub(declared).Abs().LessThan(ReconciliationTolerance) {
		return StatusReconciled
	}
	return StatusReconciliationError
}

// Components holds the classified cost components of the freight price.
type Components struct {
	FreightByWeight decimal.Decimal
	FreightGeneral  decimal.Decimal
	Toll            decimal.Decimal
	Insurance       decimal.Decimal
	ICMS            decimal.Decimal
}

// FinalFreight is the weight-based freight when present, the general freight
// otherwise.
func (c Components) FinalFreight() decimal.Decimal {
	if !c.FreightByWeight.IsZero() {
		return c.FreightByWeight
	}
	return c.FreightGeneral
}

// Sum is ICMS + toll + insurance + final freight.
func (c Components) Sum() decimal.Decimal {
	return c.ICMS.Add(c.Toll).Add(c.Insurance).Add(c.FinalFreight())
}

// Tax is the single ICMS regime group found in the document.
type Tax struct {
	// Regime is the element name of the group, e.g. "ICMS00". Empty when the
	// document carries none.
	Regime string
	Base   decimal.Decimal
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// AuditRecord is everything the audit extracts from one CT-e. Records are
// built once by the extractor and treated as read-only afterwards; the
// reconciliation figures are methods so they can never drift from the
// components they are derived from.
type AuditRecord struct {
	// ID is for display only; repeated imports of the same file get
	// different IDs. Use StableKey for identity.
	ID             string
	SourceFilename string

	DocumentNumber string
	AccessKey      string
	CFOP           string

	OriginMunicipality string
	OriginState        string
	DestMunicipality   string
	DestState          string

	IssuerName    string
	RecipientName string

	CargoCategory             string
	AdditionalCharacteristics string
	Observation               string

	DeclaredTotal decimal.Decimal
	Components    Components
	Tax           Tax

	LinkedInvoiceNumbers []string

	QuotationCode string
	ManifestCode  string

	AdditionalFields map[string]string

	RawXML string
}

// ReconciledSum is the sum of the stored components.
func (r *AuditRecord) ReconciledSum() decimal.Decimal {
	return r.Components.Sum()
}

// Status compares ReconciledSum with the declared total.
func (r *AuditRecord) Status() Status {
	return Reconcile(r.ReconciledSum(), r.DeclaredTotal)
}

// Difference is declared total minus reconciled sum.
func (r *AuditRecord) Difference() decimal.Decimal {
	return r.DeclaredTotal.Sub(r.ReconciledSum())
}

// NetValue is the declared total minus the ICMS amount.
func (r *AuditRecord) NetValue() decimal.Decimal {
	return r.DeclaredTotal.Sub(r.Tax.Amount)
}

// InvoiceCount is the number of linked invoices.
func (r *AuditRecord) InvoiceCount() int {
	return len(r.LinkedInvoiceNumbers)
}

// Invoices joins the linked invoice numbers in document order.
func (r *AuditRecord) Invoices() string {
	return strings.Join(r.LinkedInvoiceNumbers, InvoiceSeparator)
}

// StableKey identifies the document across imports.
func (r *AuditRecord) StableKey() string {
	return r.AccessKey + ":" + r.DocumentNumber
}

// Field returns an annotation value, or NotFound.
func (r *AuditRecord) Field(name string) string {
	if v, ok := r.AdditionalFields[name]; ok && v != "" {
		return v
	}
	return NotFound
}

func (r *AuditRecord) OperationType() string { return r.Field(FieldOperationType) }
func (r *AuditRecord) VehicleType() string   { return r.Field(FieldVehicleType) }
func (r *AuditRecord) BillingType() string   { return r.Field(FieldBillingType) }
func (r *AuditRecord) Route() string         { return r.Field(FieldRoute) }

// FieldNames returns the annotation names sorted.
func (r *AuditRecord) FieldNames() []string {
	names := make([]string, 0, len(r.AdditionalFields))
	for k := range r.AdditionalFields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
