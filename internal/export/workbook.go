// =============================================================================
// ISA Atributo - Spreadsheet Export
// =============================================================================
//
// This module serializes audit records into an .xlsx report.
//
// REPORT STRUCTURE:
//   One sheet, one header row, one row per record. The first columns follow
//   the layout the freight audit team already works with; the remaining
//   columns carry every other field of the record.
//
//   | STATUS CONCILIACAO | NUMERO CTE | COD. COTAÇÃO | SOLTRANSP | ... | ARQUIVO FONTE | ... |
//   |--------------------|------------|--------------|-----------|-----|---------------|-----|
//   | Conciliado         | 123        | 3157725929   | 2026-0023 | ... | cte_123.xml   | ... |
//
// MONEY:
//   Monetary cells are written as text, "R$ " followed by the amount with a
//   comma decimal separator, matching the figures printed on the DACTE.
//
// =============================================================================

package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
)

// SheetName is the name of the single report sheet.
const SheetName = "Auditoria CT-e"

// maxCellLength is the largest text Excel accepts in one cell.
const maxCellLength = 32767

// =============================================================================
// COLUMN LAYOUT
// =============================================================================

// Column describes one report column.
type Column struct {
	Header string
	Width  float64
	Value  func(r *cte.AuditRecord) string
}

// Columns is the fixed report layout, in order.
var Columns = []Column{
	{"STATUS CONCILIACAO", 25, func(r *cte.AuditRecord) string { return r.Status().Label() }},
	{"NUMERO CTE", 15, func(r *cte.AuditRecord) string { return r.DocumentNumber }},
	{"COD. COTAÇÃO", 20, func(r *cte.AuditRecord) string { return r.QuotationCode }},
	{"SOLTRANSP", 20, func(r *cte.AuditRecord) string { return r.ManifestCode }},
	{"EMITENTE", 35, func(r *cte.AuditRecord) string { return r.IssuerName }},
	{"DESTINATARIO", 35, func(r *cte.AuditRecord) string { return r.RecipientName }},
	{"QUANTIDADE NF-e", 18, func(r *cte.AuditRecord) string { return strconv.Itoa(r.InvoiceCount()) }},
	{"NUMEROS NFES", 30, func(r *cte.AuditRecord) string { return r.Invoices() }},
	{"VALOR TOTAL (EMITIDO)", 25, money(func(r *cte.AuditRecord) decimal.Decimal { return r.DeclaredTotal })},
	{"VALOR AUDITADO (SOMA)", 25, money(func(r *cte.AuditRecord) decimal.Decimal { return r.ReconciledSum() })},
	{"DIFERENCA", 18, money(func(r *cte.AuditRecord) decimal.Decimal { return r.Difference() })},
	{"COMPONENTE FRETE PESO", 22, money(func(r *cte.AuditRecord) decimal.Decimal { return r.Components.FreightByWeight })},
	{"COMPONENTE FRETE GERAL", 22, money(func(r *cte.AuditRecord) decimal.Decimal { return r.Components.FreightGeneral })},
	{"FRETE CONSIDERADO", 22, money(func(r *cte.AuditRecord) decimal.Decimal { return r.Components.FinalFreight() })},
	{"COMPONENTE ICMS", 22, money(func(r *cte.AuditRecord) decimal.Decimal { return r.Components.ICMS })},
	{"COMPONENTE PEDAGIO", 22, money(func(r *cte.AuditRecord) decimal.Decimal { return r.Components.Toll })},
	{"COMPONENTE GRIS", 22, money(func(r *cte.AuditRecord) decimal.Decimal { return r.Components.Insurance })},
	{"VALOR LIQUIDO", 20, money(func(r *cte.AuditRecord) decimal.Decimal { return r.NetValue() })},
	{"REGIME ICMS", 14, func(r *cte.AuditRecord) string { return r.Tax.Regime }},
	{"BASE ICMS", 20, money(func(r *cte.AuditRecord) decimal.Decimal { return r.Tax.Base })},
	{"ALIQUOTA ICMS", 14, func(r *cte.AuditRecord) string { return cte.FormatAmount(r.Tax.Rate) }},
	{"VALOR ICMS", 20, money(func(r *cte.AuditRecord) decimal.Decimal { return r.Tax.Amount })},
	{"MUNICIPIO ORIGEM", 25, func(r *cte.AuditRecord) string { return r.OriginMunicipality }},
	{"UF ORIGEM", 10, func(r *cte.AuditRecord) string { return r.OriginState }},
	{"MUNICIPIO DESTINO", 25, func(r *cte.AuditRecord) string { return r.DestMunicipality }},
	{"UF DESTINO", 10, func(r *cte.AuditRecord) string { return r.DestState }},
	{"CFOP", 10, func(r *cte.AuditRecord) string { return r.CFOP }},
	{"TIPO OPERACAO", 20, (*cte.AuditRecord).OperationType},
	{"TIPO VEICULO", 20, (*cte.AuditRecord).VehicleType},
	{"TIPO COBRANCA", 20, (*cte.AuditRecord).BillingType},
	{"ROTA", 20, (*cte.AuditRecord).Route},
	{"CATEGORIA CARGA", 25, func(r *cte.AuditRecord) string { return r.CargoCategory }},
	{"CARACTERISTICAS ADICIONAIS", 30, func(r *cte.AuditRecord) string { return r.AdditionalCharacteristics }},
	{"OBSERVACAO (XOBS)", 50, func(r *cte.AuditRecord) string { return r.Observation }},
	{"CAMPOS ADICIONAIS", 50, additionalFields},
	{"CHAVE ACESSO CTE", 48, func(r *cte.AuditRecord) string { return r.AccessKey }},
	{"ARQUIVO FONTE", 25, func(r *cte.AuditRecord) string { return r.SourceFilename }},
	{"ID", 30, func(r *cte.AuditRecord) string { return r.ID }},
	{"XML ORIGINAL", 60, func(r *cte.AuditRecord) string { return truncate(r.RawXML, maxCellLength) }},
}

func money(get func(r *cte.AuditRecord) decimal.Decimal) func(r *cte.AuditRecord) string {
	return func(r *cte.AuditRecord) string {
		return "R$ " + cte.FormatAmount(get(r))
	}
}

// additionalFields renders the annotations as "name=value" pairs sorted by name.
func additionalFields(r *cte.AuditRecord) string {
	names := r.FieldNames()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+r.AdditionalFields[name])
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// =============================================================================
// WORKBOOK
// =============================================================================

// Build creates the report workbook. The caller must Close it.
func Build(records []*cte.AuditRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeHeader(f); err != nil {
		f.Close()
		return nil, err
	}

	for i, rec := range records {
		row := make([]interface{}, len(Columns))
		for c, col := range Columns {
			row[c] = col.Value(rec)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	return f, nil
}

func writeHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"B91C1C"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, col := range Columns {
		header[i] = col.Header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, col.Width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return nil
}

// Write streams the report for records to w.
func Write(w io.Writer, records []*cte.AuditRecord) error {
	f, err := Build(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveFile writes the report for records to path.
func SaveFile(path string, records []*cte.AuditRecord) error {
	f, err := Build(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return nil
}
