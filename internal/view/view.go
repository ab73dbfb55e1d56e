// Package view renders audit records for the terminal: a list of the batch
// and a detail card for one record.
package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
)

var (
	okColor    = lipgloss.Color("2")
	errorColor = lipgloss.Color("1")
	dimColor   = lipgloss.Color("8")

	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(dimColor).Width(22)
	sectionStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func statusStyle(s cte.Status) lipgloss.Style {
	if s == cte.StatusReconciled {
		return lipgloss.NewStyle().Foreground(okColor)
	}
	return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
}

// Table lists records one per row with their reconciliation outcome.
func Table(records []*cte.AuditRecord) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(dimColor)).
		Headers("CT-E", "ROTA", "DESTINATARIO", "EMITIDO", "AUDITADO", "DIFERENCA", "STATUS", "ARQUIVO")

	for _, rec := range records {
		t.Row(
			rec.DocumentNumber,
			fmt.Sprintf("%s/%s → %s/%s", rec.OriginMunicipality, rec.OriginState, rec.DestMunicipality, rec.DestState),
			rec.RecipientName,
			cte.FormatAmount(rec.DeclaredTotal),
			cte.FormatAmount(rec.ReconciledSum()),
			cte.FormatAmount(rec.Difference()),
			rec.Status().Label(),
			rec.SourceFilename,
		)
	}

	const statusCol = 6
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == statusCol && row >= 0 && row < len(records) {
			return statusStyle(records[row].Status()).Padding(0, 1)
		}
		return cellStyle
	})

	return t.Render()
}

// Detail renders every field of one record.
func Detail(rec *cte.AuditRecord) string {
	var b strings.Builder

	status := rec.Status()
	b.WriteString(titleStyle.Render("CT-e "+rec.DocumentNumber) + "  " + statusStyle(status).Render(status.Label()))
	b.WriteString("\n")

	line := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	section := func(title string) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
	}

	line("Chave", rec.AccessKey)
	line("Arquivo", rec.SourceFilename)
	line("CFOP", rec.CFOP)
	line("Emitente", rec.IssuerName)
	line("Destinatário", rec.RecipientName)
	line("Origem", rec.OriginMunicipality+"/"+rec.OriginState)
	line("Destino", rec.DestMunicipality+"/"+rec.DestState)
	line("Cotação", rec.QuotationCode)
	line("SOLTRANSP", rec.ManifestCode)

	section("Conciliação")
	line("Valor emitido", cte.FormatAmount(rec.DeclaredTotal))
	line("Frete peso", cte.FormatAmount(rec.Components.FreightByWeight))
	line("Frete geral", cte.FormatAmount(rec.Components.FreightGeneral))
	line("Frete considerado", cte.FormatAmount(rec.Components.FinalFreight()))
	line("Pedágio", cte.FormatAmount(rec.Components.Toll))
	line("GRIS / seguro", cte.FormatAmount(rec.Components.Insurance))
	line("ICMS (componente)", cte.FormatAmount(rec.Components.ICMS))
	line("Soma auditada", cte.FormatAmount(rec.ReconciledSum()))
	line("Diferença", cte.FormatAmount(rec.Difference()))
	line("Valor líquido", cte.FormatAmount(rec.NetValue()))

	section("ICMS")
	regime := rec.Tax.Regime
	if regime == "" {
		regime = cte.NotFound
	}
	line("Regime", regime)
	line("Base", cte.FormatAmount(rec.Tax.Base))
	line("Alíquota", cte.FormatAmount(rec.Tax.Rate))
	line("Valor", cte.FormatAmount(rec.Tax.Amount))

	section(fmt.Sprintf("NF-e vinculadas (%d)", rec.InvoiceCount()))
	if rec.InvoiceCount() > 0 {
		b.WriteString(rec.Invoices())
		b.WriteString("\n")
	}

	section("Carga")
	line("Categoria", rec.CargoCategory)
	line("Características", rec.AdditionalCharacteristics)
	line("Tipo de operação", rec.OperationType())
	line("Tipo de veículo", rec.VehicleType())
	line("Tipo de cobrança", rec.BillingType())
	line("Rota", rec.Route())

	if names := rec.FieldNames(); len(names) > 0 {
		section("Campos adicionais")
		for _, name := range names {
			line(name, rec.AdditionalFields[name])
		}
	}

	section("Observação")
	b.WriteString(rec.Observation)

	return cardStyle.Render(b.String())
}
