package view

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
)

func record(number, declared string) *cte.AuditRecord {
	return &cte.AuditRecord{
		DocumentNumber:     number,
		SourceFilename:     "cte_" + number + ".xml",
		AccessKey:          "35240198765432000111570010000001231000001234",
		OriginMunicipality: "SAO PAULO",
		OriginState:        "SP",
		DestMunicipality:   "CURITIBA",
		DestState:          "PR",
		RecipientName:      "ACME",
		DeclaredTotal:      decimal.RequireFromString(declared),
		Components: cte.Components{
			FreightGeneral: decimal.RequireFromString("90"),
			Toll:           decimal.RequireFromString("10"),
		},
		LinkedInvoiceNumbers: []string{"000001234"},
		AdditionalFields:     map[string]string{"Rota": "SP-PR"},
		Observation:          "Entrega agendada",
	}
}

func TestTable(t *testing.T) {
	out := Table([]*cte.AuditRecord{record("1", "100.00"), record("2", "150.00")})

	assert.Contains(t, out, "CT-E")
	assert.Contains(t, out, "SAO PAULO/SP → CURITIBA/PR")
	assert.Contains(t, out, "100,00")
	assert.Contains(t, out, "50,00")
	assert.Contains(t, out, "Conciliado")
	assert.Contains(t, out, "Erro na Conciliação")
	assert.Contains(t, out, "cte_2.xml")
}

func TestTable_Empty(t *testing.T) {
	assert.Contains(t, Table(nil), "STATUS")
}

func TestDetail(t *testing.T) {
	out := Detail(record("7", "100.00"))

	assert.Contains(t, out, "CT-e 7")
	assert.Contains(t, out, "Conciliado")
	assert.Contains(t, out, "35240198765432000111570010000001231000001234")
	assert.Contains(t, out, "NF-e vinculadas (1)")
	assert.Contains(t, out, "000001234")
	assert.Contains(t, out, "SP-PR")
	assert.Contains(t, out, "Entrega agendada")
	assert.Contains(t, out, "N/A", "missing tax regime")
}
