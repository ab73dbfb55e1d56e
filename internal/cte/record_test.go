package cte

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComponents_FinalFreight(t *testing.T) {
	tests := []struct {
		name    string
		weight  string
		general string
		want    string
	}{
		{"WeightWins", "10.00", "5.00", "10"},
		{"GeneralWhenWeightZero", "0", "5.00", "5"},
		{"BothZero", "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Components{FreightByWeight: dec(tt.weight), FreightGeneral: dec(tt.general)}
			assert.True(t, c.FinalFreight().Equal(dec(tt.want)), "got %s", c.FinalFreight())
		})
	}
}

func TestComponents_Sum(t *testing.T) {
	c := Components{
		FreightByWeight: dec("10.00"),
		FreightGeneral:  dec("5.00"),
		Toll:            dec("1.10"),
		Insurance:       dec("0.20"),
		ICMS:            dec("1.35"),
	}
	assert.Equal(t, "12,65", FormatAmount(c.Sum()), "general freight ignored when weight freight present")
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		sum      string
		declared string
		want     Status
	}{
		{"Equal", "100.00", "100.00", StatusReconciled},
		{"FourCentsOver", "100.04", "100.00", StatusReconciled},
		{"FourCentsUnder", "99.96", "100.00", StatusReconciled},
		{"ExactlyFiveCents", "100.05", "100.00", StatusReconciliationError},
		{"ExactlyFiveCentsUnder", "99.95", "100.00", StatusReconciliationError},
		{"FarOff", "50.00", "100.00", StatusReconciliationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(dec(tt.sum), dec(tt.declared)))
		})
	}
}

func TestAuditRecord_StatusRoundTrip(t *testing.T) {
	rec, err := Parse("rt.xml", []byte(defaultFixture().xml()))
	if !assert.NoError(t, err) {
		return
	}

	copied := Components{
		FreightByWeight: ParseAmount(FormatAmount(rec.Components.FreightByWeight)),
		FreightGeneral:  ParseAmount(FormatAmount(rec.Components.FreightGeneral)),
		Toll:            ParseAmount(FormatAmount(rec.Components.Toll)),
		Insurance:       ParseAmount(FormatAmount(rec.Components.Insurance)),
		ICMS:            ParseAmount(FormatAmount(rec.Components.ICMS)),
	}
	assert.True(t, copied.Sum().Equal(rec.ReconciledSum()))
	assert.Equal(t, rec.Status(), Reconcile(copied.Sum(), ParseAmount(FormatAmount(rec.DeclaredTotal))))
}

func TestStatus_Text(t *testing.T) {
	assert.Equal(t, "Reconciled", StatusReconciled.String())
	assert.Equal(t, "ReconciliationError", StatusReconciliationError.String())
	assert.Equal(t, "Conciliado", StatusReconciled.Label())
	assert.Equal(t, "Erro na Conciliação", StatusReconciliationError.Label())

	b, err := StatusReconciliationError.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "ReconciliationError", string(b))

	var s Status
	assert.NoError(t, s.UnmarshalText(b))
	assert.Equal(t, StatusReconciliationError, s)
	assert.Error(t, s.UnmarshalText([]byte("Conciliado")))
}

func TestNormalizeLabel(t *testing.T) {
	for _, label := range []string{"Pedágio", "PEDAGIO", "pedagio ", " PEDÁGIO"} {
		assert.Equal(t, "pedagio", NormalizeLabel(label), label)
		assert.Equal(t, bucketToll, classify(label), label)
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]bucket{
		"Frete Peso":      bucketFreightByWeight,
		"FRETE-PESO":      bucketFreightByWeight,
		"FreteMercadoria": bucketFreightByWeight,
		"FRETE":           bucketFreightGeneral,
		"GRIS":            bucketInsurance,
		"Seguro":          bucketInsurance,
		"ADV":             bucketInsurance,
		"ICMS":            bucketICMS,
		"TAXA DE ENTREGA": bucketNone,
		"frete valor":     bucketNone,
	}
	for label, want := range tests {
		assert.Equal(t, want, classify(label), label)
	}
}

func TestComponents_AddLastWinsAndIgnoresUnknown(t *testing.T) {
	var c Components
	c.add("GRIS", "10.00")
	c.add("ADV", "2.50")
	c.add("TDE", "99.00")
	c.add("Pedágio", "not-a-number")

	assert.Equal(t, "2,50", FormatAmount(c.Insurance), "ADV replaces GRIS in the insurance bucket")
	assert.True(t, c.Toll.IsZero())
	assert.Equal(t, "2,50", FormatAmount(c.Sum()))
}

func TestComponents_RepeatedBucketChangesStatus(t *testing.T) {
	var c Components
	c.add("GRIS", "10.00")
	c.add("ADV", "5.00")
	c.add("FRETE", "85.00")

	assert.Equal(t, "5,00", FormatAmount(c.Insurance))
	assert.Equal(t, "90,00", FormatAmount(c.Sum()))
	assert.Equal(t, StatusReconciliationError, Reconcile(c.Sum(), dec("100.00")))
}

func TestQuotationCode(t *testing.T) {
	assert.Equal(t, "3157725929", QuotationCode("Cotação 3157725929 confirmada"))
	assert.Equal(t, NotFound, QuotationCode("pedido 12345 sem cotacao"))
	assert.Equal(t, NotFound, QuotationCode("chave 35240112345678000199550010000012341234567890"), "longer digit runs are not codes")
	assert.Equal(t, "1111111111", QuotationCode("a 1111111111 b 2222222222"))
}

func TestManifestCode(t *testing.T) {
	assert.Equal(t, "2026-00231", ManifestCode("Romaneio 2026-00231"))
	assert.Equal(t, NotFound, ManifestCode("Romaneio 26-231"))
}

func TestInvoiceNumber(t *testing.T) {
	assert.Equal(t, "000001234", InvoiceNumber("35240112345678000199550010000012341234567890"))
	assert.Equal(t, "12345", InvoiceNumber("12345"))
	assert.Equal(t, "352401123456780001995500100000123412345678901", InvoiceNumber("352401123456780001995500100000123412345678901"))
}

func TestAmounts(t *testing.T) {
	assert.Equal(t, "1234,50", FormatAmount(ParseAmount("1234.5")))
	assert.Equal(t, "1234,50", FormatAmount(ParseAmount("1234,5")))
	assert.Equal(t, "0,00", FormatAmount(ParseAmount("")))
	assert.Equal(t, "0,00", FormatAmount(ParseAmount("abc")))
	assert.Equal(t, "-3,10", FormatAmount(ParseAmount("-3.1")))
	assert.Equal(t, "0,13", FormatAmount(ParseAmount("0.125")))
	assert.Equal(t, "12,50", FormatAmount(ParseAmount("12.5abc")), "leading number is kept")
	assert.Equal(t, "12,50", FormatAmount(ParseAmount(" 12.5 kg")))
	assert.Equal(t, "0,50", FormatAmount(ParseAmount(".5")))
	assert.Equal(t, "1500,00", FormatAmount(ParseAmount("1.5e3")))
	assert.Equal(t, "0,00", FormatAmount(ParseAmount("1e50000000")), "exponent out of range")
	assert.Equal(t, "0,00", FormatAmount(ParseAmount("1e-999999999")))
	assert.Equal(t, "0,00", FormatAmount(ParseAmount("1e99999999999999999999")))
	assert.Equal(t, "0,00", FormatAmount(ParseAmount(strings.Repeat("9", 50))))
}
