package cte

import (
	"regexp"
	"strings"
)

// Annotation (ObsCont xCampo) names read directly by the record.
const (
	FieldOperationType = "TipoOperacao"
	FieldVehicleType   = "TipoVeiculo"
	FieldBillingType   = "TipoCobranca"
	FieldRoute         = "Rota"
	FieldQuotationCode = "NumeroLT"
	FieldManifestCode  = "Romaneio"
)

var (
	quotationPattern = regexp.MustCompile(`\b\d{10}\b`)
	manifestPattern  = regexp.MustCompile(`\d{4}-\d{5}`)
)

// QuotationCode returns the first standalone run of ten digits in the
// observation text, or NotFound.
func QuotationCode(observation string) string {
	return firstMatch(quotationPattern, observation)
}

// ManifestCode returns the first NNNN-NNNNN code in the observation text,
// or NotFound.
func ManifestCode(observation string) string {
	return firstMatch(manifestPattern, observation)
}

func firstMatch(re *regexp.Regexp, s string) string {
	if m := re.FindString(s); m != "" {
		return m
	}
	return NotFound
}

// codeOrField keeps a mined code and falls back to the tagged annotation only
// when mining found nothing.
func codeOrField(mined string, fields map[string]string, name string) string {
	if mined != NotFound {
		return mined
	}
	if v := strings.TrimSpace(fields[name]); v != "" {
		return v
	}
	return NotFound
}

// InvoiceNumber reduces a 44-character NF-e access key to its nine-digit
// invoice number (positions 26 to 34). Keys of any other length are returned
// unchanged.
func InvoiceNumber(key string) string {
	r := []rune(key)
	if len(r) != 44 {
		return key
	}
	return string(r[25:34])
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
