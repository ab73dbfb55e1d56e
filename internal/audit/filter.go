package audit

import (
	"strings"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
)

// Filter returns the records whose document number, municipalities, access
// key, issuer or recipient contain query, ignoring case. An empty query
// returns records unchanged.
func Filter(records []*cte.AuditRecord, query string) []*cte.AuditRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}

	var out []*cte.AuditRecord
	for _, rec := range records {
		if matches(rec, q) {
			out = append(out, rec)
		}
	}
	return out
}

func matches(rec *cte.AuditRecord, q string) bool {
	for _, field := range []string{
		rec.DocumentNumber,
		rec.OriginMunicipality,
		rec.DestMunicipality,
		rec.AccessKey,
		rec.IssuerName,
		rec.RecipientName,
	} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
