package cte

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type bucket int

const (
	bucketNone bucket = iota
	bucketFreightByWeight
	bucketFreightGeneral
	bucketInsurance
	bucketToll
	bucketICMS
)

var componentBuckets = map[string]bucket{
	"frete peso":      bucketFreightByWeight,
	"frete-peso":      bucketFreightByWeight,
	"fretemercadoria": bucketFreightByWeight,
	"frete":           bucketFreightGeneral,
	"gris":            bucketInsurance,
	"seguro":          bucketInsurance,
	"adv":             bucketInsurance,
	"pedagio":         bucketToll,
	"icms":            bucketICMS,
}

// NormalizeLabel lower-cases s, strips diacritics and trims it.
// "Pedágio " becomes "pedagio".
func NormalizeLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.TrimSpace(out)
}

func classify(label string) bucket {
	return componentBuckets[NormalizeLabel(label)]
}

// add stores amount in the bucket named by label. A bucket holds one value:
// a later component of the same bucket replaces the earlier one. Unknown
// labels are ignored.
func (c *Components) add(label string, amount string) {
	v := ParseAmount(amount)
	switch classify(label) {
	case bucketFreightByWeight:
		c.FreightByWeight = v
	case bucketFreightGeneral:
		c.FreightGeneral = v
	case bucketInsurance:
		c.Insurance = v
	case bucketToll:
		c.Toll = v
	case bucketICMS:
		c.ICMS = v
	}
}
