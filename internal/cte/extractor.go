// =============================================================================
// ISA Atributo - CT-e Extractor
// =============================================================================
//
// Turns the raw XML of one CT-e into an AuditRecord.
//
// EXTRACTION PIPELINE:
//   1. Strip BOM/whitespace, parse, locate infCte (namespace-agnostic)
//   2. Scalar fields with per-field defaults
//   3. Access key from the infCte Id attribute
//   4. Cost components from vPrest/Comp, classified by normalized label
//   5. Reconciliation (derived on the record, see Components.Sum)
//   6. First ICMS regime group present
//   7. Linked NF-e numbers from infDoc/infNFe/chave
//   8. Quotation and manifest codes mined from xObs
//   9. ObsCont annotations into AdditionalFields
//
// Only step 1 can fail. Every other missing or unparseable field falls back
// to a default.
//
// =============================================================================

package cte

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/xmltree"
)

var (
	// ErrMalformedXML is returned when the input is not well-formed XML.
	ErrMalformedXML = errors.New("malformed xml")

	// ErrMissingRoot is returned when the document has no infCte element.
	ErrMissingRoot = errors.New("infCte element not found")
)

const rootElement = "infCte"

// taxRegimes are the ICMS groups a CT-e may carry, in lookup order.
var taxRegimes = []string{"ICMS00", "ICMS20", "ICMS45", "ICMS60", "ICMS90", "ICMSOutraUF", "ICMSSN"}

// Extractor parses CT-e documents and logs failures.
type Extractor struct {
	logger zerolog.Logger
	newID  func(documentNumber, recipient string) string
}

// NewExtractor creates an Extractor logging to logger.
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With().Str("component", "cte_extractor").Logger(),
		newID:  displayID,
	}
}

// Extract parses raw as a CT-e labelled source. On failure it logs a warning
// carrying the label and returns a nil record with the error. It never
// panics.
func (e *Extractor) Extract(source string, raw []byte) (rec *AuditRecord, err error) {
	defer func() {
		if p := recover(); p != nil {
			rec = nil
			err = fmt.Errorf("%w: panic during extraction: %v", ErrMalformedXML, p)
			e.logger.Error().Str("source", source).Err(err).Msg("CT-e extraction aborted")
		}
	}()

	rec, err = e.parse(source, raw)
	if err != nil {
		e.logger.Warn().Str("source", source).Err(err).Msg("CT-e rejected")
		return nil, err
	}

	e.logger.Debug().
		Str("source", source).
		Str("document_number", rec.DocumentNumber).
		Stringer("status", rec.Status()).
		Msg("CT-e extracted")
	return rec, nil
}

// Parse is Extract without logging.
func Parse(source string, raw []byte) (*AuditRecord, error) {
	e := &Extractor{logger: zerolog.Nop(), newID: displayID}
	return e.parse(source, raw)
}

func (e *Extractor) parse(source string, raw []byte) (*AuditRecord, error) {
	text := cleanInput(string(raw))

	doc, err := xmltree.ParseBytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	inf, ok := xmltree.FindFirstByLocalName(doc, rootElement)
	if !ok {
		return nil, ErrMissingRoot
	}

	rec := &AuditRecord{
		SourceFilename: source,
		RawXML:         text,
	}

	// Scalars.
	rec.DocumentNumber = textOr(inf, "nCT", "SN")
	// A present ide without CFOP yields "", an absent ide yields NotFound.
	rec.CFOP = NotFound
	if ide, ok := xmltree.FindFirstByLocalName(inf, "ide"); ok {
		rec.CFOP = xmltree.ChildText(ide, "CFOP")
	}
	rec.OriginMunicipality = textOr(inf, "xMunIni", NotFound)
	rec.DestMunicipality = textOr(inf, "xMunFim", NotFound)
	rec.OriginState = textOr(inf, "UFIni", "??")
	rec.DestState = textOr(inf, "UFFim", "??")
	rec.IssuerName = partyName(inf, "emit")
	rec.RecipientName = partyName(inf, "dest")
	rec.CargoCategory = textOr(inf, "xOutCat", "Não Identificada")
	rec.AdditionalCharacteristics = xmltree.ChildText(inf, "xCaracAd")
	rec.Observation = textOr(inf, "xObs", NotFound)

	// Access key.
	id, _ := inf.Attribute("Id", "id")
	rec.AccessKey = digitsOnly(id)

	// Components.
	if vPrest, ok := xmltree.FindFirstByLocalName(inf, "vPrest"); ok {
		rec.DeclaredTotal = ParseAmount(xmltree.ChildText(vPrest, "vTPrest"))
		for _, comp := range xmltree.FindAllByLocalName(vPrest, "Comp") {
			rec.Components.add(xmltree.ChildText(comp, "xNome"), xmltree.ChildText(comp, "vComp"))
		}
	}

	// Tax.
	for _, regime := range taxRegimes {
		node, ok := xmltree.FindFirstByLocalName(inf, regime)
		if !ok {
			continue
		}
		rec.Tax = Tax{
			Regime: node.LocalName(),
			Base:   ParseAmount(xmltree.ChildText(node, "vBC")),
			Rate:   ParseAmount(xmltree.ChildText(node, "pICMS")),
			Amount: ParseAmount(xmltree.ChildText(node, "vICMS")),
		}
		break
	}

	// Linked invoices.
	if infDoc, ok := xmltree.FindFirstByLocalName(inf, "infDoc"); ok {
		for _, nfe := range xmltree.FindAllByLocalName(infDoc, "infNFe") {
			key := xmltree.ChildText(nfe, "chave")
			if key == "" {
				continue
			}
			rec.LinkedInvoiceNumbers = append(rec.LinkedInvoiceNumbers, InvoiceNumber(key))
		}
	}

	// Annotations.
	rec.AdditionalFields = make(map[string]string)
	for _, obs := range xmltree.FindAllByLocalName(inf, "ObsCont") {
		name, _ := obs.Attribute("xCampo")
		if name == "" {
			continue
		}
		rec.AdditionalFields[name] = xmltree.ChildText(obs, "xTexto")
	}

	// Codes.
	observation := xmltree.ChildText(inf, "xObs")
	rec.QuotationCode = codeOrField(QuotationCode(observation), rec.AdditionalFields, FieldQuotationCode)
	rec.ManifestCode = codeOrField(ManifestCode(observation), rec.AdditionalFields, FieldManifestCode)

	rec.ID = e.newID(rec.DocumentNumber, rec.RecipientName)
	return rec, nil
}

// cleanInput removes surrounding whitespace and a leading byte-order mark.
func cleanInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.TrimSpace(s)
}

func textOr(root *xmltree.Node, name, def string) string {
	if v := xmltree.ChildText(root, name); v != "" {
		return v
	}
	return def
}

// partyName is NotFound when the party element is absent and "" when it is
// present without a name.
func partyName(inf *xmltree.Node, party string) string {
	node, ok := xmltree.FindFirstByLocalName(inf, party)
	if !ok {
		return NotFound
	}
	return xmltree.ChildText(node, "xNome")
}

func displayID(documentNumber, recipient string) string {
	compact := strings.Join(strings.Fields(recipient), "")
	return fmt.Sprintf("%s-%s-%s", documentNumber, compact, uuid.NewString()[:5])
}
