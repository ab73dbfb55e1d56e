package server

import (
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/validation"
)

// LookupRequest is the body of POST /api/cte/consultar.
type LookupRequest struct {
	Chave string `json:"chave"`
}

// ComponentsResponse carries the classified components, comma formatted.
type ComponentsResponse struct {
	FreightByWeight string `json:"frete_peso"`
	FreightGeneral  string `json:"frete_geral"`
	FinalFreight    string `json:"frete_considerado"`
	Toll            string `json:"pedagio"`
	Insurance       string `json:"gris"`
	ICMS            string `json:"icms"`
}

// TaxResponse carries the ICMS group.
type TaxResponse struct {
	Regime string `json:"regime"`
	Base   string `json:"base"`
	Rate   string `json:"aliquota"`
	Amount string `json:"valor"`
}

// RecordResponse is the JSON view of an audit record. Amounts are strings
// with two decimals and a comma separator.
type RecordResponse struct {
	ID                        string             `json:"id"`
	SourceFilename            string             `json:"arquivo"`
	DocumentNumber            string             `json:"numero_cte"`
	AccessKey                 string             `json:"chave"`
	CFOP                      string             `json:"cfop"`
	OriginMunicipality        string             `json:"municipio_origem"`
	OriginState               string             `json:"uf_origem"`
	DestMunicipality          string             `json:"municipio_destino"`
	DestState                 string             `json:"uf_destino"`
	IssuerName                string             `json:"emitente"`
	RecipientName             string             `json:"destinatario"`
	CargoCategory             string             `json:"categoria_carga"`
	AdditionalCharacteristics string             `json:"caracteristicas_adicionais"`
	Observation               string             `json:"observacao"`
	DeclaredTotal             string             `json:"valor_total"`
	ReconciledSum             string             `json:"valor_auditado"`
	Difference                string             `json:"diferenca"`
	NetValue                  string             `json:"valor_liquido"`
	Status                    cte.Status         `json:"status"`
	StatusLabel               string             `json:"status_label"`
	Components                ComponentsResponse `json:"componentes"`
	Tax                       TaxResponse        `json:"icms"`
	InvoiceCount              int                `json:"quantidade_nfe"`
	Invoices                  []string           `json:"nfes"`
	QuotationCode             string             `json:"codigo_cotacao"`
	ManifestCode              string             `json:"romaneio"`
	OperationType             string             `json:"tipo_operacao"`
	VehicleType               string             `json:"tipo_veiculo"`
	AdditionalFields          map[string]string  `json:"campos_adicionais"`
	Warnings                  []string           `json:"alertas"`
}

func mapRecordToResponse(r *cte.AuditRecord) RecordResponse {
	invoices := r.LinkedInvoiceNumbers
	if invoices == nil {
		invoices = []string{}
	}
	return RecordResponse{
		ID:                        r.ID,
		SourceFilename:            r.SourceFilename,
		DocumentNumber:            r.DocumentNumber,
		AccessKey:                 r.AccessKey,
		CFOP:                      r.CFOP,
		OriginMunicipality:        r.OriginMunicipality,
		OriginState:               r.OriginState,
		DestMunicipality:          r.DestMunicipality,
		DestState:                 r.DestState,
		IssuerName:                r.IssuerName,
		RecipientName:             r.RecipientName,
		CargoCategory:             r.CargoCategory,
		AdditionalCharacteristics: r.AdditionalCharacteristics,
		Observation:               r.Observation,
		DeclaredTotal:             cte.FormatAmount(r.DeclaredTotal),
		ReconciledSum:             cte.FormatAmount(r.ReconciledSum()),
		Difference:                cte.FormatAmount(r.Difference()),
		NetValue:                  cte.FormatAmount(r.NetValue()),
		Status:                    r.Status(),
		StatusLabel:               r.Status().Label(),
		Components: ComponentsResponse{
			FreightByWeight: cte.FormatAmount(r.Components.FreightByWeight),
			FreightGeneral:  cte.FormatAmount(r.Components.FreightGeneral),
			FinalFreight:    cte.FormatAmount(r.Components.FinalFreight()),
			Toll:            cte.FormatAmount(r.Components.Toll),
			Insurance:       cte.FormatAmount(r.Components.Insurance),
			ICMS:            cte.FormatAmount(r.Components.ICMS),
		},
		Tax: TaxResponse{
			Regime: r.Tax.Regime,
			Base:   cte.FormatAmount(r.Tax.Base),
			Rate:   cte.FormatAmount(r.Tax.Rate),
			Amount: cte.FormatAmount(r.Tax.Amount),
		},
		InvoiceCount:     r.InvoiceCount(),
		Invoices:         invoices,
		QuotationCode:    r.QuotationCode,
		ManifestCode:     r.ManifestCode,
		OperationType:    r.OperationType(),
		VehicleType:      r.VehicleType(),
		AdditionalFields: r.AdditionalFields,
		Warnings:         validation.Messages(validation.NewValidator().ValidateRecord(r)),
	}
}
