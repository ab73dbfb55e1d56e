package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/audit"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/lookup"
)

// FilenameHeader lets clients label an uploaded document.
const FilenameHeader = "X-Filename"

const defaultUploadLabel = "upload.xml"

// Fetcher retrieves raw CT-e XML by access key.
type Fetcher interface {
	FetchXML(ctx context.Context, key string) ([]byte, error)
}

// CTeHandler handles the CT-e endpoints.
type CTeHandler struct {
	fetcher      Fetcher
	extractor    audit.Extractor
	maxBodyBytes int64
	logger       zerolog.Logger
}

// NewCTeHandler creates a CTeHandler. maxBodyBytes <= 0 disables the upload limit.
func NewCTeHandler(logger zerolog.Logger, fetcher Fetcher, extractor audit.Extractor, maxBodyBytes int64) *CTeHandler {
	return &CTeHandler{
		fetcher:      fetcher,
		extractor:    extractor,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Lookup returns the raw XML of the CT-e named by the "chave" field.
func (h *CTeHandler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Corpo Inválido", "O corpo deve ser um JSON com o campo chave.")
		return
	}

	body, ok := h.fetch(c, req.Chave)
	if !ok {
		return
	}
	RespondXML(c, body)
}

// AuditByKey fetches the CT-e named in the path and returns its audit record.
func (h *CTeHandler) AuditByKey(c *gin.Context) {
	key := c.Param("chave")
	body, ok := h.fetch(c, key)
	if !ok {
		return
	}
	h.extract(c, key+".xml", body)
}

// Audit extracts the XML request body and returns its audit record.
func (h *CTeHandler) Audit(c *gin.Context) {
	reader := io.Reader(c.Request.Body)
	if h.maxBodyBytes > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(c, http.StatusRequestEntityTooLarge, "Arquivo muito grande",
				fmt.Sprintf("O limite é de %d bytes.", tooLarge.Limit))
			return
		}
		RespondBadRequest(c, "Corpo Inválido", err.Error())
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		RespondBadRequest(c, "Corpo Inválido", "Envie o XML do CT-e no corpo da requisição.")
		return
	}

	label := strings.TrimSpace(c.GetHeader(FilenameHeader))
	if label == "" {
		label = defaultUploadLabel
	}
	h.extract(c, label, body)
}

func (h *CTeHandler) extract(c *gin.Context, label string, body []byte) {
	rec, err := h.extractor.Extract(label, body)
	if err != nil || rec == nil {
		details := "O documento não é um CT-e válido."
		if err != nil {
			details = err.Error()
		}
		RespondUnprocessable(c, "XML Inválido", details)
		return
	}
	RespondOK(c, mapRecordToResponse(rec))
}

// fetch runs the lookup and writes the error response on failure.
func (h *CTeHandler) fetch(c *gin.Context, key string) ([]byte, bool) {
	if _, err := lookup.ValidateKey(key); err != nil {
		RespondBadRequest(c, "Chave Inválida", "A chave de acesso deve conter exatamente 44 dígitos.")
		return nil, false
	}

	body, err := h.fetcher.FetchXML(c.Request.Context(), key)
	if err == nil {
		return body, true
	}

	var apiErr *lookup.APIError
	switch {
	case errors.Is(err, lookup.ErrInvalidKey):
		RespondBadRequest(c, "Chave Inválida", "A chave de acesso deve conter exatamente 44 dígitos.")
	case errors.Is(err, lookup.ErrMissingAPIKey):
		h.logger.Error().Msg("Lookup API key is not configured")
		RespondInternalError(c, "Erro de Configuração", "A chave da API Meu Danfe não foi configurada.")
	case errors.Is(err, lookup.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, "Documento não encontrado",
			"A chave informada não foi encontrada na base de dados do Meu Danfe.")
	case errors.Is(err, lookup.ErrMalformedResponse):
		RespondUnprocessable(c, "XML Inválido", "A API retornou dados, mas não parece ser um XML de CT-e válido.")
	case errors.As(err, &apiErr):
		details := apiErr.Body
		if details == "" {
			details = "Erro desconhecido na resposta da API externa."
		}
		RespondWithError(c, apiErr.Status, fmt.Sprintf("Erro na API (%d)", apiErr.Status), details)
	default:
		h.logger.Error().Err(err).Msg("Lookup failed")
		RespondInternalError(c, "Falha de Conexão", err.Error())
	}
	return nil, false
}
