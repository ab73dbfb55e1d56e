package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/config"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/lookup"
)

const testKey = "35240198765432000111570010000001231000001234"

const testXML = `<?xml version="1.0" encoding="UTF-8"?>
<cteProc xmlns="http://www.portalfiscal.inf.br/cte"><CTe><infCte Id="CTe35240198765432000111570010000001231000001234">
<ide><CFOP>6353</CFOP><nCT>123</nCT><xMunIni>SAO PAULO</xMunIni><UFIni>SP</UFIni><xMunFim>CURITIBA</xMunFim><UFFim>PR</UFFim></ide>
<compl><xObs>Cotacao 3157725929 Romaneio 2026-00231</xObs></compl>
<emit><xNome>ISA TRANSPORTES LTDA</xNome></emit><dest><xNome>ACME INDUSTRIA SA</xNome></dest>
<vPrest><vTPrest>1000.00</vTPrest>
<Comp><xNome>FRETE PESO</xNome><vComp>800.00</vComp></Comp>
<Comp><xNome>Pedágio</xNome><vComp>50.00</vComp></Comp>
<Comp><xNome>GRIS</xNome><vComp>30.00</vComp></Comp>
<Comp><xNome>ICMS</xNome><vComp>120.00</vComp></Comp>
</vPrest>
<imp><ICMS><ICMS00><vBC>1000.00</vBC><pICMS>12.00</pICMS><vICMS>120.00</vICMS></ICMS00></ICMS></imp>
</infCte></CTe></cteProc>`

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchXML(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func setupTestServer(fetcher Fetcher, maxBody int64) http.Handler {
	gin.SetMode(gin.TestMode)
	srv := NewServer(zerolog.Nop(), config.ServerConfig{Addr: ":0", MaxBodyBytes: maxBody, Version: "1.2.3"}, fetcher, cte.NewExtractor(zerolog.Nop()))
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func lookupBody(key string) []byte {
	b, _ := json.Marshal(LookupRequest{Chave: key})
	return b
}

func TestCTeHandler_Lookup(t *testing.T) {
	jsonHeaders := map[string]string{"Content-Type": "application/json"}

	t.Run("Success", func(t *testing.T) {
		fetcher := new(MockFetcher)
		fetcher.On("FetchXML", mock.Anything, testKey).Return([]byte(testXML), nil)

		rr := do(t, setupTestServer(fetcher, 0), http.MethodPost, "/api/cte/consultar", lookupBody(testKey), jsonHeaders)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/xml", rr.Header().Get("Content-Type"))
		assert.Equal(t, testXML, rr.Body.String())
		fetcher.AssertExpectations(t)
	})

	t.Run("InvalidKeyIsRejectedBeforeFetching", func(t *testing.T) {
		fetcher := new(MockFetcher)

		rr := do(t, setupTestServer(fetcher, 0), http.MethodPost, "/api/cte/consultar", lookupBody("123"), jsonHeaders)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Chave Inválida", decodeError(t, rr).Error)
		fetcher.AssertNotCalled(t, "FetchXML", mock.Anything, mock.Anything)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		rr := do(t, setupTestServer(new(MockFetcher), 0), http.MethodPost, "/api/cte/consultar", []byte("{"), jsonHeaders)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantDetail string
	}{
		{"NotFound", lookup.ErrNotFound, http.StatusNotFound, "Documento não encontrado", ""},
		{"MissingAPIKey", lookup.ErrMissingAPIKey, http.StatusInternalServerError, "Erro de Configuração", ""},
		{"Malformed", lookup.ErrMalformedResponse, http.StatusUnprocessableEntity, "XML Inválido", ""},
		{"UpstreamStatus", &lookup.APIError{Status: http.StatusTooManyRequests, Body: "slow down"}, http.StatusTooManyRequests, "Erro na API (429)", "slow down"},
		{"UpstreamStatusNoBody", &lookup.APIError{Status: http.StatusBadGateway}, http.StatusBadGateway, "Erro na API (502)", "Erro desconhecido na resposta da API externa."},
		{"Connection", errors.New("dial tcp: refused"), http.StatusInternalServerError, "Falha de Conexão", "dial tcp: refused"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(MockFetcher)
			fetcher.On("FetchXML", mock.Anything, testKey).Return(nil, tc.err)

			rr := do(t, setupTestServer(fetcher, 0), http.MethodPost, "/api/cte/consultar", lookupBody(testKey), jsonHeaders)

			assert.Equal(t, tc.wantStatus, rr.Code)
			resp := decodeError(t, rr)
			assert.Equal(t, tc.wantError, resp.Error)
			if tc.wantDetail != "" {
				assert.Equal(t, tc.wantDetail, resp.Details)
			}
			assert.NotEmpty(t, resp.CorrelationID)
		})
	}
}

type recordEnvelope struct {
	Data RecordResponse `json:"data"`
}

func TestCTeHandler_Audit(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		rr := do(t, setupTestServer(new(MockFetcher), 0), http.MethodPost, "/api/cte/audit",
			[]byte(testXML), map[string]string{FilenameHeader: "cte_123.xml"})

		require.Equal(t, http.StatusOK, rr.Code)
		var env recordEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))

		rec := env.Data
		assert.Equal(t, "123", rec.DocumentNumber)
		assert.Equal(t, "cte_123.xml", rec.SourceFilename)
		assert.Equal(t, testKey, rec.AccessKey)
		assert.Equal(t, "1000,00", rec.DeclaredTotal)
		assert.Equal(t, "1000,00", rec.ReconciledSum)
		assert.Equal(t, "0,00", rec.Difference)
		assert.Equal(t, "880,00", rec.NetValue)
		assert.Equal(t, cte.StatusReconciled, rec.Status)
		assert.Equal(t, "Conciliado", rec.StatusLabel)
		assert.Equal(t, "800,00", rec.Components.FinalFreight)
		assert.Equal(t, "50,00", rec.Components.Toll)
		assert.Equal(t, "ICMS00", rec.Tax.Regime)
		assert.Equal(t, "3157725929", rec.QuotationCode)
		assert.Equal(t, "2026-00231", rec.ManifestCode)
		assert.Equal(t, []string{}, rec.Invoices)
		assert.Equal(t, []string{"[error] chave: Access key check digit is 4, expected 6"}, rec.Warnings)
	})

	t.Run("DefaultLabel", func(t *testing.T) {
		rr := do(t, setupTestServer(new(MockFetcher), 0), http.MethodPost, "/api/cte/audit", []byte(testXML), nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var env recordEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		assert.Equal(t, "upload.xml", env.Data.SourceFilename)
	})

	t.Run("Malformed", func(t *testing.T) {
		rr := do(t, setupTestServer(new(MockFetcher), 0), http.MethodPost, "/api/cte/audit", []byte("<cteProc><infCte>"), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "XML Inválido", decodeError(t, rr).Error)
	})

	t.Run("TwoRoots", func(t *testing.T) {
		rr := do(t, setupTestServer(new(MockFetcher), 0), http.MethodPost, "/api/cte/audit", []byte(testXML+"<other/>"), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("HugeExponentIsZero", func(t *testing.T) {
		body := strings.Replace(testXML, "<vTPrest>1000.00</vTPrest>", "<vTPrest>1e50000000</vTPrest>", 1)
		rr := do(t, setupTestServer(new(MockFetcher), 0), http.MethodPost, "/api/cte/audit", []byte(body), nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var env recordEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		assert.Equal(t, "0,00", env.Data.DeclaredTotal)
		assert.Equal(t, cte.StatusReconciliationError, env.Data.Status)
	})

	t.Run("Empty", func(t *testing.T) {
		rr := do(t, setupTestServer(new(MockFetcher), 0), http.MethodPost, "/api/cte/audit", []byte("  "), nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("TooLarge", func(t *testing.T) {
		rr := do(t, setupTestServer(new(MockFetcher), 64), http.MethodPost, "/api/cte/audit", []byte(testXML), nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})
}

func TestCTeHandler_AuditByKey(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchXML", mock.Anything, testKey).Return([]byte(testXML), nil)

	rr := do(t, setupTestServer(fetcher, 0), http.MethodGet, "/api/cte/"+testKey+"/audit", nil, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var env recordEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, testKey+".xml", env.Data.SourceFilename)
	fetcher.AssertExpectations(t)
}

func TestRouter(t *testing.T) {
	h := setupTestServer(new(MockFetcher), 0)

	t.Run("Health", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"ok"`)
		assert.Contains(t, rr.Body.String(), `"version":"1.2.3"`)
	})

	t.Run("Preflight", func(t *testing.T) {
		rr := do(t, h, http.MethodOptions, "/api/cte/consultar", nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/cte/consultar", nil, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		assert.Equal(t, "Método não permitido", decodeError(t, rr).Error)
	})

	t.Run("CorrelationIDIsEchoed", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/health", nil, map[string]string{CorrelationIDHeader: "abc-123"})
		assert.Equal(t, "abc-123", rr.Header().Get(CorrelationIDHeader))
	})
}

func TestMiddleware_LoggerAndRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logBuffer bytes.Buffer
	logger := zerolog.New(&logBuffer)

	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(CorrelationID())
	router.Use(Logger(logger))
	router.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})
	router.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	rr := do(t, router, http.MethodGet, "/ok", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, logBuffer.String(), `"message":"HTTP request"`)
	assert.Contains(t, logBuffer.String(), `"path":"/ok"`)
	assert.Contains(t, logBuffer.String(), `"status":200`)

	rr = do(t, router, http.MethodGet, "/boom", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.True(t, strings.Contains(logBuffer.String(), "Panic recovered"))
	assert.NotEmpty(t, decodeError(t, rr).CorrelationID)
}
