package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope for successful JSON responses.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Details       string `json:"details,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Data:          data,
		CorrelationID: GetCorrelationID(c),
	})
}

// RespondWithError sends a JSON error response
func RespondWithError(c *gin.Context, statusCode int, message, details string) {
	c.JSON(statusCode, ErrorResponse{
		Error:         message,
		Details:       details,
		CorrelationID: GetCorrelationID(c),
	})
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondXML sends raw XML
func RespondXML(c *gin.Context, body []byte) {
	c.Data(http.StatusOK, "application/xml", body)
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message, details string) {
	RespondWithError(c, http.StatusBadRequest, message, details)
}

// RespondUnprocessable sends a 422 Unprocessable Entity response
func RespondUnprocessable(c *gin.Context, message, details string) {
	RespondWithError(c, http.StatusUnprocessableEntity, message, details)
}

// RespondInternalError sends a 500 Internal Server Error response
func RespondInternalError(c *gin.Context, message, details string) {
	RespondWithError(c, http.StatusInternalServerError, message, details)
}
