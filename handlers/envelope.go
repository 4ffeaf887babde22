package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope wraps every API response body.
type Envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

const (
	CodeOK             = "OK"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeResourceBusy   = "RESOURCE_BUSY"
	CodeBadGateway     = "BAD_GATEWAY"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInternal       = "INTERNAL_ERROR"
)

var codeStatus = map[string]int{
	CodeOK:             http.StatusOK,
	CodeInvalidRequest: http.StatusBadRequest,
	CodeForbidden:      http.StatusForbidden,
	CodeNotFound:       http.StatusNotFound,
	CodeResourceBusy:   http.StatusAccepted,
	CodeBadGateway:     http.StatusBadGateway,
	CodeUnavailable:    http.StatusServiceUnavailable,
	CodeInternal:       http.StatusInternalServerError,
}

func statusFor(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respond(c *gin.Context, code, message string, data any) {
	c.JSON(statusFor(code), Envelope{Code: code, Message: message, Data: data})
}

func ok(c *gin.Context, data any) {
	respond(c, CodeOK, "OK", data)
}

// fail puts free-form details under data.detail so the envelope shape
// never changes between errors.
func fail(c *gin.Context, code, message string, detail any) {
	payload := gin.H{}
	if detail != nil {
		payload["detail"] = detail
	}
	respond(c, code, message, payload)
}
