// Package response implements the API envelope: {status, message, data} on
// success, {status, message, errors} on validation failure.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitlabs/accounts-backend/internal/apperr"
)

// Envelope is the standard API response body.
type Envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// OK sends a 200 success envelope.
func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Status: "success", Message: message, Data: data})
}

// Created sends a 201 success envelope.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Status: "success", Message: message, Data: data})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Envelope{Status: "error", Message: message})
}

// NotFound sends 404.
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Envelope{Status: "error", Message: message})
}

// UnprocessableEntity sends 422 with per-field errors.
func UnprocessableEntity(c *gin.Context, message string, fields map[string][]string) {
	c.JSON(http.StatusUnprocessableEntity, Envelope{Status: "error", Message: message, Errors: fields})
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, message string) {
	c.JSON(http.StatusTooManyRequests, Envelope{Status: "error", Message: message})
}

// Internal sends 500.
func Internal(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Envelope{Status: "error", Message: message})
}

// FromError maps a domain error to its HTTP response. failMessage is used as
// the envelope message for validation and conflict outcomes.
func FromError(c *gin.Context, err error, failMessage string) {
	if ve, ok := apperr.IsValidation(err); ok {
		UnprocessableEntity(c, failMessage, ve.Fields)
		return
	}
	if ce, ok := apperr.IsConflict(err); ok {
		UnprocessableEntity(c, failMessage, map[string][]string{ce.Field: {ce.Reason}})
		return
	}
	if apperr.IsAuthentication(err) {
		Unauthorized(c, err.Error())
		return
	}
	if apperr.IsNotFound(err) {
		NotFound(c, err.Error())
		return
	}
	Internal(c, "Internal server error")
}
