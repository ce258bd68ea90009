package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"NO_SUCH_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		domainCode string
		expected   string
	}{
		{"INVOICE_NOT_FOUND", ErrCodeNotFound},
		{"SERVICE_NOT_FOUND", ErrCodeInvalidInput},
		{"QUOTATION_NOT_FOUND", ErrCodeNotFound},
		{"DUPLICATE_INVOICE_NUMBER", ErrCodeConflict},
		{"OPTIMISTIC_LOCK_ERROR", ErrCodeConcurrencyConflict},
		{"SERVICE_NOT_BILLABLE", ErrCodeBusinessRule},
		{"MULTIPLE_CUSTOMERS", ErrCodeBusinessRule},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"INVALID_REASON", ErrCodeInvalidInput},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"UNMAPPED_CODE", "UNMAPPED_CODE"},
	}

	for _, tt := range tests {
		t.Run(tt.domainCode, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.domainCode))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 11, 1, 10)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(11), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
}
