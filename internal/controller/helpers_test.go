package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		payload      any
		expectedBody string
	}{
		{
			name:         "simple map",
			status:       http.StatusOK,
			payload:      map[string]string{"message": "hello"},
			expectedBody: `{"message":"hello"}`,
		},
		{
			name:         "struct",
			status:       http.StatusCreated,
			payload:      struct{ ID string }{ID: "123"},
			expectedBody: `{"ID":"123"}`,
		},
		{
			name:         "error response",
			status:       http.StatusBadRequest,
			payload:      ErrorResponse{Error: "bad request", Code: "invalid_input"},
			expectedBody: `{"error":"bad request","code":"invalid_input"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.status, tt.payload)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestWriteError_ValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainErrors.NewValidationError("price", "must be positive")

	writeError(w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "validation_error", response.Code)
	assert.Equal(t, "price", response.Field)
	assert.Contains(t, response.Error, "price")
}

func TestWriteError_DomainErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "payment rejected",
			err:            domainErrors.NewPaymentRejected(&domainErrors.PaymentError{Kind: domainErrors.KindCardDeclined, Code: "2"}),
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   "payment_rejected",
		},
		{
			name: "partial refund of unsettled transaction",
			err: &domainErrors.PaymentRejectedError{
				Errors: []*domainErrors.PaymentError{{Kind: domainErrors.KindRefund, Code: "54"}},
				Err:    domainErrors.ErrPartialRefundUnsettled,
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   "partial_refund_unsettled",
		},
		{
			name:           "customer not found",
			err:            domainErrors.NewCustomerError(domainErrors.CustomerNotFound, "E00040", "The record cannot be found."),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "customer_not_found",
		},
		{
			name:           "gateway not found",
			err:            fmt.Errorf("gateway %q: %w", "paypal", domainErrors.ErrGatewayNotFound),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "gateway_not_found",
		},
		{
			name:           "duplicate customer",
			err:            domainErrors.NewCustomerError(domainErrors.CustomerDuplicate, "E00039", "A duplicate record with ID 39 already exists."),
			expectedStatus: http.StatusConflict,
			expectedCode:   "duplicate_customer",
		},
		{
			name:           "duplicate card",
			err:            domainErrors.NewCustomerError(domainErrors.CustomerDuplicateCard, "E00039", "A duplicate customer payment profile already exists."),
			expectedStatus: http.StatusConflict,
			expectedCode:   "duplicate_card",
		},
		{
			name:           "invalid customer",
			err:            domainErrors.NewCustomerError(domainErrors.CustomerInvalid, "", "email is required"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_customer",
		},
		{
			name:           "forbidden",
			err:            fmt.Errorf("gateway %q: %w", "mercadopago", domainErrors.ErrForbidden),
			expectedStatus: http.StatusForbidden,
			expectedCode:   "forbidden",
		},
		{
			name:           "not supported",
			err:            domainErrors.NewGatewayError(domainErrors.ErrNotSupported),
			expectedStatus: http.StatusNotImplemented,
			expectedCode:   "not_supported",
		},
		{
			name:           "authentication",
			err:            domainErrors.NewGatewayError(domainErrors.ErrAuthentication, domainErrors.ProcessorMessage{Code: "E00007", Text: "User authentication failed"}),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "gateway_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response ErrorResponse
			err := json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, response.Code)
		})
	}
}

func TestWriteError_RejectionReasons(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, domainErrors.NewPaymentRejected(
		&domainErrors.PaymentError{Kind: domainErrors.KindAVS, Code: "45", Message: "AVS mismatch"},
		&domainErrors.PaymentError{Kind: domainErrors.KindCVV, Code: "45", Message: "CVV mismatch"},
	))

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Reasons, 2)
	assert.Equal(t, domainErrors.KindAVS, response.Reasons[0].Kind)
	assert.Equal(t, domainErrors.KindCVV, response.Reasons[1].Kind)
	assert.Equal(t, "45", response.Reasons[0].Code)
}

func TestWriteError_DuplicateCustomerID(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainErrors.NewCustomerError(domainErrors.CustomerDuplicate, "E00039", "A duplicate record with ID 39 already exists.")
	err.CustomerID = "39"

	writeError(w, err)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "39", response.CustomerID)
}

func TestWriteError_GatewayMessages(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, domainErrors.NewGatewayError(domainErrors.ErrUnmappedCode, domainErrors.ProcessorMessage{Code: "999", Text: "odd"}))

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, []domainErrors.ProcessorMessage{{Code: "999", Text: "odd"}}, response.Messages)
}

func TestWriteError_GenericDomainError(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainErrors.NewDomainError("custom_error", "custom error message", nil)

	writeError(w, err)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response ErrorResponse
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "custom_error", response.Code)
	assert.Equal(t, "custom error message", response.Error)
}

func TestWriteError_UnknownError_FallbackToInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	err := errors.New("unexpected error")

	writeError(w, err)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response ErrorResponse
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "internal_error", response.Code)
	assert.Equal(t, "internal server error", response.Error)
}

func TestDecodeAndValidate_Success(t *testing.T) {
	type TestStruct struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required,email"`
	}

	body := `{"name":"John","email":"john@example.com"}`
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))

	var result TestStruct
	err := decodeAndValidate(req, &result)

	require.NoError(t, err)
	assert.Equal(t, "John", result.Name)
	assert.Equal(t, "john@example.com", result.Email)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	type TestStruct struct {
		Name string `json:"name"`
	}

	body := `{invalid json}`
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))

	var result TestStruct
	err := decodeAndValidate(req, &result)

	assert.Error(t, err)
	var validationErr *domainErrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "body", validationErr.Field)
	assert.Contains(t, validationErr.Message, "invalid JSON")
}

func TestDecodeAndValidate_ValidationFailure_EmailFormat(t *testing.T) {
	type TestStruct struct {
		Email string `json:"email" validate:"required,email"`
	}

	body := `{"email":"not-an-email"}`
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))

	var result TestStruct
	err := decodeAndValidate(req, &result)

	assert.Error(t, err)
	var validationErr *domainErrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "email", validationErr.Field)
	assert.Contains(t, validationErr.Message, "validation failed")
}

func TestDecodeAndValidate_EmptyBody(t *testing.T) {
	type TestStruct struct {
		Name string `json:"name" validate:"required"`
	}

	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte{}))

	var result TestStruct
	err := decodeAndValidate(req, &result)

	assert.Error(t, err)
}

func TestDecodeAndValidate_EmptyBodyOptionalFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte{}))

	var result AmountRequest
	require.NoError(t, decodeAndValidate(req, &result))
	assert.Nil(t, result.Amount)
}
