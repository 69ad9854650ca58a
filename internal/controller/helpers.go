package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("option_key", func(fl validator.FieldLevel) bool {
		_, ok := optionKeys[fl.Field().String()]
		return ok
	})
	return v
}

var optionKeys = func() map[string]struct{} {
	keys := []string{
		gateway.OptNumber, gateway.OptMonth, gateway.OptYear, gateway.OptCVV,
		gateway.OptEmail, gateway.OptCustomerID, gateway.OptCardID,
		gateway.OptInvoiceNumber, gateway.OptSettle, gateway.OptDescription,
		gateway.OptToken, gateway.OptPaymentMethodID, gateway.OptInstallments,
	}
	keys = append(keys, gateway.BillingKeys...)
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}()

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: the first match wins, and GatewayError matches both
// ErrGateway and its cause.
var errorMappings = []errorMapping{
	{domainErrors.ErrPartialRefundUnsettled, http.StatusPaymentRequired, "partial_refund_unsettled"},
	{domainErrors.ErrPaymentRejected, http.StatusPaymentRequired, "payment_rejected"},
	{domainErrors.ErrCustomerNotFound, http.StatusNotFound, "customer_not_found"},
	{domainErrors.ErrGatewayNotFound, http.StatusNotFound, "gateway_not_found"},
	{domainErrors.ErrDuplicateCustomer, http.StatusConflict, "duplicate_customer"},
	{domainErrors.ErrDuplicateCard, http.StatusConflict, "duplicate_card"},
	{domainErrors.ErrInvalidCustomer, http.StatusBadRequest, "invalid_customer"},
	{domainErrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domainErrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domainErrors.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domainErrors.ErrNotSupported, http.StatusNotImplemented, "not_supported"},
	{domainErrors.ErrGateway, http.StatusBadGateway, "gateway_error"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		resp.Field = validationErr.Field
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	var rejected *domainErrors.PaymentRejectedError
	if errors.As(err, &rejected) {
		resp.Reasons = rejected.Errors
	}
	var customerErr *domainErrors.CustomerError
	if errors.As(err, &customerErr) {
		resp.CustomerID = customerErr.CustomerID
	}
	var gatewayErr *domainErrors.GatewayError
	if errors.As(err, &gatewayErr) {
		resp.Messages = gatewayErr.Messages
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
		Code:  "internal_error",
	})
}

func decodeAndValidate(r *http.Request, dst any) error {
	// an empty body still goes through validation
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
