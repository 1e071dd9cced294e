package http

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/tenzai/internal/dto"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

func TestValidatorReportsJSONFieldNames(t *testing.T) {
	v := newRequestValidator()

	err := v.Validate(&dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{Name: "ok", Quantity: 150}},
	})
	require.Error(t, err)

	var appErr *errorbank.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	assert.Equal(t, "items[0].quantity", appErr.Details()["field"])
	assert.Equal(t, "lte", appErr.Details()["reason"])
}

func TestValidatorAcceptsValidPayloads(t *testing.T) {
	v := newRequestValidator()

	assert.NoError(t, v.Validate(&dto.UpdateStatusRequest{Status: "confirmed"}))
	assert.NoError(t, v.Validate(&dto.InitiatePaymentRequest{OrderNumber: "T0102ABCD", Method: "promptpay"}))

	err := v.Validate(&dto.InitiatePaymentRequest{OrderNumber: "T1", Method: "crypto"})
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}
