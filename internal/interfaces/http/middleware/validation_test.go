package middleware

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutBody struct {
	PriceID    string `json:"priceId" validate:"required"`
	SuccessURL string `json:"successUrl" validate:"required,http_url"`
}

func TestValidationDetails(t *testing.T) {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	err := v.Struct(checkoutBody{SuccessURL: "javascript:alert(1)"})
	require.Error(t, err)

	details := ValidationDetails(err)

	require.Len(t, details, 2)
	assert.Equal(t, "priceId", details[0].Field)
	assert.Equal(t, "This field is required", details[0].Message)
	assert.Equal(t, "successUrl", details[1].Field)
	assert.Equal(t, "Invalid URL format", details[1].Message)
}

func TestValidationDetails_OtherErrors(t *testing.T) {
	assert.Nil(t, ValidationDetails(errors.New("boom")))
}
