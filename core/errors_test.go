package core

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeValidation(t *testing.T) {
	validate, _ := NewValidator()
	type payload struct {
		Name string `json:"nombre" validate:"required"`
	}
	vErr := validate.Struct(payload{})
	require.Error(t, vErr)

	fechaFin := FieldError{Field: "fechaFin", Error: "fechaFin es obligatorio"}

	assert.NoError(t, MergeValidation(nil))

	err := MergeValidation(nil, fechaFin)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []FieldError{fechaFin}, verr.Fields)
	assert.Nil(t, verr.Err)

	err = MergeValidation(vErr, fechaFin)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []FieldError{fechaFin}, verr.Fields)
	_, ok := verr.Err.(validator.ValidationErrors)
	assert.True(t, ok)

	// first message for a field wins
	parsed := FieldError{Field: "fechaFin", Error: `fecha inválida "ayer"`}
	err = MergeValidation(err, parsed)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []FieldError{parsed}, verr.Fields)

	other := errors.New("db down")
	assert.Equal(t, other, MergeValidation(other, fechaFin))
}
