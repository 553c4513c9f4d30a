package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "practicelab/errors"
)

type credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password,omitempty" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(credentials{Email: "a@b.c", Password: "x"}))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Validate(credentials{Quantity: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	var coded *apperrors.Error
	require.ErrorAs(t, err, &coded)
	details, ok := coded.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["email"])
	assert.Equal(t, "is required", details["password"])
	assert.Equal(t, "must be greater than or equal to 0", details["quantity"])
}
