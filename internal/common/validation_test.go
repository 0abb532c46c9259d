package common

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsFailures(t *testing.T) {
	err := NewValidator().
		Field("id", "abc", Required, UUID).
		Field("from_date", "2024/01/01", DateYMD).
		Field("data", []byte("12345"), MaxBytes(4)).
		Err()
	require.Error(t, err)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t,
		"validation failed for field 'id': must be a valid UUID; "+
			"validation failed for field 'from_date': must be YYYY-MM-DD; "+
			"validation failed for field 'data': must be at most 4 bytes",
		MessageOf(err))
}

func TestValidatorPasses(t *testing.T) {
	v := NewValidator().
		Field("id", uuid.NewString(), Required, UUID).
		Field("from_date", "", DateYMD).
		Field("to_date", "2024-02-29", DateYMD).
		Field("data", []byte("1234"), Required, MaxBytes(4))
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Err())
	assert.Empty(t, v.ErrorMessage())
}

func TestRequired(t *testing.T) {
	assert.NotNil(t, Required("f", nil))
	assert.NotNil(t, Required("f", "  "))
	assert.NotNil(t, Required("f", []byte{}))
	assert.Nil(t, Required("f", "x"))
	assert.Nil(t, Required("f", 0))
}

func TestUUIDRejectsNonString(t *testing.T) {
	ve := UUID("id", 42)
	require.NotNil(t, ve)
	assert.Equal(t, "must be a string", ve.Message)
}
