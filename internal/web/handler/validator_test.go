package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Slug         string `json:"slug" validate:"required,slug"`
	Username     string `json:"username" validate:"required,username"`
	Password     string `json:"new_password" validate:"required,min=8"`
	Confirmation string `json:"new_password_confirmation" validate:"eqfield=Password"`
}

func TestValidator(t *testing.T) {
	err := Validator.Struct(&sample{Slug: "git-lab", Username: "alice.b", Password: "long-enough", Confirmation: "long-enough"})
	require.NoError(t, err)

	err = Validator.Struct(&sample{Slug: "Git Lab", Username: "alice b", Password: "short", Confirmation: "other"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, []string{"The slug may only contain lower case letters, numbers and dashes."}, verr.Fields["slug"])
	assert.Contains(t, verr.Fields, "username")
	assert.Equal(t, []string{"The new password must be at least 8 characters."}, verr.Fields["new_password"])
	assert.Equal(t, []string{"The new password confirmation does not match."}, verr.Fields["new_password_confirmation"])
	assert.Equal(t, "The new password must be at least 8 characters.", verr.Message())
}

func TestValidatorRequired(t *testing.T) {
	err := Validator.Struct(&sample{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The slug field is required."}, verr.Fields["slug"])
}
