package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `validate:"required,alphanum"`
	Password string `validate:"required,min=6"`
}

func TestValidationErr(t *testing.T) {
	req := require.New(t)
	v := validator.New()

	err := v.Struct(signup{Username: "bad name", Password: "abc"})
	var ve validator.ValidationErrors
	req.True(errors.As(err, &ve))

	out := ValidationErr(ve)
	req.Len(out, 2)
	req.Equal("Username", out[0].Field)
	req.Equal("alphanum", out[0].Tag)
	req.Equal("Password", out[1].Field)
	req.Equal("Must be at least 6 characters.", out[1].Message)
}
