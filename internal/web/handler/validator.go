package handler

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`) //nolint:gochecknoglobals
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)         //nolint:gochecknoglobals
)

// XValidator validates request bodies and reports errors by JSON field name.
type XValidator struct {
	validate *validator.Validate
}

// Validator is the shared request validator.
var Validator = NewValidator() //nolint:gochecknoglobals

// NewValidator creates a validator with the portal's custom rules.
func NewValidator() *XValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}

		return name
	})

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return &XValidator{validate: v}
}

// Struct validates data. The error is a *ValidationError.
func (x *XValidator) Struct(data any) error {
	err := x.validate.Struct(data)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}

	return out
}

// Bind decodes the request body into out and validates it.
func Bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return NewValidationError("body", "The request body could not be parsed.")
	}

	return Validator.Struct(out)
}

//nolint:cyclop
func message(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s must be at least %s characters.", field, fe.Param())
		}

		return fmt.Sprintf("The %s must be at least %s.", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
		}

		return fmt.Sprintf("The %s may not be greater than %s.", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", strings.TrimSuffix(field, " confirmation"))
	case "url", "http_url":
		return fmt.Sprintf("The %s must be a valid URL.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "slug":
		return fmt.Sprintf("The %s may only contain lower case letters, numbers and dashes.", field)
	case "username":
		return fmt.Sprintf("The %s may only contain letters, numbers, dots, hyphens and underscores.", field)
	default:
		return fmt.Sprintf("The %s is invalid.", field)
	}
}
