// Package validation checks service input structs with go-playground/validator.
//
// Input structs declare their rules in `validate` tags next to their `json`
// tags:
//
//	type CreateGroupInput struct {
//	    Name string `json:"name" validate:"required,max=100"`
//	}
//
// Struct validates them and turns the first failure into an
// apperror.ValidationFailed whose Field is the JSON name the client sent,
// so the 400 response points at "serving_size", not "ServingSize".
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/recipe-room/internal/apperror"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. It caches struct metadata, so one
// instance is reused for the life of the process.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		_ = validate.RegisterValidation("notblank", notBlank)
	})
	return validate
}

// Struct validates s and returns nil or an *apperror.AppError of kind
// ErrValidation for the first failing field.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}
	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), message(fe))
}

var messages = map[string]string{
	"required": "%s is required",
	"notblank": "%s is required",
	"email":    "%s must be a valid email address",
	"url":      "%s must be a valid URL",
}

var messagesWithParam = map[string]string{
	"min":   "%s must be at least %s characters",
	"max":   "%s must be at most %s characters",
	"gt":    "%s must be greater than %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"oneof": "%s must be one of: %s",
}

func message(fe validator.FieldError) string {
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	if tmpl, ok := messagesWithParam[fe.Tag()]; ok {
		// min/max on numbers are bounds, not lengths.
		if fe.Kind() != reflect.String && (fe.Tag() == "min" || fe.Tag() == "max") {
			if fe.Tag() == "min" {
				return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
			}
			return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
		}
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// notBlank rejects strings that are empty after trimming whitespace.
func notBlank(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(f.String()) != ""
}
