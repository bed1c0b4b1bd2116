package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Balance tier validation (admin adjustments)
	validate.RegisterValidation("credit_tier", func(fl validator.FieldLevel) bool {
		tier := fl.Field().String()
		return tier == "free" || tier == "purchased"
	})

	// Operation type validation for pricing entries
	validate.RegisterValidation("operation_type", func(fl validator.FieldLevel) bool {
		op := fl.Field().String()
		if op == "" {
			return false
		}
		for _, r := range op {
			if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
				return false
			}
		}
		return true
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is below the allowed minimum"
		case "max":
			errors[field] = "Value is above the allowed maximum"
		case "credit_tier":
			errors[field] = "Tier must be 'free' or 'purchased'"
		case "operation_type":
			errors[field] = "Operation type must be lowercase snake_case"
		case "url":
			errors[field] = "Must be a valid URL"
		default:
			errors[field] = "Invalid value"
		}
	}
	return errors
}
