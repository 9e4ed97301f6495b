package validator

import (
	"reflect"
	"strings"
	"time"

	"consultation-service/pkg/datetime"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("appointment", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(datetime.DateTimeLayout, fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := datetime.ParseDuration(fl.Field().String())
		return err == nil
	})

	return &CustomValidator{
		validator: v,
	}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = field + " is required"
			case "email":
				errors[field] = field + " must be a valid email address"
			case "min":
				errors[field] = field + " must be at least " + e.Param() + " characters"
			case "max":
				errors[field] = field + " must be at most " + e.Param() + " characters"
			case "gte":
				errors[field] = field + " must be greater than or equal to " + e.Param()
			case "lte":
				errors[field] = field + " must be less than or equal to " + e.Param()
			case "oneof":
				errors[field] = field + " must be one of " + e.Param()
			case "appointment":
				errors[field] = field + " must use the dd/MM/yyyy HH:mm format"
			case "hhmm":
				errors[field] = field + " must use the HH:mm format"
			default:
				errors[field] = field + " is invalid"
			}
		}
	}

	return errors
}
