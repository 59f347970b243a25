package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"usersapi/internal/core/domain"
	"usersapi/internal/core/model/response"
	"usersapi/internal/core/validation"
)

var (
	Validator  *validator.Validate
	Translator ut.Translator
)

func init() {
	Validator = validator.New(validator.WithRequiredStructEnabled())

	// report json names so errors line up with the request body
	Validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)

	var found bool
	Translator, found = uni.GetTranslator("en")

	if !found {
		panic("translator en not found")
	}

	if err := en_translations.RegisterDefaultTranslations(Validator, Translator); err != nil {
		panic(err)
	}

	registerCustomValidations()
	addCustomTranslations()
}

func registerCustomValidations() {
	Validator.RegisterValidation("us_phone", func(fl validator.FieldLevel) bool {
		return validation.IsUSPhone(fl.Field().String())
	})

	Validator.RegisterValidation("iso_date", func(fl validator.FieldLevel) bool {
		_, err := validation.ParseDate(fl.Field().String())
		return err == nil
	})
}

func addCustomTranslations() {
	Validator.RegisterTranslation("required", Translator, func(ut ut.Translator) error {
		return ut.Add("required", "{0} is required", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("required", fe.Field())
		return t
	})

	Validator.RegisterTranslation("email", Translator, func(ut ut.Translator) error {
		return ut.Add("email", "{0} must be a valid email address", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("email", fe.Field())
		return t
	})

	Validator.RegisterTranslation("us_phone", Translator, func(ut ut.Translator) error {
		return ut.Add("us_phone", "{0} must be a valid US phone number", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("us_phone", fe.Field())
		return t
	})

	Validator.RegisterTranslation("iso_date", Translator, func(ut ut.Translator) error {
		return ut.Add("iso_date", "{0} must be a date formatted as YYYY-MM-DD", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("iso_date", fe.Field())
		return t
	})
}

// FormatValidationErrors renders validator and domain validation errors as
// field/message pairs. Other errors yield nil.
func FormatValidationErrors(err error) []response.ValidationError {
	var result []response.ValidationError

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, fieldError := range fieldErrors {
			result = append(result, response.ValidationError{
				Field:   fieldError.Field(),
				Message: fieldError.Translate(Translator),
			})
		}
		return result
	}

	var domainErr *domain.ValidationError
	if errors.As(err, &domainErr) {
		return []response.ValidationError{{Field: domainErr.Field, Message: domainErr.Message}}
	}

	return nil
}
