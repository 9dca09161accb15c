package config

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var dictCodePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.:-]*$`)

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("dictcode", isDictCode); err != nil {
		return nil, nil, fmt.Errorf("failed to register dictcode validation: %w", err)
	}
	if err := validate.RegisterTranslation("dictcode", trans, func(ut ut.Translator) error {
		return ut.Add("dictcode", "{0} must be a dictionary code starting with a letter", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("dictcode", strings.TrimPrefix(fe.Namespace(), "Config."))
		return t
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to register dictcode translation: %w", err)
	}

	return validate, trans, nil
}

func isDictCode(fl validator.FieldLevel) bool {
	return dictCodePattern.MatchString(fl.Field().String())
}
