// Package validation validates decoded API request bodies and renders translated messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	apperrors "github.com/target/verifyd/internal/errors"
)

// Validator pairs a validator instance with its English translator.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	once     sync.Once
	instance *Validator
)

// Default returns the shared Validator, building it on first use.
func Default() *Validator {
	once.Do(func() {
		instance = MustNew()
	})
	return instance
}

// New builds a Validator that reports fields by their json names.
func New() (*Validator, error) {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, found := uni.GetTranslator("en")
	if !found {
		return nil, errors.New("english translator not registered")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})

	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("register default translations: %w", err)
	}
	if err := registerNotBlank(v, trans); err != nil {
		return nil, err
	}

	return &Validator{validate: v, translator: trans}, nil
}

// MustNew is like New but panics on error.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast on startup misconfiguration
		panic(fmt.Sprintf("failed to build validator: %v", err))
	}
	return v
}

// Struct validates s and returns an *apperrors.AppError with code validation naming the first failing field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "validator misuse")
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.ValidationField(fe.Field(), fe.Translate(v.translator))
	}
	return apperrors.Validation(err.Error())
}

// notblank rejects strings that are empty once trimmed.
func registerNotBlank(v *validator.Validate, trans ut.Translator) error {
	err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	if err != nil {
		return fmt.Errorf("register notblank: %w", err)
	}
	err = v.RegisterTranslation("notblank", trans,
		func(ut ut.Translator) error {
			return ut.Add("notblank", "{0} is a required field", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("notblank", fe.Field())
			return msg
		},
	)
	if err != nil {
		return fmt.Errorf("register notblank translation: %w", err)
	}
	return nil
}
