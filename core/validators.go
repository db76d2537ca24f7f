package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} no puede estar vacío"

	schoolCycleTag   = "ciclo"
	schoolCycleText  = "{0} debe tener el formato AAAA-AAAA"
	schoolCycleRegex = regexp.MustCompile(`^\d{4}-\d{4}$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "{0} es obligatorio"
)

// NewValidator returns a validator with Spanish messages and the custom validators of the application.
func NewValidator() (*validator.Validate, ut.Translator) {
	spanish := es.New()
	uni := ut.New(spanish, spanish)
	translator, _ := uni.GetTranslator("es")
	validate := validator.New()
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = es_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(schoolCycleTag, schoolCycleValidation)
	RegisterCustomTranslation(validate, translator, schoolCycleTag, schoolCycleText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// IsSchoolCycle reports whether s looks like "2024-2025".
func IsSchoolCycle(s string) bool {
	return schoolCycleRegex.MatchString(s)
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func schoolCycleValidation(fl validator.FieldLevel) bool {
	return IsSchoolCycle(fl.Field().String())
}
