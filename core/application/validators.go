package application

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/enrollment"
)

var (
	gradeLevelTag  = "gradelevel"
	gradeLevelText = "unknown grade level"
)

// InitValidators registers the application package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(gradeLevelTag, gradeLevelValidation)
	core.RegisterCustomTranslation(validate, translator, gradeLevelTag, gradeLevelText)
}

// gradeLevelValidation checks that the grade level has a canonical subject list.
func gradeLevelValidation(fl validator.FieldLevel) bool {
	_, ok := enrollment.CanonicalSubjects(fl.Field().String())
	return ok
}
