package school

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	audienceTag  = "audience"
	audienceText = "invalid audience"
)

// InitValidators registers the domain validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(audienceTag, audienceValidation)
	core.RegisterCustomTranslation(validate, translator, audienceTag, audienceText)
}

func roleValidation(fl validator.FieldLevel) bool {
	return IsRole(fl.Field().String())
}

func audienceValidation(fl validator.FieldLevel) bool {
	for _, a := range AllAudiences {
		if a == fl.Field().String() {
			return true
		}
	}
	return false
}
