package compliance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/kdadks/eyogi/core"
)

var (
	targetRoleTag  = "targetrole"
	targetRoleText = "must be one of: teacher, parent, student"

	itemTypeTag  = "itemtype"
	itemTypeText = "must be one of: form_submission, verification, document_upload"

	fieldTypeTag  = "fieldtype"
	fieldTypeText = "unknown field type"

	reviewActionTag  = "reviewaction"
	reviewActionText = "must be one of: approve, reject"
)

// RegisterValidators installs the compliance-specific validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(targetRoleTag, targetRoleValidation)
	core.RegisterCustomTranslation(validate, translator, targetRoleTag, targetRoleText)

	_ = validate.RegisterValidation(itemTypeTag, itemTypeValidation)
	core.RegisterCustomTranslation(validate, translator, itemTypeTag, itemTypeText)

	_ = validate.RegisterValidation(fieldTypeTag, fieldTypeValidation)
	core.RegisterCustomTranslation(validate, translator, fieldTypeTag, fieldTypeText)

	_ = validate.RegisterValidation(reviewActionTag, reviewActionValidation)
	core.RegisterCustomTranslation(validate, translator, reviewActionTag, reviewActionText)
}

func targetRoleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}

func itemTypeValidation(fl validator.FieldLevel) bool {
	return ItemType(fl.Field().String()).Valid()
}

func fieldTypeValidation(fl validator.FieldLevel) bool {
	return FieldType(fl.Field().String()).Valid()
}

func reviewActionValidation(fl validator.FieldLevel) bool {
	return ReviewAction(fl.Field().String()).Valid()
}
