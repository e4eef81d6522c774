package transport

import (
	"hvac_crm_backend/internal/leads/domain"
	"hvac_crm_backend/platform/validator"
)

// RegisterValidations adds the lead_status and lead_action tags used by the
// request types in this package.
func RegisterValidations(val *validator.Validator) {
	_ = val.RegisterValidation("lead_status", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseStatus(fl.Field().String())
		return err == nil
	})
	_ = val.RegisterValidation("lead_action", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseAction(fl.Field().String())
		return err == nil
	})
}
