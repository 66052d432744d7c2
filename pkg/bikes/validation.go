package bikes

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"klunkaz/pkg/registry"
)

var registerOnce sync.Once

// RegisterValidations adds the "listingmode" tag to gin's validator.
func RegisterValidations() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("listingmode", validListingMode)
		}
	})
}

func validListingMode(fl validator.FieldLevel) bool {
	switch registry.ListingMode(fl.Field().String()) {
	case registry.ModeSale, registry.ModeRent:
		return true
	default:
		return false
	}
}
