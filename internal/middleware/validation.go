package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// phoneValidator accepts the phone strings the desk types in: 7 to 15
// digits, with spaces, hyphens, dots and a leading + permitted as
// separators. The stored value keeps whatever formatting was entered;
// the phone is an opaque natural key.
func phoneValidator(fl validator.FieldLevel) bool {
	digits := 0
	for i, r := range fl.Field().String() {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '.':
		case r == '+' && i == 0:
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// RegisterValidators installs custom binding validators on gin's validator
// engine. Call once before serving requests.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	if err := v.RegisterValidation("phone", phoneValidator); err != nil {
		panic(err)
	}

	// Report field names as their JSON keys so validation errors match the
	// request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}
