package middleware

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// invoiceNumberRegex matches invoice numbers of the form F-<year>-<seq>,
// with the per-year sequence zero-padded to at least three digits.
var invoiceNumberRegex = regexp.MustCompile(`^F-\d{4}-\d{3,}$`)

// SetupValidator configures the validator with custom tags
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Use JSON (or form) tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})

		_ = v.RegisterValidation("invoice_number", func(fl validator.FieldLevel) bool {
			return invoiceNumberRegex.MatchString(fl.Field().String())
		})
	}
}
