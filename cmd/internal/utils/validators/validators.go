package validators

import (
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// New returns a validator with the custom tags registered and field names reported
// by their json tag.
func New() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	Register(validate)
	return validate
}

func Register(validate *validator.Validate) {
	_ = validate.RegisterValidation("hasupper", HasUpper)
	_ = validate.RegisterValidation("haslower", HasLower)
	_ = validate.RegisterValidation("hasdigit", HasDigit)
	_ = validate.RegisterValidation("hasspecial", HasSpecial)
	_ = validate.RegisterValidation("nospaces", NoWhiteSpaces)
	_ = validate.RegisterValidation("iso8601", IsIso8601)
}

func HasUpper(fl validator.FieldLevel) bool {
	return containsFunc(fl.Field().String(), unicode.IsUpper)
}

func HasLower(fl validator.FieldLevel) bool {
	return containsFunc(fl.Field().String(), unicode.IsLower)
}

func HasDigit(fl validator.FieldLevel) bool {
	return containsFunc(fl.Field().String(), unicode.IsDigit)
}

func HasSpecial(fl validator.FieldLevel) bool {
	return containsFunc(fl.Field().String(), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func NoWhiteSpaces(fl validator.FieldLevel) bool {
	return !containsFunc(fl.Field().String(), unicode.IsSpace)
}

// IsIso8601 accepts RFC3339 timestamps, e.g. 2030-01-01T10:00:00Z.
func IsIso8601(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}

func containsFunc(s string, f func(rune) bool) bool {
	return strings.IndexFunc(s, f) >= 0
}
