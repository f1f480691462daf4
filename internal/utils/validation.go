package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/models"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the signup tags registered:
// phone8, license and strongpassword.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "phone8", models.ValidPhoneNumber)
		mustRegister(v, "license", models.ValidLicenseNumber)
		mustRegister(v, "strongpassword", models.ValidPassword)
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, check func(string) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return check(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate performs validation on a struct.
func Validate(s interface{}) error {
	return Validator().Struct(s)
}

var tagMessages = map[string]string{
	"required":       "is required",
	"email":          "must be a valid email address",
	"phone8":         "must be exactly 8 digits",
	"license":        "must be two letters followed by four digits",
	"strongpassword": "must be at least 8 characters with an uppercase letter, a number and a special character",
	"oneof":          "has an unsupported value",
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		msg, ok := tagMessages[e.Tag()]
		if !ok {
			msg = "failed " + e.Tag()
		}
		messages = append(messages, e.Field()+" "+msg)
	}
	return strings.Join(messages, ", ")
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a 400 response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondError(c, apperrors.Validation("invalid request payload"))
		return false
	}
	if err := Validate(obj); err != nil {
		RespondError(c, apperrors.Validation(FormatValidationError(err)))
		return false
	}
	return true
}
