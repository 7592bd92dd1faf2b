package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &requestValidator{validate: v}
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// validationMessage renders the first validation failure in Korean.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "잘못된 요청입니다."
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s 필드는 필수입니다.", fe.Field())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s 필드는 최소 %s개 이상이어야 합니다.", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s 필드는 최소 %s자 이상이어야 합니다.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s 필드는 최대 %s 이하여야 합니다.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s 필드가 올바르지 않습니다.", fe.Field())
	}
}
