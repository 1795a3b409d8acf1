package validation

import (
	"fmt"
	"reflect"
	"strings"

	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				return false
			}
			field = field.Elem()
		}
		if field.Kind() != reflect.String {
			return !field.IsZero()
		}
		return strings.TrimSpace(field.String()) != ""
	})
	return v
}

// Struct validates dest and reports every violation at once as a
// validation error keyed by the dotted json path of each field.
func Struct(dest any) error {
	fields := Fields(dest)
	if len(fields) == 0 {
		return nil
	}
	return pkgerrors.Validation(fields)
}

// Fields returns the field violations for dest without wrapping them.
func Fields(dest any) pkgerrors.FieldErrors {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.FieldErrors{"_": err.Error()}
	}
	fields := pkgerrors.FieldErrors{}
	for _, fieldErr := range errs {
		fields[fieldKey(fieldErr)] = validationMessage(fieldErr)
	}
	return fields
}

// Merge copies src into dst, keeping the first message for a key.
func Merge(dst, src pkgerrors.FieldErrors) pkgerrors.FieldErrors {
	if dst == nil {
		dst = pkgerrors.FieldErrors{}
	}
	for key, msg := range src {
		if _, exists := dst[key]; !exists {
			dst[key] = msg
		}
	}
	return dst
}

// Prefix namespaces every key of fields under prefix.
func Prefix(prefix string, fields pkgerrors.FieldErrors) pkgerrors.FieldErrors {
	if len(fields) == 0 {
		return fields
	}
	out := make(pkgerrors.FieldErrors, len(fields))
	for key, msg := range fields {
		out[prefix+"."+key] = msg
	}
	return out
}

func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return "is invalid"
}
