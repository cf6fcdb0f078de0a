package models

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"storefront/internal/apperr"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// validateRecord runs the struct tag constraints and reports the first
// violation as a ValidationError naming the JSON field path.
func validateRecord(record interface{}) error {
	err := recordValidator().Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err
	}

	fe := fieldErrors[0]
	return &apperr.ValidationError{Field: fieldPath(fe.Namespace()), Message: describe(fe)}
}

func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " entry"
		}
		return "must be >= " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "email":
		return "must be a valid email address"
	case "slug":
		return "must contain only lower-case letters, digits and dashes"
	default:
		return "is invalid"
	}
}

// Timestamps tracks creation and last modification of a record.
type Timestamps struct {
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Touch stamps UpdatedAt and, on first write, CreatedAt.
func (t *Timestamps) Touch(now time.Time) {
	now = now.UTC().Truncate(time.Millisecond)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
