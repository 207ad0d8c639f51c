// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces ownership, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Services take the authenticated user id as an explicit parameter and never
// trust an owner id found in a payload. Every mutation runs inside
// Store.WithinTx, so a failure after the first write rolls everything back.
//
// Errors are apperror values; the handler maps them to status codes.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/inventory-service/internal/apperror"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole package.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so messages match the payload.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return v
}

// checkStruct validates s against its `validate` tags.
func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("service: validating %T: %w", s, err)
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return apperror.ValidationFields(fields)
}

// fieldErrors collects messages for values that are validated one at a time,
// typically optional fields of an update.
type fieldErrors map[string]string

// check validates value against tag and records the first failure for field.
func (fe fieldErrors) check(field string, value any, tag string) {
	if _, seen := fe[field]; seen {
		return
	}
	err := validate.Var(value, tag)
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe[field] = fieldMessage(ves[0])
	}
}

func (fe fieldErrors) add(field, message string) {
	if _, seen := fe[field]; !seen {
		fe[field] = message
	}
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return apperror.ValidationFields(fe)
}

// fieldPath drops the root struct name from the namespace, leaving the
// JSON path: "products[1].product_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if isString {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if isString {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "is invalid (" + fe.Tag() + ")"
}
