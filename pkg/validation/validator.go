// Package validation checks request payloads and ingestion records with
// go-playground/validator and collects configuration errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxListingSetIDs = 100
	MaxUsernameLen   = 64

	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@-]+$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(fieldName)
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// fieldName reports a field by the name callers know it by: the upload column
// for ingestion records, the JSON key for request payloads.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"csv", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// UserCreate is the payload for creating an account.
type UserCreate struct {
	Username string `json:"username" validate:"required,max=64,username"`
	FullName string `json:"full_name" validate:"omitempty,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin analyst"`
}

// Struct validates any tagged struct and reports the first failure as a
// *schema.ValidationError.
func Struct(v any) error {
	if v == nil {
		return &schema.ValidationError{Reason: "payload cannot be nil"}
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateRecord checks a decoded ingestion row. row is 1-based and carried
// into the error.
func ValidateRecord(row int, rec *schema.Record) error {
	if rec == nil {
		return &schema.ValidationError{Row: row, Reason: "record cannot be nil"}
	}
	if err := Struct(rec); err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			ve.Row = row
		}
		return err
	}
	return nil
}

// ValidateListingSetCreate validates the name and description of a new set.
func ValidateListingSetCreate(req *schema.ListingSetCreate) error {
	if req == nil {
		return &schema.ValidationError{Reason: "listing set request cannot be nil"}
	}
	req.Name = strings.TrimSpace(req.Name)
	return Struct(req)
}

// ValidateUserCreate validates a new account.
func ValidateUserCreate(req *UserCreate) error {
	if req == nil {
		return &schema.ValidationError{Reason: "user request cannot be nil"}
	}
	return Struct(req)
}

// ValidateListingSetIDs bounds the id list of a visualize request.
func ValidateListingSetIDs(ids []string) error {
	if len(ids) > MaxListingSetIDs {
		return &schema.ValidationError{
			Field:  "listing_set_ids",
			Reason: fmt.Sprintf("at most %d ids allowed, got %d", MaxListingSetIDs, len(ids)),
		}
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return &schema.ValidationError{
				Field:  "listing_set_ids",
				Reason: fmt.Sprintf("id at index %d is empty", i),
			}
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		var reason string
		switch e.Tag() {
		case "required":
			reason = "field is required"
		case "min":
			reason = "must be at least " + param
		case "max":
			reason = "must not exceed " + param
		case "oneof":
			reason = "must be one of " + param
		case "username":
			reason = "may only contain letters, digits and . _ @ -"
		default:
			reason = fmt.Sprintf("validation failed (%s)", e.Tag())
		}
		return &schema.ValidationError{Field: field, Reason: reason}
	}

	return err
}
