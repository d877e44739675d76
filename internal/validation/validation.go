// Package validation checks form input before anything reaches the auth
// gateway or the store.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError maps form field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// SignInForm is the sign-in form for both the customer and the admin tab.
type SignInForm struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

// RegisterForm is the customer registration form.
type RegisterForm struct {
	FullName        string `form:"full_name" json:"full_name" validate:"required,max=120"`
	Mobile          string `form:"mobile" json:"mobile" validate:"required,min=7,max=20"`
	Email           string `form:"email" json:"email" validate:"required,email"`
	Password        string `form:"password" json:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" validate:"required,eqfield=Password"`
	AcceptTerms     bool   `form:"terms" json:"terms" validate:"eq=true"`
}

// ProfileForm is the editable part of a profile.
type ProfileForm struct {
	FullName string `form:"full_name" json:"full_name" validate:"required,max=120"`
	Mobile   string `form:"mobile" json:"mobile" validate:"omitempty,min=7,max=20"`
}

// EnquiryForm is a customer enquiry. CarID is optional.
type EnquiryForm struct {
	CarID   string `form:"car_id" json:"car_id" validate:"omitempty,max=64"`
	Subject string `form:"subject" json:"subject" validate:"required,max=200"`
	Message string `form:"message" json:"message" validate:"required,max=4000"`
}

// BookingForm books a car for the signed-in customer.
type BookingForm struct {
	CarID string `form:"car_id" json:"car_id" validate:"required,max=64"`
}

// ReplyForm is an admin reply to an enquiry.
type ReplyForm struct {
	Reply string `form:"reply" json:"reply" validate:"required,max=4000"`
}

// BookingStatusForm changes a booking's status and/or NOC status.
type BookingStatusForm struct {
	Status    string `form:"status" json:"status" validate:"omitempty,oneof=pending advance_paid confirmed noc_processing completed cancelled"`
	NocStatus string `form:"noc_status" json:"noc_status" validate:"omitempty,oneof=pending in_process ready"`
}

// CarStatusForm changes a car's status.
type CarStatusForm struct {
	Status string `form:"status" json:"status" validate:"required,oneof=available booked sold"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their form names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("form")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates a form and returns a *ValidationError listing every failing field.
func Struct(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "eqfield":
		return "passwords do not match"
	case "eq":
		if fe.Field() == "terms" {
			return "you must accept the terms and conditions"
		}
		return "is invalid"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
