// internal/contact/contact.go
//
// Contact-form payload: shape, validation, and sanitization.
//
// Context
//   The browser posts name, email, and message as JSON, plus two fields a
//   human never sees: the honeypot (always empty for real users) and the
//   millisecond timestamp captured when the form was rendered.  This
//   package owns the schema; the gate owns the policy around the hidden
//   fields.  Validation failures come back as field-level errors so the
//   client can highlight exact inputs, the same contract the site's form
//   component consumes.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package contact

import (
	"errors"
	"html"
	"time"

	"github.com/go-playground/validator/v10"
)

// Submission is the inbound contact payload.  Honeypot and FormLoadTime
// are bot-deterrence inputs, not user data; they never reach the email.
type Submission struct {
	Name    string `json:"name"    validate:"required,max=200"`
	Email   string `json:"email"   validate:"required,email,max=320"`
	Message string `json:"message" validate:"required,min=10,max=5000"`

	Honeypot     string `json:"honeypot"`
	FormLoadTime int64  `json:"formLoadTime"` // Unix milliseconds at render
}

// FieldError describes a single validation failure for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var v = validator.New()

// Validate checks the user-facing fields and returns field-level errors.
// An empty slice means the payload is acceptable.
func Validate(s *Submission) []FieldError {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: "Invalid submission."}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: jsonName(fe.Field()), Message: message(fe)})
	}
	return out
}

// Sanitized returns a copy with HTML-escaped free-text fields, safe to
// interpolate into an email body.  The email address is validated, not
// escaped, so it survives as a usable Reply-To.
func (s Submission) Sanitized() Submission {
	s.Name = html.EscapeString(s.Name)
	s.Message = html.EscapeString(s.Message)
	return s
}

// LoadedAt converts the render timestamp to a time.Time.  Zero when the
// client sent no timestamp.
func (s Submission) LoadedAt() time.Time {
	if s.FormLoadTime <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.FormLoadTime)
}

// jsonName maps Go field names to their wire names.
func jsonName(field string) string {
	switch field {
	case "Name":
		return "name"
	case "Email":
		return "email"
	case "Message":
		return "message"
	}
	return field
}

// message renders a user-friendly default per failed tag.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Must be a valid email address."
	case "min":
		return "Too short."
	case "max":
		return "Too long."
	}
	return "Invalid input."
}
