// internal/contact/contact_test.go
//
// Schema validation and sanitization of the contact payload.
//
// Run: go test ./internal/contact -v

package contact

import (
	"testing"
	"time"
)

func valid() Submission {
	return Submission{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Message: "I enjoyed your writeup on analytical engines.",
	}
}

func TestValidateAcceptsWellFormedPayload(t *testing.T) {
	s := valid()
	if errs := Validate(&s); len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
}

func TestValidateFieldErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Submission)
		field  string
	}{
		{"missing name", func(s *Submission) { s.Name = "" }, "name"},
		{"missing email", func(s *Submission) { s.Email = "" }, "email"},
		{"bad email", func(s *Submission) { s.Email = "not-an-address" }, "email"},
		{"short message", func(s *Submission) { s.Message = "hi" }, "message"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(&s)
			errs := Validate(&s)
			if len(errs) == 0 {
				t.Fatal("expected a field error")
			}
			if errs[0].Field != tc.field {
				t.Fatalf("field = %q, want %q", errs[0].Field, tc.field)
			}
			if errs[0].Message == "" {
				t.Fatal("expected a user-facing message")
			}
		})
	}
}

func TestSanitizedEscapesFreeText(t *testing.T) {
	s := valid()
	s.Name = `<script>alert("x")</script>`
	s.Message = "a <b>bold</b> claim that runs long enough to pass"

	clean := s.Sanitized()
	if clean.Name != "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;" {
		t.Fatalf("name not escaped: %q", clean.Name)
	}
	if clean.Message != "a &lt;b&gt;bold&lt;/b&gt; claim that runs long enough to pass" {
		t.Fatalf("message not escaped: %q", clean.Message)
	}
	// Email survives untouched; it is validated, not rendered.
	if clean.Email != s.Email {
		t.Fatalf("email changed: %q", clean.Email)
	}
}

func TestLoadedAt(t *testing.T) {
	var s Submission
	if !s.LoadedAt().IsZero() {
		t.Fatal("missing timestamp should map to zero time")
	}

	s.FormLoadTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	if got := s.LoadedAt(); got.UnixMilli() != s.FormLoadTime {
		t.Fatalf("LoadedAt = %v", got)
	}
}
