// internal/gate/gate_test.go
//
// End-to-end admission tests through the HTTP handlers: a valid
// submission, the rate-limit ceiling, CSRF failures, and the two
// bot-deterrence paths.  The email provider is a recording fake, so "no
// email was sent" is observable.
//
// Run: go test ./internal/gate -v

package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aburnley/portfolio-api/internal/contact"
	"github.com/aburnley/portfolio-api/internal/csrf"
	"github.com/aburnley/portfolio-api/internal/message"
	"github.com/aburnley/portfolio-api/internal/ratelimit"
	"github.com/aburnley/portfolio-api/internal/session"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []message.Email
	fail error
}

func (f *fakeSender) Send(_ context.Context, msg message.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fixture struct {
	gate     *Gate
	protocol *csrf.Protocol
	sender   *fakeSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop().Sugar()
	p := csrf.New(csrf.NewStore(), []byte("0123456789abcdef0123456789abcdef"), time.Hour, log)
	l := ratelimit.New(5, 15*time.Minute)
	s := &fakeSender{}
	return &fixture{
		gate:     New(p, l, s, log, 3*time.Second, "no-reply@example.com", "owner@example.com"),
		protocol: p,
		sender:   s,
	}
}

func payload(mutate func(*contact.Submission)) []byte {
	sub := contact.Submission{
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		Message:      "I enjoyed your writeup on analytical engines.",
		FormLoadTime: time.Now().UTC().Add(-10 * time.Second).UnixMilli(),
	}
	if mutate != nil {
		mutate(&sub)
	}
	b, _ := json.Marshal(sub)
	return b
}

// post runs one contact POST with a freshly issued token for sessionID.
func (f *fixture) post(t *testing.T, sessionID string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	iss, err := f.protocol.Issue(sessionID, time.Now().UTC())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(body))
	r.Header.Set(csrf.HeaderToken, iss.Token)
	r.Header.Set(session.Header, iss.SessionID)

	rec := httptest.NewRecorder()
	f.gate.ContactHandler()(rec, r)
	return rec
}

func TestContactHappyPath(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "sess-1", payload(nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Fatalf("remaining header = %q, want 4", got)
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatal("reset header missing")
	}
	if rec.Header().Get(csrf.HeaderToken) == "" {
		t.Fatal("rotated token header missing")
	}

	if f.sender.count() != 1 {
		t.Fatalf("emails sent = %d, want 1", f.sender.count())
	}
	msg := f.sender.sent[0]
	if msg.To != "owner@example.com" || msg.ReplyTo != "ada@example.com" {
		t.Fatalf("unexpected addressing: %+v", msg)
	}
	if !strings.Contains(msg.Subject, "Ada Lovelace") {
		t.Fatalf("subject = %q", msg.Subject)
	}
}

func TestContactRateLimitCeiling(t *testing.T) {
	f := newFixture(t)

	for i := 1; i <= 5; i++ {
		rec := f.post(t, fmt.Sprintf("sess-%d", i), payload(nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	rec := f.post(t, "sess-6", payload(nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("6th request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing on 429")
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("remaining = %q, want 0", got)
	}
	if f.sender.count() != 5 {
		t.Fatalf("emails sent = %d, want 5", f.sender.count())
	}
}

func TestContactMissingTokenIs403(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(payload(nil)))
	r.Header.Set(session.Header, "sess-1")
	rec := httptest.NewRecorder()
	f.gate.ContactHandler()(rec, r)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !strings.Contains(body.Error, "CSRF") || body.Code == "" {
		t.Fatalf("body = %+v", body)
	}
	if f.sender.count() != 0 {
		t.Fatal("no email may be sent on CSRF failure")
	}
}

func TestContactHoneypotSilentAccept(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "sess-1", payload(func(s *contact.Submission) {
		s.Honeypot = "spam"
	}))

	// The bot sees an ordinary success.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if f.sender.count() != 0 {
		t.Fatal("honeypot trip must not send email")
	}
}

func TestContactTooFastIs400(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "sess-1", payload(func(s *contact.Submission) {
		s.FormLoadTime = time.Now().UTC().Add(-time.Second).UnixMilli()
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Code != "TOO_FAST" {
		t.Fatalf("code = %q, want TOO_FAST", body.Code)
	}
	if f.sender.count() != 0 {
		t.Fatal("too-fast submission must not send email")
	}
}

func TestContactValidationFailureIs400(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "sess-1", payload(func(s *contact.Submission) {
		s.Email = "not-an-address"
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Code != "VALIDATION_ERROR" || len(body.Details) == 0 {
		t.Fatalf("body = %+v", body)
	}
	if body.Details[0].Field != "email" {
		t.Fatalf("details = %+v", body.Details)
	}
}

func TestContactProviderFailureIs500Generic(t *testing.T) {
	f := newFixture(t)
	f.sender.fail = fmt.Errorf("smtp 554: relay denied for internal-host")

	rec := f.post(t, "sess-1", payload(nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "relay denied") {
		t.Fatal("provider error text must never reach the client")
	}
	var body errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Code != "EMAIL_ERROR" {
		t.Fatalf("code = %q, want EMAIL_ERROR", body.Code)
	}
}

func TestContactMalformedJSONIs400(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.gate.ContactHandler()(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if f.sender.count() != 0 {
		t.Fatal("malformed body must not send email")
	}
}

func TestTokenHandlerIssuesUsableToken(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodGet, "/api/csrf", nil)
	rec := httptest.NewRecorder()
	f.gate.TokenHandler()(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Token == "" || body.SessionID == "" || body.ExpiresIn != 3600 {
		t.Fatalf("body = %+v", body)
	}
	if rec.Header().Get(csrf.HeaderToken) != body.Token {
		t.Fatal("token header should mirror the body")
	}

	var cookie string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "folio_session" {
			cookie = c.Value
		}
	}
	if cookie != body.SessionID {
		t.Fatalf("session cookie = %q, want %q", cookie, body.SessionID)
	}

	// The issued pair admits a real submission.
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(payload(nil)))
	req.Header.Set(csrf.HeaderToken, body.Token)
	req.Header.Set(session.Header, body.SessionID)
	rec2 := httptest.NewRecorder()
	f.gate.ContactHandler()(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("submission with issued token: status = %d, body = %s", rec2.Code, rec2.Body.String())
	}
}
