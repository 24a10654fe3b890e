package engine

import (
	"strings"
	"testing"
	"time"
)

func TestAlertSubjectAndBody(t *testing.T) {
	mailer := &fakeMailer{}
	a := NewAlerter(mailer, quietLog())
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return at }

	a.Alert("API", "http://api.example.com", "ops@example.com", "CRITICAL FAILURE", "3 failures")

	if mailer.count() != 1 {
		t.Fatalf("expected one mail, got %d", mailer.count())
	}
	m := mailer.sent[0]
	if m.To != "ops@example.com" {
		t.Fatalf("to = %q", m.To)
	}
	if m.Subject != "[CRITICAL FAILURE] Uptime Pulse: API" {
		t.Fatalf("subject = %q", m.Subject)
	}
	for _, want := range []string{
		"Name: API",
		"URL: http://api.example.com",
		"Level: CRITICAL FAILURE",
		"Time: 2024-03-01T12:00:00Z",
		"3 failures",
	} {
		if !strings.Contains(m.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, m.Body)
		}
	}
}

func TestAlertWithoutEmailOnlyLogs(t *testing.T) {
	mailer := &fakeMailer{}
	a := NewAlerter(mailer, quietLog())

	a.Alert("API", "http://api", "", "RECOVERED", "back up")

	if mailer.count() != 0 {
		t.Fatalf("alert without address must not send mail")
	}
}

func TestAlertDeliveryFailureSwallowed(t *testing.T) {
	mailer := &fakeMailer{fail: true}
	a := NewAlerter(mailer, quietLog())

	// Must not panic or propagate.
	a.Alert("API", "http://api", "ops@example.com", "CRITICAL FAILURE", "down")
}

func TestAlertNilMailer(t *testing.T) {
	a := NewAlerter(nil, quietLog())
	a.Alert("API", "http://api", "ops@example.com", "CRITICAL FAILURE", "down")
}
