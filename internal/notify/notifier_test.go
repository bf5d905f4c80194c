package notify

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLogNotifierNeverFails(t *testing.T) {
	n := &LogNotifier{Log: zerolog.Nop()}
	if err := n.Send("someone@clinic.test", "subject", "body"); err != nil {
		t.Errorf("Send() = %v, want nil", err)
	}
}

func TestSMTPNotifierMessageFormat(t *testing.T) {
	// Headers and body must be separated by a blank line per RFC 5322.
	n := &SMTPNotifier{From: "noreply@clinic.test"}
	msg := "From: noreply@clinic.test\r\nTo: a@b.test\r\nSubject: hi\r\n\r\nbody\r\n"
	got := formatMessage(n.From, "a@b.test", "hi", "body")
	if got != msg {
		t.Errorf("message = %q, want %q", got, msg)
	}
}
