package mail

import (
	"log/slog"
	"strings"
	"testing"
)

func TestSendSkippedWithoutCredentials(t *testing.T) {
	m := NewSMTPMailer(Config{FrontendURL: "https://example.com"}, slog.Default())
	if err := m.SendVerification("user@example.com", "tok123"); err != nil {
		t.Fatalf("unconfigured mailer should not error: %v", err)
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("from@example.com", "to@example.com", "Verify your email", "<p>hi</p>")
	for _, want := range []string{
		"From: from@example.com\r\n",
		"To: to@example.com\r\n",
		"Subject: Verify your email\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"\r\n\r\n<p>hi</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestTemplatesEmbedLink(t *testing.T) {
	link := "https://example.com/verify-email?token=abc"
	if body := verificationBody(link); !strings.Contains(body, link) || !strings.Contains(body, "24 hours") {
		t.Fatalf("verification body wrong:\n%s", body)
	}
	if body := resetBody(link); !strings.Contains(body, link) || !strings.Contains(body, "1 hour") {
		t.Fatalf("reset body wrong:\n%s", body)
	}
}

func TestNopMailerRecords(t *testing.T) {
	var n NopMailer
	if err := n.SendVerification("a@b.c", "t1"); err != nil {
		t.Fatal(err)
	}
	if err := n.SendPasswordReset("a@b.c", "t2"); err != nil {
		t.Fatal(err)
	}
	if len(n.Verifications) != 1 || n.Verifications[0] != "a@b.c:t1" {
		t.Fatalf("verifications = %v", n.Verifications)
	}
	if len(n.Resets) != 1 || n.Resets[0] != "a@b.c:t2" {
		t.Fatalf("resets = %v", n.Resets)
	}
}
