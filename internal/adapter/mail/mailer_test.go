package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/caimari/musedock/internal/domain"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("support@musedock.net", domain.Mail{
		To:      "maria@example.com",
		Subject: "Your site is ready",
		Body:    "Welcome aboard.",
	}))

	headers, body, found := strings.Cut(msg, "\r\n\r\n")
	if !found {
		t.Fatal("message has no header/body separator")
	}

	for _, want := range []string{
		"From: support@musedock.net",
		"To: maria@example.com",
		"Subject: Your site is ready",
		"Content-Type: text/plain; charset=utf-8",
	} {
		if !strings.Contains(headers, want) {
			t.Errorf("headers missing %q:\n%s", want, headers)
		}
	}

	if body != "Welcome aboard." {
		t.Errorf("body = %q, want %q", body, "Welcome aboard.")
	}
}

func TestSend_CanceledContext(t *testing.T) {
	m := New(Config{Host: "localhost", Port: 2525, From: "support@musedock.net"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Send(ctx, domain.Mail{To: "maria@example.com"}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
