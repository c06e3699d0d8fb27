package deliver

import (
	"net/smtp"
	"strings"
	"testing"
)

func testMailer(captured *[]byte) *Mailer {
	m := NewMailer("smtp.example.com", 587, "user", "pass", "digest@example.com")
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		*captured = append([]byte(nil), msg...)
		return nil
	}
	return m
}

func TestSendBuildsMultipartMessage(t *testing.T) {
	var captured []byte
	m := testMailer(&captured)

	id, err := m.Send([]string{"reader@example.com"}, "Daily Digest", []Attachment{
		{Filename: "kindle-digest-summary-2026-03-01.epub", Data: []byte("PKfake")},
		{Filename: "kindle-digest-full-2026-03-01.epub", Data: []byte("PKfake2")},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, "@kindledigest>") {
		t.Errorf("unexpected message id: %q", id)
	}

	msg := string(captured)
	for _, want := range []string{
		"To: reader@example.com",
		"Subject: Daily Digest",
		"Message-ID: " + id,
		"multipart/mixed",
		"application/epub+zip",
		`filename="kindle-digest-summary-2026-03-01.epub"`,
		`filename="kindle-digest-full-2026-03-01.epub"`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSendRequiresRecipients(t *testing.T) {
	var captured []byte
	m := testMailer(&captured)

	if _, err := m.Send(nil, "Daily Digest", []Attachment{{Filename: "x.epub", Data: []byte("PK")}}); err == nil {
		t.Error("expected error with no recipients")
	}
	if len(captured) != 0 {
		t.Error("no message should be sent without recipients")
	}
}

func TestSendRequiresAttachments(t *testing.T) {
	var captured []byte
	m := testMailer(&captured)

	if _, err := m.Send([]string{"reader@example.com"}, "Daily Digest", nil); err == nil {
		t.Error("expected error with no attachments")
	}
}
