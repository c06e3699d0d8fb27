package deliver

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Attachment is one EPUB document to attach to the digest email.
type Attachment struct {
	Filename string
	Data     []byte
}

// Mailer sends digest emails with EPUB attachments over SMTP.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string

	// send is swapped out in tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer creates an SMTP mailer.
func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		send:     smtp.SendMail,
	}
}

// Send delivers the digest to the recipients and returns the generated
// message id.
func (m *Mailer) Send(to []string, subject string, attachments []Attachment) (string, error) {
	if len(to) == 0 {
		return "", fmt.Errorf("no recipients configured")
	}
	if len(attachments) == 0 {
		return "", fmt.Errorf("nothing to deliver")
	}

	messageID := fmt.Sprintf("<%s@kindledigest>", uuid.NewString())
	msg, err := m.buildMessage(to, subject, messageID, attachments)
	if err != nil {
		return "", err
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := m.send(addr, auth, m.from, to, msg); err != nil {
		return "", fmt.Errorf("sending digest email: %w", err)
	}
	return messageID, nil
}

func (m *Mailer) buildMessage(to []string, subject, messageID string, attachments []Attachment) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	body, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=\"UTF-8\""},
	})
	if err != nil {
		return nil, fmt.Errorf("building message body: %w", err)
	}
	fmt.Fprintf(body, "Your reading digest is attached (%d document(s)).\r\n", len(attachments))

	for _, attachment := range attachments {
		part, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/epub+zip"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", attachment.Filename)},
		})
		if err != nil {
			return nil, fmt.Errorf("building attachment %s: %w", attachment.Filename, err)
		}
		if err := writeBase64(part, attachment.Data); err != nil {
			return nil, fmt.Errorf("encoding attachment %s: %w", attachment.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 encodes data in 76-character lines per RFC 2045.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:n]); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
