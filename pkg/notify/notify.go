// Package notify delivers generated minutes to the configured recipients by
// email. Delivery is best-effort from the pipeline's point of view: a send
// failure is reported but never undoes upstream artifacts.
package notify

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
)

// Notifier sends a minutes document to the operator's recipients.
type Notifier interface {
	// SendMinutes emails the rendered minutes. attachmentPath optionally
	// attaches a file (the transcript); empty means no attachment.
	SendMinutes(ctx context.Context, meetingTitle, markdown, attachmentPath string) error
}

// Mailer is an SMTP Notifier using STARTTLS on the submission port.
type Mailer struct {
	server     string
	port       int
	user       string
	password   string
	recipients []string
	logger     logging.Logger
}

// NewMailer builds a mailer. The password comes from the credential store,
// never from configuration files.
func NewMailer(server string, port int, user, password string, recipients []string, logger logging.Logger) *Mailer {
	return &Mailer{
		server:     server,
		port:       port,
		user:       user,
		password:   password,
		recipients: recipients,
		logger:     logger,
	}
}

// SendMinutes sends one email with the minutes as the text body.
func (m *Mailer) SendMinutes(ctx context.Context, meetingTitle, markdown, attachmentPath string) error {
	if len(m.recipients) == 0 {
		return errors.NewPipelineError(errors.ErrStageSkipped, "notify",
			"no recipients configured", nil)
	}

	subject := "Meeting Minutes: " + meetingTitle
	msg, err := m.buildMessage(subject, markdown, attachmentPath)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.server, fmt.Sprint(m.port))
	if err := m.send(ctx, addr, msg); err != nil {
		return errors.NewPipelineError(errors.ErrCollaboratorFailure, "notify",
			"sending minutes email", err)
	}

	m.logger.Info("minutes emailed",
		logging.F("recipients", len(m.recipients)),
		logging.F("subject", subject))
	return nil
}

// send performs the SMTP conversation: EHLO, STARTTLS, AUTH, MAIL/RCPT/DATA.
func (m *Mailer) send(ctx context.Context, addr string, msg []byte) error {
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}

	// The SMTP conversation below does not take a context; bound it with a
	// connection deadline instead.
	deadline := time.Now().Add(2 * time.Minute)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, m.server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("starting smtp session: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.server}); err != nil {
			return fmt.Errorf("starting tls: %w", err)
		}
	}

	if m.user != "" && m.password != "" {
		auth := smtp.PlainAuth("", m.user, m.password, m.server)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(m.user); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	for _, rcpt := range m.recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("adding recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("opening message body: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing message: %w", err)
	}
	return client.Quit()
}

// buildMessage assembles the MIME message: plain-text minutes plus an
// optional base64 attachment.
func (m *Mailer) buildMessage(subject, body, attachmentPath string) ([]byte, error) {
	var sb strings.Builder
	boundary := "lumina-minutes-boundary"

	fmt.Fprintf(&sb, "From: %s\r\n", m.user)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(m.recipients, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	sb.WriteString("MIME-Version: 1.0\r\n")

	if attachmentPath == "" {
		sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		sb.WriteString(body)
		return []byte(sb.String()), nil
	}

	data, err := os.ReadFile(attachmentPath)
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}

	fmt.Fprintf(&sb, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	sb.WriteString("Content-Type: application/octet-stream\r\n")
	fmt.Fprintf(&sb, "Content-Disposition: attachment; filename=%q\r\n", filepath.Base(attachmentPath))
	sb.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")

	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		sb.WriteString(encoded[:76])
		sb.WriteString("\r\n")
		encoded = encoded[76:]
	}
	sb.WriteString(encoded)
	sb.WriteString("\r\n")
	fmt.Fprintf(&sb, "--%s--\r\n", boundary)

	return []byte(sb.String()), nil
}
