package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
)

// Mailer 通过 SMTP（STARTTLS + PLAIN 认证）投递带附件的日报邮件。
type Mailer struct {
	from     string
	password string
	to       string
	host     string
	addr     string // host:port
}

func New(from, password, to, host, addr string) *Mailer {
	return &Mailer{
		from:     from,
		password: password,
		to:       to,
		host:     host,
		addr:     addr,
	}
}

// SendReport 发送一封正文加附件的报表邮件。
func (m *Mailer) SendReport(subject, body, filename string, attachment []byte) error {
	msg, err := BuildMessage(m.from, m.to, subject, body, filename, attachment)
	if err != nil {
		return fmt.Errorf("assemble report mail: %w", err)
	}

	auth := smtp.PlainAuth("", m.from, m.password, m.host)
	if err := smtp.SendMail(m.addr, auth, m.from, []string{m.to}, msg); err != nil {
		return fmt.Errorf("send report mail: %w", err)
	}
	return nil
}

// BuildMessage 组装 multipart/mixed 邮件：纯文本正文 + base64 附件。
func BuildMessage(from, to, subject, body, filename string, attachment []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", mw.Boundary())
	buf.WriteString("\r\n")

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=UTF-8")
	part, err := mw.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(body + "\r\n")); err != nil {
		return nil, err
	}

	attHeader := textproto.MIMEHeader{}
	attHeader.Set("Content-Type", "application/octet-stream")
	attHeader.Set("Content-Transfer-Encoding", "base64")
	attHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	part, err = mw.CreatePart(attHeader)
	if err != nil {
		return nil, err
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(attachment)))
	base64.StdEncoding.Encode(encoded, attachment)
	if _, err := part.Write(encoded); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
