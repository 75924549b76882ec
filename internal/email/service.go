package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"time"

	"github.com/redmonkez12/notes-api/internal/config"
	"github.com/redmonkez12/notes-api/internal/logging"
)

// Service delivers transactional mail over SMTP.
type Service struct {
	smtpHost     string
	smtpAddr     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
}

func NewService(cfg config.EmailConfig) *Service {
	from := cfg.From
	if from == "" {
		from = cfg.SMTPUser
	}

	return &Service{
		smtpHost:     cfg.SMTPHost,
		smtpAddr:     cfg.Address(),
		smtpUser:     cfg.SMTPUser,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    from,
	}
}

// SendPasswordResetCode mails a one-time reset code to the user.
// The SMTP exchange is bounded by ctx's deadline.
func (s *Service) SendPasswordResetCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error {
	logger := logging.GetLoggerFromContext(ctx)

	subject := "Your password reset code"
	body, err := renderPasswordResetCode(code, expiresAt)
	if err != nil {
		logger.Error("failed to render password reset email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(ctx, toEmail, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent")
	return nil
}

func (s *Service) sendEmail(ctx context.Context, to, subject, body string) error {
	if s.smtpHost == "" {
		return fmt.Errorf("smtp host is not configured")
	}

	addr := s.smtpAddr

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.smtpHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.smtpHost}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if s.smtpUser != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := c.Mail(s.fromEmail); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(buildMessage(s.fromEmail, to, subject, body)); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}

	return c.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		from, to, subject, body,
	))
}

var passwordResetTemplate = template.Must(template.New("passwordReset").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #4F46E5;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .code {
            font-size: 32px;
            letter-spacing: 8px;
            font-weight: bold;
            text-align: center;
            margin: 20px 0;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Password Reset Request</h1>
    </div>
    <div class="content">
        <h2>Your reset code</h2>
        <p>Use the code below in the app to choose a new password.</p>

        <p class="code">{{.Code}}</p>

        <p>This code is valid for {{.ValidMinutes}} minutes and expires at {{.ExpiresAt}}.</p>

        <p style="margin-top: 30px;">If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
    </div>
    <div class="footer">
        <p>Never share this code with anyone.</p>
    </div>
</body>
</html>
`))

func renderPasswordResetCode(code string, expiresAt time.Time) (string, error) {
	minutes := int(time.Until(expiresAt).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	var buf bytes.Buffer
	data := struct {
		Code         string
		ValidMinutes int
		ExpiresAt    string
	}{
		Code:         code,
		ValidMinutes: minutes,
		ExpiresAt:    expiresAt.UTC().Format("15:04 MST"),
	}

	if err := passwordResetTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
