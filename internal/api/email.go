package api

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"
)

// MissedAlertData feeds the missed-check-in alert template.
type MissedAlertData struct {
	SenderName string
	PingDate   string
	Deadline   string
	AppURL     string
	Year       int
}

var missedAlertTemplate = template.Must(template.New("missed-alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Missed check-in</h2>
  <p><strong>{{.SenderName}}</strong> did not complete their safety check-in for {{.PingDate}}.</p>
  <p>The check-in deadline was {{.Deadline}}.</p>
  <p>You may want to reach out to them directly.</p>
  <p><a href="{{.AppURL}}">Open Vigil</a></p>
  <p style="color: #888; font-size: 12px;">&copy; {{.Year}} Vigil</p>
</body>
</html>`))

// GenerateMissedAlertEmail renders the HTML alert body for a missed ping.
func GenerateMissedAlertEmail(senderName, pingDate string, deadline time.Time) (string, error) {
	data := MissedAlertData{
		SenderName: senderName,
		PingDate:   pingDate,
		Deadline:   deadline.Format("3:04 PM MST"),
		AppURL:     getAppURL(),
		Year:       time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := missedAlertTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute alert template: %w", err)
	}
	return buf.String(), nil
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// GetSMTPConfig reads SMTP configuration from environment variables.
func GetSMTPConfig() (*SMTPConfig, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST not configured")
	}

	port := 587
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@vigil.app"
	}

	useTLS := true
	if v := os.Getenv("SMTP_USE_TLS"); v != "" {
		useTLS = strings.ToLower(v) != "false"
	}

	return &SMTPConfig{
		Host:     host,
		Port:     port,
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASS"),
		From:     from,
		UseTLS:   useTLS,
	}, nil
}

// SendMissedAlertEmail mails a receiver about a sender's missed check-in.
// Missing SMTP configuration is not an error: push remains the primary
// channel and mail is best-effort.
func SendMissedAlertEmail(receiverEmail, senderName, pingDate string, deadline time.Time) error {
	config, err := GetSMTPConfig()
	if err != nil {
		log.Printf("SMTP not configured, skipping alert email: %v", err)
		return nil
	}

	htmlContent, err := GenerateMissedAlertEmail(senderName, pingDate, deadline)
	if err != nil {
		return fmt.Errorf("failed to generate alert email: %w", err)
	}

	subject := fmt.Sprintf("Vigil alert: %s missed their check-in", senderName)
	return sendSMTPEmail(config, receiverEmail, subject, htmlContent)
}

// sendSMTPEmail sends a multipart text+HTML email via SMTP.
func sendSMTPEmail(config *SMTPConfig, to, subject, htmlBody string) error {
	boundary := "----=_Part_0_1234567890.1234567890"

	message := fmt.Sprintf("From: %s\r\n", config.From)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "MIME-Version: 1.0\r\n"
	message += fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	message += "\r\n"

	message += fmt.Sprintf("--%s\r\n", boundary)
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "Content-Transfer-Encoding: 7bit\r\n"
	message += "\r\n"
	message += "Please view this email in an HTML-capable email client.\r\n"
	message += "\r\n"

	message += fmt.Sprintf("--%s\r\n", boundary)
	message += "Content-Type: text/html; charset=UTF-8\r\n"
	message += "Content-Transfer-Encoding: 7bit\r\n"
	message += "\r\n"
	message += htmlBody
	message += "\r\n"
	message += fmt.Sprintf("--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	if config.UseTLS {
		return sendMailTLS(addr, auth, config.From, []string{to}, []byte(message), config.Host)
	}
	return smtp.SendMail(addr, auth, config.From, []string{to}, []byte(message))
}

// sendMailTLS sends email over STARTTLS.
func sendMailTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte, host string) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName: host,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range to {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	defer w.Close()

	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// getAppURL returns the application URL from environment or default.
func getAppURL() string {
	url := os.Getenv("APP_URL")
	if url == "" {
		url = "http://localhost:3000"
	}
	return url
}
