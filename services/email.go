package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"strings"

	"github.com/hounddogai/scan-engine/db"
	"github.com/hounddogai/scan-engine/internal/logger"
	"go.uber.org/zap"
)

// EmailService handles sending email notifications
type EmailService struct {
	smtpServer   string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	dbQueries    *db.Queries
}

// NewEmailService creates a new instance of EmailService
func NewEmailService(dbQueries *db.Queries) *EmailService {
	return &EmailService{
		smtpServer:   os.Getenv("SMTP_SERVER"),
		smtpPort:     os.Getenv("SMTP_PORT"),
		smtpUsername: os.Getenv("SMTP_USERNAME"),
		smtpPassword: os.Getenv("SMTP_PASSWORD"),
		fromEmail:    os.Getenv("FROM_EMAIL"),
		dbQueries:    dbQueries,
	}
}

// ScanCompletionEmailData contains data needed for the scan completion email template
type ScanCompletionEmailData struct {
	RepositoryName string
	DashboardURL   string
	VulnCount      int
}

// scanCompletionTemplate is shared by the single- and bulk-recipient sends;
// {{.VulnCount}} drives the only copy that differs between a clean and a
// flagged scan.
const scanCompletionTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Scan Results Available</title>
    <style>
        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .container {
            background-color: #ffffff;
            border-radius: 8px;
            box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
            padding: 30px;
        }
        .header {
            text-align: center;
            margin-bottom: 20px;
        }
        h1 {
            color: #2563eb;
            font-size: 24px;
            margin-bottom: 15px;
        }
        .content {
            margin-bottom: 25px;
        }
        .button {
            display: inline-block;
            background-color: #2563eb;
            color: white;
            text-decoration: none;
            padding: 12px 25px;
            border-radius: 6px;
            font-weight: 600;
            margin: 15px 0;
        }
        .button:hover {
            background-color: #1d4ed8;
        }
        .footer {
            margin-top: 30px;
            text-align: center;
            font-size: 14px;
            color: #6b7280;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Security Scan Results Available</h1>
        </div>
        <div class="content">
            <p>Hello,</p>
            <p>We've completed the security scan for repository <strong>{{.RepositoryName}}</strong>.</p>
            <p>{{if gt .VulnCount 0}}
                We found <strong>{{.VulnCount}} potential security issues</strong> that should be reviewed.
            {{else}}
                Good news! No security issues were found in this repository.
            {{end}}</p>
            <p>View the detailed results on the dashboard:</p>
            <p style="text-align: center;">
                <a href="{{.DashboardURL}}" class="button">View Scan Results</a>
            </p>
        </div>
        <div class="footer">
            <p>This is an automated message, please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`

// renderScanCompletionEmail fills scanCompletionTemplate with data, returning
// the rendered HTML body.
func renderScanCompletionEmail(data ScanCompletionEmailData) (string, error) {
	tmpl, err := template.New("scanEmail").Parse(scanCompletionTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing scan completion template: %w", err)
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("executing scan completion template: %w", err)
	}
	return body.String(), nil
}

// composeMessage builds an RFC 822 message from headers (in map iteration
// order, which is fine here since mail clients do not depend on header
// ordering) and an HTML body.
func composeMessage(headers map[string]string, htmlBody string) []byte {
	var message bytes.Buffer
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)
	return message.Bytes()
}

func (s *EmailService) scanCompletionData(repositoryName, repositoryID string, vulnCount int) ScanCompletionEmailData {
	dashboardURL := os.Getenv("DASHBOARD_URL")
	if dashboardURL == "" {
		dashboardURL = "http://localhost:3000"
	}
	return ScanCompletionEmailData{
		RepositoryName: repositoryName,
		DashboardURL:   fmt.Sprintf("%s/dashboard/repos/%s", dashboardURL, repositoryID),
		VulnCount:      vulnCount,
	}
}

func (s *EmailService) configured() error {
	if s.smtpServer == "" || s.smtpPort == "" || s.smtpUsername == "" ||
		s.smtpPassword == "" || s.fromEmail == "" {
		return fmt.Errorf("email service is not properly configured")
	}
	return nil
}

func (s *EmailService) sendMail(to []string, message []byte) error {
	addr := fmt.Sprintf("%s:%s", s.smtpServer, s.smtpPort)
	auth := smtp.PlainAuth("", s.smtpUsername, s.smtpPassword, s.smtpServer)
	return smtp.SendMail(addr, auth, s.fromEmail, to, message)
}

// SendScanCompletionEmail sends a notification email that a repository scan is complete
func (s *EmailService) SendScanCompletionEmail(userEmail, repositoryName, repositoryID string, vulnCount int) error {
	log := logger.Get()

	if err := s.configured(); err != nil {
		return err
	}

	data := s.scanCompletionData(repositoryName, repositoryID, vulnCount)
	htmlBody, err := renderScanCompletionEmail(data)
	if err != nil {
		log.Error("Failed to render scan completion email", zap.Error(err))
		return err
	}

	subject := fmt.Sprintf("Security Scan Results Available - %s", repositoryName)
	message := composeMessage(map[string]string{
		"From":         s.fromEmail,
		"To":           userEmail,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}, htmlBody)

	if err := s.sendMail([]string{userEmail}, message); err != nil {
		log.Error("Failed to send email",
			zap.String("to", userEmail),
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}

	log.Info("Scan completion email sent successfully",
		zap.String("to", userEmail),
		zap.String("repository", repositoryName))

	return nil
}

// SendBulkScanCompletionEmail sends a notification email to multiple recipients
func (s *EmailService) SendBulkScanCompletionEmail(userEmails []string, repositoryName, repositoryID string, vulnCount int) error {
	log := logger.Get()

	if len(userEmails) == 0 {
		return fmt.Errorf("no recipients specified")
	}
	if err := s.configured(); err != nil {
		return err
	}

	data := s.scanCompletionData(repositoryName, repositoryID, vulnCount)
	htmlBody, err := renderScanCompletionEmail(data)
	if err != nil {
		log.Error("Failed to render scan completion email", zap.Error(err))
		return err
	}

	subject := fmt.Sprintf("Security Scan Results Available - %s", repositoryName)
	message := composeMessage(map[string]string{
		"From":         s.fromEmail,
		"To":           s.fromEmail,
		"Bcc":          strings.Join(userEmails, ", "),
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}, htmlBody)

	// The BCC recipients only reach the envelope via the SMTP call's
	// recipient list; the header above is what makes them visible as BCC
	// rather than an exposed To/Cc.
	recipientList := append([]string{s.fromEmail}, userEmails...)
	if err := s.sendMail(recipientList, message); err != nil {
		log.Error("Failed to send bulk email",
			zap.Strings("to", userEmails),
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}

	log.Info("Scan completion email sent successfully to multiple recipients",
		zap.Strings("to", userEmails),
		zap.String("repository", repositoryName))

	return nil
}
