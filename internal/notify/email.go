package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailSink sends a new-job summary to the print shop through SendGrid,
// cc-ing a fixed secondary address when it differs from the recipient.
type EmailSink struct {
	apiKey    string
	fromEmail string
	fromName  string
	to        string
	cc        string
}

// NewEmailSink builds the sink from SendGrid configuration.
func NewEmailSink(apiKey, fromEmail, fromName, to, cc string) *EmailSink {
	return &EmailSink{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		to:        to,
		cc:        cc,
	}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) IsConfigured() bool {
	return s.apiKey != "" && s.to != ""
}

// Notify composes and sends the notification mail.
func (s *EmailSink) Notify(ctx context.Context, ev Event) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", s.to)
	subject := fmt.Sprintf("New Job Submitted: %s — %s", ev.Job.Title, ev.Job.CustomerName)
	msg := mail.NewSingleEmail(from, subject, to, textBody(ev), htmlBody(ev))
	if s.cc != "" && !strings.EqualFold(s.cc, s.to) {
		msg.Personalizations[0].AddCCs(mail.NewEmail("", s.cc))
	}
	client := sendgrid.NewSendClient(s.apiKey)
	resp, err := client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func textBody(ev Event) string {
	return fmt.Sprintf("New job submitted: %s from %s\n\n%s\n\nFiles: %d\nView: %s",
		ev.Job.Title, ev.Job.CustomerName, ev.Job.EmailBody, len(ev.Attachments), ev.PortalLink)
}

func htmlBody(ev Event) string {
	var files strings.Builder
	if len(ev.Attachments) == 0 {
		files.WriteString("<li>No files attached</li>")
	}
	for _, a := range ev.Attachments {
		pageInfo := ""
		if a.Metadata != nil && a.Metadata.PageCount > 0 {
			pageInfo = fmt.Sprintf(" (%d pages)", a.Metadata.PageCount)
		}
		fmt.Fprintf(&files, "<li>%s — %s%s</li>",
			html.EscapeString(a.OriginalName), formatFileSize(a.SizeBytes), pageInfo)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body>
<h1>New Job Submitted</h1>
<h2>%s</h2>
<p>from <strong>%s</strong></p>
<h3>Job Details</h3>
<pre>%s</pre>
<h3>Attached Files (%d)</h3>
<ul>
%s</ul>
<p><a href="%s">View in Portal</a></p>
</body>
</html>
`,
		html.EscapeString(ev.Job.Title),
		html.EscapeString(ev.Job.CustomerName),
		html.EscapeString(ev.Job.EmailBody),
		len(ev.Attachments),
		files.String(),
		ev.PortalLink,
	)
}

// formatFileSize renders a byte count the way the portal UI shows it.
func formatFileSize(bytes int64) string {
	switch {
	case bytes <= 0:
		return "—"
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}
