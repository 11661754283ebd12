// Package ses delivers flag alerts through Amazon SES.
package ses

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"invscreen/internal/config"
	"invscreen/internal/domain"
	"invscreen/internal/port"
)

type sesSender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	recipients  []string
}

// NewSESSender creates an SES-backed AlertSender.
func NewSESSender(ctx context.Context, cfg *config.AlertConfig) (port.AlertSender, error) {
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("ses alerts need at least one recipient")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return &sesSender{
		client:      sesv2.NewFromConfig(awsCfg),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		recipients:  cfg.Recipients,
	}, nil
}

func (s *sesSender) SendFlagAlert(ctx context.Context, alert *domain.FlagAlert) error {
	subject := Subject(alert)
	textBody := TextBody(alert)
	htmlBody, err := HTMLBody(alert)
	if err != nil {
		return err
	}
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err = s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination:      &types.Destination{ToAddresses: s.recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

// Subject returns the alert e-mail subject line.
func Subject(a *domain.FlagAlert) string {
	return fmt.Sprintf("[%s] Invoice %s from %s", a.Flag, a.InvoiceNumber, a.VendorName)
}

// TextBody renders the plain-text alert.
func TextBody(a *domain.FlagAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice %s screened as %s against ledger %q.\n\n", a.InvoiceNumber, a.Flag, a.Ledger)
	fmt.Fprintf(&b, "Vendor: %s\nGSTIN: %s\nTotal: %s\nScreening ID: %s\n\n", a.VendorName, a.GSTIN, a.TotalAmount, a.ScreeningID)
	b.WriteString("Reasons:\n")
	for _, r := range a.Reasons {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	return b.String()
}

var alertHTML = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #B91C1C;">{{.Flag}}</h2>
  <p>Invoice <strong>{{.InvoiceNumber}}</strong> from {{.VendorName}} was flagged while screening against ledger <code>{{.Ledger}}</code>.</p>
  <table style="border-collapse: collapse;">
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">GSTIN</td><td>{{.GSTIN}}</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">Total</td><td>{{.TotalAmount}}</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">Screening</td><td>{{.ScreeningID}}</td></tr>
  </table>
  <ul>{{range .Reasons}}<li>{{.}}</li>{{end}}</ul>
</body>
</html>`))

// HTMLBody renders the HTML alert. Invoice fields are escaped.
func HTMLBody(a *domain.FlagAlert) (string, error) {
	var buf bytes.Buffer
	if err := alertHTML.Execute(&buf, a); err != nil {
		return "", fmt.Errorf("rendering alert: %w", err)
	}
	return buf.String(), nil
}
