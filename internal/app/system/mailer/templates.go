// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// RegistrationEmailData holds data for the registration-received email.
type RegistrationEmailData struct {
	SiteName         string
	FirstName        string
	RegistrationType string
	ReferenceID      string
}

// PaymentEmailData holds data for the payment-confirmed email.
type PaymentEmailData struct {
	SiteName         string
	FirstName        string
	RegistrationType string
	ReferenceID      string
	Method           string
	TransactionRef   string
	PaidAt           string
}

// BuildRegistrationEmail creates the registration-received email with both HTML and text bodies.
func BuildRegistrationEmail(data RegistrationEmailData) Email {
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("%s: registration received", data.SiteName),
		TextBody: buildRegistrationText(data),
		HTMLBody: render(registrationHTML, data),
	}
}

// BuildPaymentEmail creates the payment-confirmed email.
func BuildPaymentEmail(data PaymentEmailData) Email {
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("%s: payment confirmed", data.SiteName),
		TextBody: buildPaymentText(data),
		HTMLBody: render(paymentHTML, data),
	}
}

func buildRegistrationText(data RegistrationEmailData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hello %s,\n\n", data.FirstName)
	fmt.Fprintf(&buf, "We received your %s registration for %s.\n", data.RegistrationType, data.SiteName)
	fmt.Fprintf(&buf, "Your reference is %s.\n\n", data.ReferenceID)
	buf.WriteString("Your payment is pending. We will email you again once it is confirmed.\n")
	return buf.String()
}

func buildPaymentText(data PaymentEmailData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hello %s,\n\n", data.FirstName)
	fmt.Fprintf(&buf, "Your payment for the %s registration (reference %s) is confirmed.\n", data.RegistrationType, data.ReferenceID)
	if data.Method != "" {
		fmt.Fprintf(&buf, "Method: %s\n", data.Method)
	}
	if data.TransactionRef != "" {
		fmt.Fprintf(&buf, "Transaction: %s\n", data.TransactionRef)
	}
	fmt.Fprintf(&buf, "Paid: %s\n\n", data.PaidAt)
	fmt.Fprintf(&buf, "See you at %s.\n", data.SiteName)
	return buf.String()
}

var (
	registrationHTML = template.Must(template.New("registration").Parse(layoutHead + registrationBody + layoutFoot))
	paymentHTML      = template.Must(template.New("payment").Parse(layoutHead + paymentBody + layoutFoot))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

const layoutHead = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.SiteName}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px; font-size: 16px; color: #374151; line-height: 1.5;">
`

const registrationBody = `              <p style="margin: 0 0 16px;">Hello {{.FirstName}},</p>
              <p style="margin: 0 0 16px;">We received your <strong>{{.RegistrationType}}</strong> registration.</p>
              <p style="margin: 0 0 16px;">Reference: <code>{{.ReferenceID}}</code></p>
              <p style="margin: 0; font-size: 14px; color: #6b7280;">Your payment is pending. We will email you again once it is confirmed.</p>
`

const paymentBody = `              <p style="margin: 0 0 16px;">Hello {{.FirstName}},</p>
              <p style="margin: 0 0 16px;">Your payment for the <strong>{{.RegistrationType}}</strong> registration is confirmed.</p>
              <p style="margin: 0 0 8px;">Reference: <code>{{.ReferenceID}}</code></p>
              {{if .Method}}<p style="margin: 0 0 8px;">Method: {{.Method}}</p>{{end}}
              {{if .TransactionRef}}<p style="margin: 0 0 8px;">Transaction: {{.TransactionRef}}</p>{{end}}
              <p style="margin: 0;">Paid: {{.PaidAt}}</p>
`

const layoutFoot = `            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                You are receiving this because you registered for {{.SiteName}}.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
