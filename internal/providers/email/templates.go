package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

const (
	TemplateTenantCredentials = "tenant_credentials"
	TemplateTestEmail         = "test_email"
	TemplatePaymentReceived   = "payment_received"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Render executes the named template and resolves its subject line.
func Render(templateName string, data map[string]any) (string, string, error) {
	t := templates.Lookup(templateName + ".html")
	if t == nil {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, templateName)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template: %w", err)
	}

	return subjectFor(templateName, data), body.String(), nil
}

func subjectFor(templateName string, data map[string]any) string {
	if subj, ok := data["subject"].(string); ok && subj != "" {
		return subj
	}
	appName, _ := data["app_name"].(string)
	if appName == "" {
		appName = "SiteBuilder"
	}
	switch templateName {
	case TemplateTenantCredentials:
		return fmt.Sprintf("Your %s website is ready", appName)
	case TemplatePaymentReceived:
		return fmt.Sprintf("Payment received by %s", appName)
	case TemplateTestEmail:
		return fmt.Sprintf("%s test email", appName)
	default:
		return fmt.Sprintf("Notification from %s", appName)
	}
}
