// ABOUTME: Template rendering for incident alert notifications.
// ABOUTME: Templates parsed once at init from embedded FS; rendered per dispatch.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template function maps shared by both HTML and text templates.
var funcMap = map[string]any{
	// sevColor returns a CSS background color for a severity level.
	// "unknown" and anything unrecognized share the neutral gray.
	"sevColor": func(sev string) string {
		switch strings.ToLower(sev) {
		case "critical":
			return "#dc2626"
		case "high":
			return "#ea580c"
		case "medium":
			return "#d97706"
		case "low":
			return "#65a30d"
		default:
			return "#6b7280"
		}
	},
	"upper": strings.ToUpper,
}

// Parsed templates — one HTML/text pair for the incident alert.
var (
	incidentHTML *htmltpl.Template
	incidentText *texttpl.Template
)

func init() {
	incidentHTML = htmltpl.Must(htmltpl.New("").Funcs(htmltpl.FuncMap(funcMap)).ParseFS(templateFS, "templates/incident_alert.html.tmpl"))
	incidentText = texttpl.Must(texttpl.New("").Funcs(texttpl.FuncMap(funcMap)).ParseFS(templateFS, "templates/incident_alert.txt.tmpl"))
}

// RenderIncident renders the incident alert email. Returns subject, HTML
// body, and plaintext body.
func RenderIncident(data IncidentTemplateData) (string, string, string, error) {
	// Render subject from the text template's "subject" block.
	var subjectBuf bytes.Buffer
	if err := incidentText.ExecuteTemplate(&subjectBuf, "subject", data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	subject := sanitizeSubject(subjectBuf.String())

	var htmlBuf bytes.Buffer
	if err := incidentHTML.ExecuteTemplate(&htmlBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}

	var textBuf bytes.Buffer
	if err := incidentText.ExecuteTemplate(&textBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}

	return subject, htmlBuf.String(), textBuf.String(), nil
}

// sanitizeSubject strips CR/LF to prevent email header injection.
func sanitizeSubject(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
