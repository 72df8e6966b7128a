// ABOUTME: Template data for incident alert rendering.
// ABOUTME: Accessors keep display formatting (severity, tel link, timestamps) out of the templates.
package notify

import (
	"regexp"

	"github.com/sableridge/watchdesk/internal/incident"
)

// slaStatement is a content contract printed in every alert: nothing in this
// system measures or enforces the latency it promises.
const slaStatement = "Our incident response team will contact you within 15 minutes of submission."

// IncidentTemplateData is the context passed to the incident alert templates.
type IncidentTemplateData struct {
	Report *incident.Report
}

// Severity returns the report severity, or "unknown" when the caller
// omitted it. Template color-coding keys off this value.
func (d IncidentTemplateData) Severity() string {
	if d.Report.Incident.Severity == "" {
		return "unknown"
	}
	return d.Report.Incident.Severity
}

var telStrip = regexp.MustCompile(`[^\d+]`)

// CallbackTel is the href for the clickable call-back link: the contact
// phone reduced to digits (and a leading +) in tel: URI form.
func (d IncidentTemplateData) CallbackTel() string {
	return "tel:" + telStrip.ReplaceAllString(d.Report.Contact.Phone, "")
}

// SLA returns the fixed response-time statement.
func (d IncidentTemplateData) SLA() string { return slaStatement }

// SubmittedAt formats the submission timestamp for display.
func (d IncidentTemplateData) SubmittedAt() string {
	return d.Report.SubmittedAt.UTC().Format("2006-01-02 15:04:05 MST")
}
