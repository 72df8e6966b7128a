// ABOUTME: Tests for incident alert rendering: subject line, severity styling, callback link.
package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/sableridge/watchdesk/internal/incident"
)

func testReport() *incident.Report {
	return &incident.Report{
		IncidentID:  "IR-1760000000000-ABC123",
		SubmittedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Status:      incident.StatusInitiated,
		Contact: incident.Contact{
			Name:         "Jane Doe",
			Email:        "jane@acme.com",
			Phone:        "(770) 555-1212",
			Organization: "Acme Corp",
		},
		Incident: incident.Details{
			Type:        "ransomware",
			Severity:    "critical",
			Description: "File servers encrypted, ransom note on desktops.",
		},
	}
}

func TestRenderIncident(t *testing.T) {
	r := testReport()
	subject, htmlBody, textBody, err := RenderIncident(IncidentTemplateData{Report: r})
	if err != nil {
		t.Fatalf("RenderIncident: %v", err)
	}

	for _, want := range []string{"EMERGENCY INCIDENT", r.IncidentID, "CRITICAL", "Jane Doe"} {
		if !strings.Contains(subject, want) {
			t.Errorf("subject %q missing %q", subject, want)
		}
	}

	if !strings.Contains(htmlBody, "background:#dc2626;color:#ffffff;padding:2px 10px") {
		t.Error("html body missing critical severity pill")
	}
	if !strings.Contains(htmlBody, "tel:+17705551212") && !strings.Contains(htmlBody, "tel:7705551212") {
		t.Errorf("html body missing tel: callback link")
	}

	for _, body := range []string{htmlBody, textBody} {
		if !strings.Contains(body, slaStatement) {
			t.Error("body missing SLA statement")
		}
		if !strings.Contains(body, r.IncidentID) {
			t.Error("body missing incident id")
		}
		if !strings.Contains(body, "2026-03-01 09:30:00 UTC") {
			t.Error("body missing submission timestamp")
		}
	}
}

func TestRenderIncident_SubjectStripsNewlines(t *testing.T) {
	r := testReport()
	r.Contact.Name = "Jane\r\nBcc: attacker@evil.test"
	subject, _, _, err := RenderIncident(IncidentTemplateData{Report: r})
	if err != nil {
		t.Fatalf("RenderIncident: %v", err)
	}
	if strings.ContainsAny(subject, "\r\n") {
		t.Errorf("subject contains CR/LF: %q", subject)
	}
}

func TestSeverityDefaultsToUnknown(t *testing.T) {
	r := testReport()
	r.Incident.Severity = ""
	d := IncidentTemplateData{Report: r}
	if got := d.Severity(); got != "unknown" {
		t.Errorf("Severity() = %q, want unknown", got)
	}
	_, htmlBody, _, err := RenderIncident(d)
	if err != nil {
		t.Fatalf("RenderIncident: %v", err)
	}
	if !strings.Contains(htmlBody, "background:#6b7280;color:#ffffff;padding:2px 10px") {
		t.Error("unknown severity should use the neutral pill color")
	}
}

func TestCallbackTel(t *testing.T) {
	tests := []struct{ phone, want string }{
		{"(770) 555-1212", "tel:7705551212"},
		{"+1 770-555-1212", "tel:+17705551212"},
	}
	for _, tt := range tests {
		r := testReport()
		r.Contact.Phone = tt.phone
		if got := (IncidentTemplateData{Report: r}).CallbackTel(); got != tt.want {
			t.Errorf("CallbackTel(%q) = %q, want %q", tt.phone, got, tt.want)
		}
	}
}
