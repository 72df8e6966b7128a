// Package incident models the emergency intake report: strict validation,
// identifier assignment, and nothing else. Reports are relayed to
// notification channels, never persisted — the channels are the system of
// record.
package incident

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// StatusInitiated is the only status this component assigns. No further
// transitions are modeled here; tracking happens in the responders' tooling.
const StatusInitiated = "INITIATED"

// Contact identifies the person reporting the incident.
type Contact struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization,omitempty"`
}

// Details describes the incident itself. Only Description is required.
type Details struct {
	Type            string `json:"type,omitempty"`
	Severity        string `json:"severity,omitempty"`
	Description     string `json:"description"`
	AffectedSystems string `json:"affectedSystems,omitempty"`
}

// Report is an accepted incident submission. It is only constructed after
// validation succeeds and is never mutated afterwards.
type Report struct {
	IncidentID  string    `json:"incidentId"`
	SubmittedAt time.Time `json:"submittedAt"`
	Status      string    `json:"status"`
	Contact     Contact   `json:"contact"`
	Incident    Details   `json:"incident"`
}

// Submission is the raw intake form body before validation.
type Submission struct {
	ContactName     string `json:"contactName"`
	ContactEmail    string `json:"contactEmail"`
	ContactPhone    string `json:"contactPhone"`
	Organization    string `json:"organization"`
	IncidentType    string `json:"incidentType"`
	Severity        string `json:"severity"`
	Description     string `json:"description"`
	AffectedSystems string `json:"affectedSystems"`
	SubmittedAt     string `json:"submittedAt"`
}

// emailPattern is the standard local@domain.tld shape. Stricter RFC parsing
// buys nothing here: the address is only ever used as reply-to content.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var nonDigits = regexp.MustCompile(`\D`)

// ValidationError reports why a submission was rejected. Required lists the
// field names the caller must supply; empty for shape failures.
type ValidationError struct {
	Message  string
	Required []string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks a submission against the intake contract. It returns a
// *ValidationError describing the first failure class: missing fields (all
// reported together), then email shape, then phone digit count.
func (s *Submission) Validate() *ValidationError {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"contactName", s.ContactName},
		{"contactEmail", s.ContactEmail},
		{"contactPhone", s.ContactPhone},
		{"description", s.Description},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "missing required fields", Required: missing}
	}

	if !emailPattern.MatchString(s.ContactEmail) {
		return &ValidationError{Message: "invalid contactEmail format"}
	}

	if digits := nonDigits.ReplaceAllString(s.ContactPhone, ""); len(digits) < 10 {
		return &ValidationError{Message: "contactPhone must contain at least 10 digits"}
	}

	return nil
}

// New constructs a Report from a validated submission. submittedAt falls back
// to now when the caller supplied nothing parseable.
func New(s *Submission, now time.Time) *Report {
	submittedAt := now.UTC()
	if s.SubmittedAt != "" {
		if t, err := time.Parse(time.RFC3339, s.SubmittedAt); err == nil {
			submittedAt = t.UTC()
		}
	}
	return &Report{
		IncidentID:  NewID(now),
		SubmittedAt: submittedAt,
		Status:      StatusInitiated,
		Contact: Contact{
			Name:         strings.TrimSpace(s.ContactName),
			Email:        strings.TrimSpace(s.ContactEmail),
			Phone:        strings.TrimSpace(s.ContactPhone),
			Organization: strings.TrimSpace(s.Organization),
		},
		Incident: Details{
			Type:            strings.TrimSpace(s.IncidentType),
			Severity:        strings.ToLower(strings.TrimSpace(s.Severity)),
			Description:     strings.TrimSpace(s.Description),
			AffectedSystems: strings.TrimSpace(s.AffectedSystems),
		},
	}
}

const idCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID returns an incident identifier of the form
// IR-<epochMillis>-<6 uppercase alphanumerics>. The random suffix comes from
// crypto/rand; IDs are caller-visible and must not be guessable in sequence.
func NewID(now time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is broken; there is no
		// sensible degraded mode for identifier generation.
		panic("incident: crypto/rand unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = idCharset[int(b)%len(idCharset)]
	}
	return fmt.Sprintf("IR-%d-%s", now.UnixMilli(), buf)
}
