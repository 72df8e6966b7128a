// Package intel produces and serves the threat-intelligence article batch.
//
// Fresh batches come from the Gemini generative API ([Generator]); the
// serving path ([Service]) layers the durable cache and the bundled fallback
// batch underneath it so that callers always receive HTTP 200 backed by the
// best data available.
package intel

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy for the generation path. The serving path converts all of
// these into a silent fallback; callers that need to distinguish use errors.Is.
var (
	// ErrNotConfigured means no upstream API key is present. This is the
	// deliberate degrade-to-static mode, not a fault.
	ErrNotConfigured = errors.New("intel: upstream API key not configured")

	// ErrUpstreamFormat means the generative API answered but its text
	// contained no parseable JSON array of well-shaped articles.
	ErrUpstreamFormat = errors.New("intel: upstream response format invalid")

	// ErrUpstreamTransport covers timeouts, non-2xx responses, and network
	// failures reaching the generative API.
	ErrUpstreamTransport = errors.New("intel: upstream transport failure")
)

// FreshBatchSize is the exact article count a fresh generation must produce.
const FreshBatchSize = 6

// Article is a single threat-intelligence item. Field names follow the wire
// contract consumed by the site front-end.
type Article struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	Severity        string   `json:"severity"`
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Details         string   `json:"details"`
	AffectedSectors []string `json:"affectedSectors"`
	ThreatActors    string   `json:"threatActors"`
	IOCs            []string `json:"iocs"`
	MitreTactics    []string `json:"mitreTactics"`
	Source          string   `json:"source"`
	Date            string   `json:"date"` // ISO 8601 calendar date, no time component
}

var validCategories = map[string]bool{
	"ransomware":      true,
	"apt":             true,
	"vulnerabilities": true,
	"malware":         true,
	"data-breach":     true,
}

var validSeverities = map[string]bool{
	"critical": true,
	"high":     true,
	"medium":   true,
	"low":      true,
}

// Normalize fills defaulted fields in place: empty threatActors becomes
// "Unknown" and nil slices become empty so the wire shape is stable.
func (a *Article) Normalize() {
	if a.ThreatActors == "" {
		a.ThreatActors = "Unknown"
	}
	if a.AffectedSectors == nil {
		a.AffectedSectors = []string{}
	}
	if a.IOCs == nil {
		a.IOCs = []string{}
	}
	if a.MitreTactics == nil {
		a.MitreTactics = []string{}
	}
}

// Validate checks the article against the wire contract. IOCs may be empty;
// everything else the contract names is required.
func (a *Article) Validate() error {
	switch {
	case a.ID == "":
		return errors.New("missing id")
	case a.Title == "":
		return errors.New("missing title")
	case a.Summary == "":
		return errors.New("missing summary")
	case a.Details == "":
		return errors.New("missing details")
	case a.Source == "":
		return errors.New("missing source")
	}
	if !validCategories[a.Category] {
		return fmt.Errorf("invalid category %q", a.Category)
	}
	if !validSeverities[a.Severity] {
		return fmt.Errorf("invalid severity %q", a.Severity)
	}
	if _, err := time.Parse("2006-01-02", a.Date); err != nil {
		return fmt.Errorf("invalid date %q", a.Date)
	}
	return nil
}

// ValidateBatch normalizes each article and verifies the batch holds exactly
// want well-shaped articles. A malformed batch from the generator surfaces as
// ErrUpstreamFormat so the serving path falls back rather than erroring.
func ValidateBatch(articles []Article, want int) error {
	if len(articles) != want {
		return fmt.Errorf("%w: got %d articles, want %d", ErrUpstreamFormat, len(articles), want)
	}
	for i := range articles {
		articles[i].Normalize()
		if err := articles[i].Validate(); err != nil {
			return fmt.Errorf("%w: article %d: %v", ErrUpstreamFormat, i, err)
		}
	}
	return nil
}
