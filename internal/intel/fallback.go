// ABOUTME: Bundled static fallback batch served when live generation is unavailable.
// ABOUTME: Embedded at build time; parsed once; callers receive a fresh copy.
package intel

import (
	_ "embed"
	"encoding/json"
	"sync"
)

//go:embed fallback.json
var fallbackJSON []byte

var (
	fallbackOnce  sync.Once
	fallbackBatch []Article
)

// FallbackBatch returns a copy of the bundled static article set. The batch
// is fixed editorial content shipped with the binary — the last line of the
// three-tier fallback chain (CDN cache, durable cache, this).
func FallbackBatch() []Article {
	fallbackOnce.Do(func() {
		if err := json.Unmarshal(fallbackJSON, &fallbackBatch); err != nil {
			// The file is compiled in and covered by tests; failure here is
			// a build defect, not a runtime condition.
			panic("intel: bundled fallback.json is invalid: " + err.Error())
		}
		for i := range fallbackBatch {
			fallbackBatch[i].Normalize()
		}
	})
	out := make([]Article, len(fallbackBatch))
	copy(out, fallbackBatch)
	return out
}
