// ABOUTME: Constructs the production SSRF-safe HTTP client for webhook delivery.
// ABOUTME: Uses doyensec/safeurl with redirect following disabled and 10s timeout.
package notify

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// BuildSafeClient returns an SSRF-safe *http.Client for the chat webhook
// channel. The webhook URL is operator-supplied configuration, but routing
// requests into private address space is still off the table; redirect
// following is disabled and the timeout is 10 seconds.
func BuildSafeClient() *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(10 * time.Second).
		SetCheckRedirect(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}).
		Build()
	return safeurl.Client(cfg).Client
}
