package browser

import (
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mirrors the acquisition chain's context handling. The connect deadline
// is a wall clock over every chained operation, so keeping it on the
// session would kill long polling flows partway through.
func TestSessionBrowserCarriesNoDeadline(t *testing.T) {
	b := rod.New().ControlURL("ws://127.0.0.1:0").Timeout(45 * time.Second)

	_, hasDeadline := b.GetContext().Deadline()
	require.True(t, hasDeadline, "connect phase should run under the launch timeout")

	kept := b.CancelTimeout()
	_, hasDeadline = kept.GetContext().Deadline()
	assert.False(t, hasDeadline, "session browser must outlive the launch timeout")
}

func TestRodPageNavScopesTimeoutPerOperation(t *testing.T) {
	page := &rodPage{page: &rod.Page{}, navTimeout: 0}
	assert.Same(t, page.page, page.nav(), "zero timeout must not wrap the page")
}
