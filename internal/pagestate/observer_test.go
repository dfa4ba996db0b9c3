package pagestate

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testObserverConfig() ObserverConfig {
	return ObserverConfig{
		OverlaySelector: "#error-modal",
		TitleSelector:   "#error-modal .title",
		MessageSelector: "#error-modal .message",
	}
}

// evalPage simulates the page-side marker semantics: the first install
// eval reports "installed", every later one "already-installed".
func TestObserverInstallIsIdempotent(t *testing.T) {
	installs := 0
	page := &fakePage{evalFn: func(js string) (string, error) {
		require.Contains(t, js, "window.__pageWatch")
		installs++
		if installs == 1 {
			return "installed", nil
		}
		return "already-installed", nil
	}}

	obs := NewObserver(page, testObserverConfig(), zerolog.Nop())

	first, err := obs.Install()
	require.NoError(t, err)
	assert.True(t, first)

	second, err := obs.Install()
	require.NoError(t, err)
	assert.False(t, second)
}

func TestObserverScriptGuardsReinstall(t *testing.T) {
	obs := NewObserver(&fakePage{}, testObserverConfig(), zerolog.Nop())
	script := obs.installScript()

	// The guard must run before any state is created so a second install
	// cannot clobber recorded errors or the blocked-transitions log.
	guard := strings.Index(script, "if (window.__pageWatch)")
	state := strings.Index(script, "lastError")
	require.Greater(t, guard, -1)
	require.Greater(t, state, -1)
	assert.Less(t, guard, state)

	assert.Contains(t, script, "MutationObserver")
	assert.Contains(t, script, "sessionStorage.setItem")
	assert.Contains(t, script, "#error-modal")
}

func TestObserverConsumeStoredErrorClears(t *testing.T) {
	storage := map[string]string{DefaultStorageKey: "Error: usuario bloqueado"}
	page := &fakePage{evalFn: func(js string) (string, error) {
		if !strings.Contains(js, "sessionStorage.getItem") {
			return "", nil
		}
		v := storage[DefaultStorageKey]
		delete(storage, DefaultStorageKey)
		return v, nil
	}}

	obs := NewObserver(page, testObserverConfig(), zerolog.Nop())

	msg, err := obs.ConsumeStoredError()
	require.NoError(t, err)
	assert.Equal(t, "Error: usuario bloqueado", msg)

	msg, err = obs.ConsumeStoredError()
	require.NoError(t, err)
	assert.Empty(t, msg)
}

func TestObserverBlockedCount(t *testing.T) {
	page := &fakePage{evalFn: func(js string) (string, error) {
		return "3", nil
	}}
	obs := NewObserver(page, testObserverConfig(), zerolog.Nop())

	count, err := obs.BlockedCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestObserverInstallPropagatesEvalFailure(t *testing.T) {
	page := &fakePage{evalFn: func(js string) (string, error) {
		return "", errors.New("eval rejected")
	}}
	obs := NewObserver(page, testObserverConfig(), zerolog.Nop())

	_, err := obs.Install()
	assert.Error(t, err)
}
