package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Launching Chrome is opt-in: set DATADESK_BROWSER_TESTS=1 with a local Chrome.
func TestBrowserSession_RendersPage(t *testing.T) {
	if os.Getenv("DATADESK_BROWSER_TESTS") == "" {
		t.Skip("set DATADESK_BROWSER_TESTS=1 to run headless Chrome tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="app"></div><script>
			document.getElementById('app').innerHTML = '<table id="table"><tbody><tr><td>x</td></tr></tbody></table>';
		</script></body></html>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	session, err := NewBrowserSession(ctx, BrowserOptions{
		Headless:     true,
		WaitSelector: "#table",
		WaitTimeout:  5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer session.Close()

	resp, err := session.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(resp.Body), `<table id="table">`)

	require.NoError(t, session.Close())
	assert.NoError(t, session.Close(), "close is idempotent")
}
