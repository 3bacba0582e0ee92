package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/mbfc-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

func TestNewChromedpValidation(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{NavigationTimeout: -time.Second})
	require.Error(t, err)
	_, err = NewChromedp(Config{DomainQPS: -1})
	require.Error(t, err)

	fetcher, err := NewChromedp(Config{})
	require.NoError(t, err)
	defer fetcher.Close()
	require.Equal(t, defaultNavTimeout, fetcher.cfg.NavigationTimeout)
	require.Equal(t, defaultWaitSelector, fetcher.cfg.WaitSelector)
}

func TestFetcherNavTimeoutDefault(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{}
	require.Equal(t, defaultNavTimeout, fetcher.navTimeout())
	fetcher.cfg.NavigationTimeout = time.Second
	require.Equal(t, time.Second, fetcher.navTimeout())
}

func TestClassifyTimeoutAsContentNotFound(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{cfg: Config{WaitSelector: ".entry-content"}}
	err := fetcher.classify("https://example.com", fmt.Errorf("chromedp run: %w", context.DeadlineExceeded))

	var fe *scrape.FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "wait .entry-content", fe.Op)
	require.ErrorIs(t, err, scrape.ErrContentNotFound)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	other := fetcher.classify("https://example.com", errors.New("net::ERR_NAME_NOT_RESOLVED"))
	require.NotErrorIs(t, other, scrape.ErrContentNotFound)
}

func TestFetchRateLimitError(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{limiter: ratelimit.New(ratelimit.Config{RPS: 1000})}
	_, err := fetcher.Fetch(context.Background(), "http://%zz")
	var fe *scrape.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "rate limit", fe.Op)
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	defer stop()
	cancelParent()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("expected parent cancel to propagate")
	}
}

func TestFetcherRendersContentRegion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<!doctype html><html><body>
<div class="entry-content"><p>Detailed Report</p><p>Bias Rating: LEFT</p></div>
</body></html>`)
	}))
	defer srv.Close()

	fetcher, err := NewChromedp(Config{NavigationTimeout: 10 * time.Second})
	require.NoError(t, err)
	defer fetcher.Close()

	text, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Skipf("chromedp unavailable: %v", err)
	}
	if !strings.Contains(text, "Bias Rating: LEFT") {
		t.Fatalf("rendered text missing rating line: %q", text)
	}
}
