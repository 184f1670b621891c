package imdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/fetcher"
	"github.com/user/datadesk/internal/monitoring"
	"github.com/user/datadesk/internal/pipeline"
)

type noSleep struct{ calls []time.Duration }

func (n *noSleep) Sleep(ctx context.Context, d time.Duration) error {
	n.calls = append(n.calls, d)
	return ctx.Err()
}

const yearPage = `<html><body><table>
<tr><td><a class="a-link-normal" href="/releasegroup/gr1/">Gladiator</a></td></tr>
<tr><td><a class="a-link-normal" href="/title/tt0172495/">ignored</a></td></tr>
<tr><td><a class="a-link-normal" href="/releasegroup/gr2/">Cast Away</a></td></tr>
<tr><td><a class="a-link-normal" href="/releasegroup/gr3/">Sign In Wall</a></td></tr>
</table></body></html>`

const gladiatorPage = `<html><body><div id="box_office_summary">
<div class="opening_wknd_summary"><div class="a-column a-span5 a-text-right a-span-last">$34,819,017</div></div>
<div class="gross_world_summary"><div class="a-column a-span5 a-text-right a-span-last">$460,583,960</div></div>
<div class="budget_summary"><div class="a-column a-span5 a-text-right a-span-last">$103,000,000</div></div>
<div class="gross_usa_summary"><div class="a-column a-span5 a-text-right a-span-last">$187,705,427</div></div>
</div></body></html>`

const castAwayPage = `<html><body><div id="box_office_summary">
<div class="gross_world_summary"><div class="a-column a-span5 a-text-right a-span-last">$429,632,142</div></div>
<div class="budget_summary"><div class="a-column a-span5 a-text-right a-span-last">Not reported</div></div>
</div></body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/boxoffice/year/world/2000/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, yearPage)
	})
	mux.HandleFunc("/releasegroup/gr1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, gladiatorPage)
	})
	mux.HandleFunc("/releasegroup/gr2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, castAwayPage)
	})
	mux.HandleFunc("/releasegroup/gr3/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Please sign in</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newScraper(srv *httptest.Server, sleeper *noSleep, start, end int) *Scraper {
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.StartYear, cfg.EndYear = start, end
	f := fetcher.New(fetcher.NewHTTPTransport(fetcher.HTTPOptions{Timeout: 5 * time.Second}),
		fetcher.WithSleeper(sleeper), fetcher.WithMaxAttempts(2))
	return NewScraper(cfg, f, sleeper, nil)
}

func int64p(v int64) *int64 { return &v }

func TestScrapeYear(t *testing.T) {
	srv := newServer(t)
	sleeper := &noSleep{}
	s := newScraper(srv, sleeper, 2000, 2000)

	movies, err := s.ScrapeYear(context.Background(), 2000)
	require.NoError(t, err)
	require.Len(t, movies, 2, "the movie without a summary section is skipped")

	assert.Equal(t, Movie{
		Year:           2000,
		Title:          "Gladiator",
		URL:            srv.URL + "/releasegroup/gr1/",
		OpeningWeekend: int64p(34819017),
		GrossWorld:     int64p(460583960),
		GrossUSACanada: int64p(187705427),
		Budget:         int64p(103000000),
	}, movies[0])

	castAway := movies[1]
	assert.Equal(t, "Cast Away", castAway.Title)
	assert.Nil(t, castAway.OpeningWeekend)
	assert.Nil(t, castAway.Budget, "unparsable budget stays unknown")
	assert.Equal(t, int64(429632142), *castAway.GrossWorld)

	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, sleeper.calls)
}

func TestUnits_YearWithoutPageYieldsNothing(t *testing.T) {
	srv := newServer(t)
	sleeper := &noSleep{}
	s := newScraper(srv, sleeper, 1999, 2000)

	set := domain.NewRecordSet[Movie]()
	stats := pipeline.Run(context.Background(), pipeline.Runner{Dataset: Dataset, Sleeper: sleeper}, s.Units(), set)

	assert.Equal(t, 2, stats.Units)
	assert.Equal(t, 1, stats.Skipped, "1999 returns 404 on every attempt")
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 2, set.Len())
}

func TestUnits_InstrumentedMovieUnits(t *testing.T) {
	srv := newServer(t)
	sleeper := &noSleep{}
	s := newScraper(srv, sleeper, 2000, 2000)
	metrics := monitoring.NewMetrics()
	progress := pipeline.NewProgress()
	s.Instrument(metrics, progress)

	set := domain.NewRecordSet[Movie]()
	pipeline.Run(context.Background(), pipeline.Runner{
		Dataset: Dataset, Sleeper: sleeper, Metrics: metrics, Progress: progress,
	}, s.Units(), set)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UnitsTotal.WithLabelValues(Dataset, "succeeded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.UnitsTotal.WithLabelValues(MovieDataset, "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UnitsTotal.WithLabelValues(MovieDataset, "skipped")))

	snap := progress.Snapshot()
	assert.Equal(t, 1, snap.Done)
	require.NotNil(t, snap.Nested)
	assert.Equal(t, MovieDataset, snap.Nested.Dataset)
	assert.Equal(t, 3, snap.Nested.Done)
	assert.Equal(t, 2, snap.Nested.Records)
	assert.True(t, snap.Nested.Finished)
}

func TestYearURL(t *testing.T) {
	s := NewScraper(DefaultConfig(), nil, nil, nil)
	assert.Equal(t, "https://pro.imdb.com/boxoffice/year/world/1977/", s.YearURL(1977))
}

func TestConfigYears(t *testing.T) {
	cfg := DefaultConfig()
	years := cfg.Years()
	assert.Len(t, years, 48)
	assert.Equal(t, 1977, years[0])
	assert.Equal(t, 2024, years[len(years)-1])
}

func TestMovieValues(t *testing.T) {
	m := Movie{Year: 2000, Title: "Gladiator", URL: "u", GrossWorld: int64p(5)}
	assert.Equal(t, Columns, m.Header())
	assert.Equal(t, []string{"2000", "Gladiator", "", "5", "", "", "u"}, m.Values())
}

func TestSummarize(t *testing.T) {
	movies := []Movie{
		{Year: 2001, OpeningWeekend: int64p(1), GrossWorld: int64p(2)},
		{Year: 1999, GrossWorld: int64p(3)},
		{Year: 2000},
	}
	assert.Equal(t, Summary{Total: 3, FirstYear: 1999, LastYear: 2001, WithOpening: 1, WithWorldwide: 2}, Summarize(movies))
	assert.Equal(t, Summary{}, Summarize(nil))
}
