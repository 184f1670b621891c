package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/datadesk/internal/config"
	"github.com/user/datadesk/internal/fetcher"
)

func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("BACKOFF_UNIT", "1ms")
	var out bytes.Buffer
	return &App{
		Fs:      afero.NewMemMapFs(),
		Out:     &out,
		Viper:   config.New(),
		EnvFile: ".env",
	}, &out
}

func run(app *App, args ...string) error {
	root := NewRootCommand(app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestMergeCommand(t *testing.T) {
	app, out := testApp(t)
	dir := "articles/prem-home-invasion"
	require.NoError(t, afero.WriteFile(app.Fs, filepath.Join(dir, "E0 (4).csv"), []byte(
		"Div,Date,HomeTeam,AwayTeam,FTHG,FTAG,FTR\nE0,16/08/97,Arsenal,Leeds,1,1,D\nE0,09/08/97,Barnsley,West Ham,1,2,A\n"), 0o644))

	require.NoError(t, run(app, "merge"))

	got, err := afero.ReadFile(app.Fs, filepath.Join(dir, "premier_league_merged.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Div,Date,HomeTeam,AwayTeam,FTHG,FTAG,FTR,Season\n"+
		"E0,1997-08-09,Barnsley,West Ham,1,2,A,1998\n"+
		"E0,1997-08-16,Arsenal,Leeds,1,1,D,1998\n", string(got))
	assert.Contains(t, out.String(), "Seasons breakdown")
}

func TestMergeCommand_NoFiles(t *testing.T) {
	app, _ := testApp(t)
	err := run(app, "merge", "--dir", "empty")
	assert.ErrorContains(t, err, "no data files loaded")
}

func TestIMDbCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/boxoffice/year/world/2000/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a class="a-link-normal" href="/releasegroup/gr1/">Gladiator</a>`)
	})
	mux.HandleFunc("/releasegroup/gr1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div id="box_office_summary"><div class="gross_world_summary">`+
			`<div class="a-column a-span5 a-text-right a-span-last">$460,583,960</div></div></div>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	app, out := testApp(t)
	t.Setenv("IMDB_BASE_URL", srv.URL)
	t.Setenv("IMDB_MOVIE_DELAY", "0s")
	t.Setenv("IMDB_YEAR_DELAY", "0s")

	require.NoError(t, run(app, "imdb", "--start-year", "2000", "--end-year", "2000", "--output", "out/imdb.csv"))

	got, err := afero.ReadFile(app.Fs, "out/imdb.csv")
	require.NoError(t, err)
	assert.Equal(t, "year,title,opening_weekend,gross_world,gross_usa_canada,budget,url\n"+
		"2000,Gladiator,,460583960,,,"+srv.URL+"/releasegroup/gr1/\n", string(got))
	assert.Contains(t, out.String(), "Total movies scraped")
}

func TestIMDbCommand_NoDataWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	app, _ := testApp(t)
	t.Setenv("IMDB_BASE_URL", srv.URL)
	t.Setenv("IMDB_YEAR_DELAY", "0s")
	t.Setenv("MAX_ATTEMPTS", "1")

	require.NoError(t, run(app, "imdb", "--start-year", "2000", "--end-year", "2000"))

	exists, err := afero.Exists(app.Fs, "imdb_box_office_data.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

type fakeBrowser struct {
	fetcher.TransportFunc
	closed bool
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

func TestPayrollCommand(t *testing.T) {
	page := `<table id="table"><tbody><tr>` +
		`<td><a class="firstcol">Chelsea</a></td><td>CHE</td><td>£1</td><td>£52</td><td>£60</td>` +
		`<td>£2</td><td>£3</td><td>£4</td><td>£5</td></tr></tbody></table>`

	browser := &fakeBrowser{TransportFunc: func(ctx context.Context, url string) (*fetcher.Response, error) {
		if strings.Contains(url, "2020-2021") {
			return &fetcher.Response{Body: []byte(page), StatusCode: 200, FinalURL: url}, nil
		}
		return nil, &fetcher.StatusError{Code: 404, URL: url}
	}}

	app, out := testApp(t)
	app.NewBrowser = func(ctx context.Context, opts fetcher.BrowserOptions, rt *Runtime) (BrowserTransport, error) {
		assert.Equal(t, "#table", opts.WaitSelector)
		return browser, nil
	}
	t.Setenv("PAYROLL_DELAY", "0s")

	require.NoError(t, run(app, "payroll", "--season", "2019-2020", "--season", "2020-2021"))
	assert.True(t, browser.closed)

	files, err := afero.Glob(app.Fs, "premier_league_salaries_*.csv")
	require.NoError(t, err)
	require.Len(t, files, 1)
	got, err := afero.ReadFile(app.Fs, files[0])
	require.NoError(t, err)
	assert.Equal(t, "team_name,club_code,weekly_gross_gbp,annual_gross_gbp,adj_gross_gbp,keeper_gbp,defense_gbp,midfield_gbp,forward_gbp,season\n"+
		"Chelsea,CHE,1,52,60,2,3,4,5,2020-2021\n", string(got))
	assert.Contains(t, out.String(), "Top 10 highest spending teams")
}

func TestInvalidConfigFails(t *testing.T) {
	app, _ := testApp(t)
	t.Setenv("MAX_ATTEMPTS", "0")
	err := run(app, "merge")
	assert.ErrorContains(t, err, "MAX_ATTEMPTS")
}
