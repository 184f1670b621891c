package payroll

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/pipeline"
)

const seasonPage = `<html><body><table id="table">
<thead><tr><th>Club</th></tr></thead>
<tbody>
<tr>
  <td><a class="firstcol" href="/club/chelsea/">Chelsea</a></td><td>CHE</td>
  <td>£ 3,403,846</td><td>£ 177,000,000</td><td>£ 216,154,900</td>
  <td>£ 8,100,000</td><td>£ 54,300,000</td><td>£ 62,100,000</td><td>N/A</td>
</tr>
<tr>
  <td>Unlinked</td><td>UNL</td>
  <td>£1</td><td>£1</td><td>£1</td><td>£1</td><td>£1</td><td>£1</td><td>£1</td>
</tr>
<tr>
  <td><a class="firstcol">Arsenal</a></td><td>ARS</td>
  <td>£2,000,000</td><td>£104,000,000</td><td>£130,000,000</td>
  <td>£5,000,000</td><td>£30,000,000</td><td>£40,000,000</td><td>£29,000,000</td>
</tr>
<tr><td colspan="9">Totals</td></tr>
</tbody></table></body></html>`

type stubFetcher struct {
	pages map[string]string
}

func (s stubFetcher) Fetch(ctx context.Context, url string) domain.FetchResult {
	page, ok := s.pages[url]
	if !ok {
		return domain.Failure(url, domain.ReasonHTTPStatus, 3, fmt.Errorf("404"))
	}
	return domain.Success(url, []byte(page), http.StatusOK, 1)
}

func TestSeasons(t *testing.T) {
	seasons := Seasons(2013, 2025)
	require.Len(t, seasons, 12)
	assert.Equal(t, "2013-2014", seasons[0])
	assert.Equal(t, "2024-2025", seasons[11])
	assert.Empty(t, Seasons(2020, 2020))
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.SeasonList(), 12)

	cfg.Seasons = []string{"2020-2021", "2021-2022"}
	assert.Equal(t, []string{"2020-2021", "2021-2022"}, cfg.SeasonList())

	at := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "premier_league_salaries_20250309_140507.csv", cfg.OutputName(at))
}

func TestScrapeSeason(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewScraper(DefaultConfig(), stubFetcher{pages: map[string]string{
		"https://www.capology.com/uk/premier-league/payrolls/2020-2021/": seasonPage,
	}}, zap.New(core))

	teams, err := s.ScrapeSeason(context.Background(), "2020-2021")
	require.NoError(t, err)
	require.Len(t, teams, 2)

	assert.Equal(t, TeamPayroll{
		Season:      "2020-2021",
		TeamName:    "Chelsea",
		ClubCode:    "CHE",
		WeeklyGross: 3403846,
		AnnualGross: 177000000,
		AdjGross:    216154900,
		Keeper:      8100000,
		Defense:     54300000,
		Midfield:    62100000,
		Forward:     0,
	}, teams[0])
	assert.Equal(t, "Arsenal", teams[1].TeamName)
	assert.Equal(t, int64(29000000), teams[1].Forward)

	assert.Equal(t, 1, logs.FilterMessage("rows without a team name skipped").Len())
}

func TestUnits_MissingSeasonIsSkipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seasons = []string{"2019-2020", "2020-2021"}
	cfg.URLTemplate = "https://payroll.test/%s/"
	s := NewScraper(cfg, stubFetcher{pages: map[string]string{
		"https://payroll.test/2020-2021/": seasonPage,
		"https://payroll.test/2019-2020/": `<html><body>Access denied</body></html>`,
	}}, nil)

	set := domain.NewRecordSet[TeamPayroll]()
	stats := pipeline.Run(context.Background(), pipeline.Runner{Dataset: Dataset}, s.Units(), set)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 2, set.Len())
}

func TestScrapeSeason_FetchFailureIsSkipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seasons = []string{"1990-1991"}
	s := NewScraper(cfg, stubFetcher{}, nil)

	_, err := s.ScrapeSeason(context.Background(), "1990-1991")
	assert.ErrorIs(t, err, pipeline.ErrSkip)
}

func TestTeamPayrollValues(t *testing.T) {
	row := TeamPayroll{Season: "2020-2021", TeamName: "Chelsea", ClubCode: "CHE", AdjGross: 10}
	assert.Equal(t, Columns, row.Header())
	assert.Equal(t, []string{"Chelsea", "CHE", "0", "0", "10", "0", "0", "0", "0", "2020-2021"}, row.Values())
}

func TestSummarize(t *testing.T) {
	rows := []TeamPayroll{
		{Season: "2021-2022", TeamName: "Chelsea", AdjGross: 300},
		{Season: "2020-2021", TeamName: "Chelsea", AdjGross: 200},
		{Season: "2020-2021", TeamName: "Arsenal", AdjGross: 100},
		{Season: "2021-2022", TeamName: "Brentford", AdjGross: 50},
	}

	s := Summarize(rows)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Seasons)
	assert.Equal(t, 3, s.Teams)
	assert.Equal(t, []SeasonTotal{
		{Season: "2020-2021", Teams: 2, TotalAdjGross: 300},
		{Season: "2021-2022", Teams: 2, TotalAdjGross: 350},
	}, s.BySeason)
	require.Len(t, s.TopSpenders, 4)
	assert.Equal(t, int64(300), s.TopSpenders[0].AdjGross)
	assert.Equal(t, int64(50), s.TopSpenders[3].AdjGross)
	assert.Equal(t, TeamCount{TeamName: "Chelsea", Seasons: 2}, s.MostSeasons[0])
	assert.Len(t, s.MostSeasons, 3)
}

func TestSummarize_CapsTopLists(t *testing.T) {
	var rows []TeamPayroll
	for i := 0; i < 15; i++ {
		rows = append(rows, TeamPayroll{Season: "2020-2021", TeamName: fmt.Sprintf("Team %d", i), AdjGross: int64(i)})
	}
	s := Summarize(rows)
	assert.Len(t, s.TopSpenders, 10)
	assert.Equal(t, int64(14), s.TopSpenders[0].AdjGross)
	assert.Len(t, s.MostSeasons, 10)
}
