// Package payroll scrapes Premier League club payroll tables, one season page
// per unit. The pages render client-side and are fetched through a browser.
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/extractor"
	"github.com/user/datadesk/internal/normalize"
	"github.com/user/datadesk/internal/pipeline"
)

const (
	DefaultURLTemplate = "https://www.capology.com/uk/premier-league/payrolls/%s/"
	Dataset            = "payroll"
)

type Config struct {
	URLTemplate string `mapstructure:"url_template"`
	StartYear   int    `mapstructure:"start_year"`
	// EndYear is exclusive: 2013..2025 covers 2013-2014 through 2024-2025.
	EndYear int `mapstructure:"end_year"`
	// Seasons overrides the generated list when set.
	Seasons      []string      `mapstructure:"seasons"`
	Delay        time.Duration `mapstructure:"delay"`
	OutputPrefix string        `mapstructure:"output_prefix"`
}

func DefaultConfig() Config {
	return Config{
		URLTemplate:  DefaultURLTemplate,
		StartYear:    2013,
		EndYear:      2025,
		Delay:        2 * time.Second,
		OutputPrefix: "premier_league_salaries",
	}
}

// SeasonList returns the explicit seasons if any, else the generated range.
func (c Config) SeasonList() []string {
	if len(c.Seasons) > 0 {
		return c.Seasons
	}
	return Seasons(c.StartYear, c.EndYear)
}

// OutputName is the timestamped CSV file name for a run started at t.
func (c Config) OutputName(t time.Time) string {
	prefix := c.OutputPrefix
	if prefix == "" {
		prefix = "premier_league_salaries"
	}
	return fmt.Sprintf("%s_%s.csv", prefix, t.Format("20060102_150405"))
}

// Seasons returns "Y-Y+1" labels for every start year in [start, end).
func Seasons(start, end int) []string {
	var seasons []string
	for y := start; y < end; y++ {
		seasons = append(seasons, fmt.Sprintf("%d-%d", y, y+1))
	}
	return seasons
}

// TableMap reads one club per row. Money cells resolve to zero when they do
// not parse so season totals stay numeric.
var TableMap = extractor.TableMap{
	Container: "table#table",
	Row:       "tbody tr",
	MinCells:  9,
	Fields: []extractor.FieldSpec{
		{Name: "team_name", Selector: "td:nth-child(1) a.firstcol", Required: true},
		{Name: "club_code", Selector: "td:nth-child(2)"},
		money("weekly_gross_gbp", 3),
		money("annual_gross_gbp", 4),
		money("adj_gross_gbp", 5),
		money("keeper_gbp", 6),
		money("defense_gbp", 7),
		money("midfield_gbp", 8),
		money("forward_gbp", 9),
	},
}

func money(name string, cell int) extractor.FieldSpec {
	return extractor.FieldSpec{
		Name:     name,
		Selector: fmt.Sprintf("td:nth-child(%d)", cell),
		Parse:    normalize.CurrencyParser(domain.SentinelZero),
	}
}

// Fetcher is the subset of *fetcher.Fetcher the scraper needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) domain.FetchResult
}

type Scraper struct {
	cfg    Config
	fetch  Fetcher
	logger *zap.Logger
}

func NewScraper(cfg Config, f Fetcher, logger *zap.Logger) *Scraper {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{cfg: cfg, fetch: f, logger: logger}
}

func (s *Scraper) SeasonURL(season string) string {
	return fmt.Sprintf(s.cfg.URLTemplate, season)
}

// Units returns one unit per season.
func (s *Scraper) Units() []pipeline.Unit[TeamPayroll] {
	seasons := s.cfg.SeasonList()
	units := make([]pipeline.Unit[TeamPayroll], 0, len(seasons))
	for _, season := range seasons {
		units = append(units, pipeline.Unit[TeamPayroll]{
			Name: season,
			Do: func(ctx context.Context) ([]TeamPayroll, error) {
				return s.ScrapeSeason(ctx, season)
			},
		})
	}
	return units
}

// ScrapeSeason returns the clubs listed on the season's payroll page.
func (s *Scraper) ScrapeSeason(ctx context.Context, season string) ([]TeamPayroll, error) {
	url := s.SeasonURL(season)
	s.logger.Info("scraping season", zap.String("season", season), zap.String("url", url))

	res := s.fetch.Fetch(ctx, url)
	if !res.OK() {
		return nil, pipeline.Skip("season %s: %s", season, res.Reason())
	}
	recs, skipped, err := extractor.ExtractTable(res.Payload(), TableMap)
	if errors.Is(err, extractor.ErrNotFound) {
		return nil, pipeline.Skip("season %s: payroll table not found", season)
	}
	if err != nil {
		return nil, fmt.Errorf("season %s: %w", season, err)
	}
	if skipped > 0 {
		s.logger.Warn("rows without a team name skipped",
			zap.String("season", season), zap.Int("rows", skipped))
	}

	teams := make([]TeamPayroll, 0, len(recs))
	for _, rec := range recs {
		teams = append(teams, teamFromRecord(rec, season))
	}
	s.logger.Info("scraped season", zap.String("season", season), zap.Int("teams", len(teams)))
	return teams, nil
}
