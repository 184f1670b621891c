// Package imdb scrapes yearly box-office figures from IMDbPro: one unit per
// year lists the release groups, one nested unit per movie reads its
// box-office summary.
package imdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/extractor"
	"github.com/user/datadesk/internal/fetcher"
	"github.com/user/datadesk/internal/monitoring"
	"github.com/user/datadesk/internal/normalize"
	"github.com/user/datadesk/internal/pipeline"
)

const (
	DefaultBaseURL = "https://pro.imdb.com"
	DefaultOutput  = "imdb_box_office_data.csv"
	Dataset        = "imdb"
	// MovieDataset labels the per-movie units run inside each year.
	MovieDataset = "imdb_movies"
)

// Config controls which years are scraped and how politely.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	StartYear  int           `mapstructure:"start_year"`
	EndYear    int           `mapstructure:"end_year"`
	Output     string        `mapstructure:"output"`
	MovieDelay time.Duration `mapstructure:"movie_delay"`
	YearDelay  time.Duration `mapstructure:"year_delay"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		StartYear:  1977,
		EndYear:    2024,
		Output:     DefaultOutput,
		MovieDelay: time.Second,
		YearDelay:  2 * time.Second,
	}
}

// Years returns the inclusive year range.
func (c Config) Years() []int {
	var years []int
	for y := c.StartYear; y <= c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// Fetcher is the subset of *fetcher.Fetcher the scraper needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) domain.FetchResult
}

const valueSelector = "div.a-column.a-span5.a-text-right.a-span-last"

// SummaryMap reads the four box-office figures. Unparsable amounts stay unknown.
var SummaryMap = extractor.FieldMap{
	Container: "div#box_office_summary",
	Fields: []extractor.FieldSpec{
		section("opening_wknd_summary", "opening_weekend"),
		section("gross_world_summary", "gross_world"),
		section("budget_summary", "budget"),
		section("gross_usa_summary", "gross_usa_canada"),
	},
}

func section(class, field string) extractor.FieldSpec {
	return extractor.FieldSpec{
		Name:     field,
		Selector: "div." + class + " " + valueSelector,
		Parse:    normalize.CurrencyParser(domain.SentinelUnknown),
	}
}

// Scraper builds pipeline units for IMDb year pages.
type Scraper struct {
	cfg     Config
	fetch   Fetcher
	sleeper fetcher.Sleeper
	logger  *zap.Logger

	metrics  *monitoring.Metrics
	progress *pipeline.Progress
}

func NewScraper(cfg Config, f Fetcher, sleeper fetcher.Sleeper, logger *zap.Logger) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{cfg: cfg, fetch: f, sleeper: sleeper, logger: logger}
}

// Instrument reports per-movie units to metrics under MovieDataset and to
// the nested section of progress.
func (s *Scraper) Instrument(metrics *monitoring.Metrics, progress *pipeline.Progress) {
	s.metrics = metrics
	s.progress = progress.Nested()
}

// YearURL is the worldwide box-office listing for year.
func (s *Scraper) YearURL(year int) string {
	return fmt.Sprintf("%s/boxoffice/year/world/%d/", s.cfg.BaseURL, year)
}

// Units returns one unit per configured year.
func (s *Scraper) Units() []pipeline.Unit[Movie] {
	years := s.cfg.Years()
	units := make([]pipeline.Unit[Movie], 0, len(years))
	for _, year := range years {
		units = append(units, pipeline.Unit[Movie]{
			Name: strconv.Itoa(year),
			Do: func(ctx context.Context) ([]Movie, error) {
				return s.ScrapeYear(ctx, year)
			},
		})
	}
	return units
}

// ScrapeYear lists the year's movies and scrapes each one. A year page that
// cannot be fetched yields no movies.
func (s *Scraper) ScrapeYear(ctx context.Context, year int) ([]Movie, error) {
	links, err := s.movieLinks(ctx, year)
	if err != nil {
		return nil, err
	}

	units := make([]pipeline.Unit[Movie], 0, len(links))
	for _, link := range links {
		if link.Text == "" {
			s.logger.Warn("skipping movie link without title", zap.String("url", link.URL))
			continue
		}
		units = append(units, pipeline.Unit[Movie]{
			Name: link.Text,
			Do: func(ctx context.Context) ([]Movie, error) {
				m, err := s.ScrapeMovie(ctx, year, link)
				if err != nil {
					return nil, err
				}
				return []Movie{m}, nil
			},
		})
	}

	set := domain.NewRecordSet[Movie]()
	stats := pipeline.Run(ctx, pipeline.Runner{
		Dataset:  MovieDataset,
		Delay:    s.cfg.MovieDelay,
		Sleeper:  s.sleeper,
		Logger:   s.logger.With(zap.Int("year", year)),
		Metrics:  s.metrics,
		Progress: s.progress,
	}, units, set)

	s.logger.Info("completed year",
		zap.Int("year", year),
		zap.Int("movies", stats.Records),
		zap.Int("links", len(links)))
	return set.Items(), nil
}

func (s *Scraper) movieLinks(ctx context.Context, year int) ([]extractor.Link, error) {
	url := s.YearURL(year)
	s.logger.Info("scraping year page", zap.String("url", url))

	res := s.fetch.Fetch(ctx, url)
	if !res.OK() {
		return nil, pipeline.Skip("year page %s: %s", url, res.Reason())
	}
	links, err := extractor.Links(res.Payload(), s.cfg.BaseURL, "a.a-link-normal", "/releasegroup/")
	if err != nil {
		return nil, fmt.Errorf("year %d links: %w", year, err)
	}
	return links, nil
}

// ScrapeMovie reads the box-office summary of one release group.
func (s *Scraper) ScrapeMovie(ctx context.Context, year int, link extractor.Link) (Movie, error) {
	res := s.fetch.Fetch(ctx, link.URL)
	if !res.OK() {
		return Movie{}, pipeline.Skip("movie %q: %s", link.Text, res.Reason())
	}
	rec, err := extractor.Extract(res.Payload(), SummaryMap)
	if errors.Is(err, extractor.ErrNotFound) {
		return Movie{}, pipeline.Skip("no box office section for %q", link.Text)
	}
	if err != nil {
		return Movie{}, fmt.Errorf("movie %q: %w", link.Text, err)
	}
	return movieFromRecord(rec, year, link), nil
}
