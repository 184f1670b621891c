package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/fetcher"
	"github.com/user/datadesk/internal/imdb"
	"github.com/user/datadesk/internal/pipeline"
	"github.com/user/datadesk/internal/report"
	"github.com/user/datadesk/internal/storage"
)

func newIMDbCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imdb",
		Short: "Scrape yearly worldwide box-office figures from IMDbPro",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.start(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			cfg := rt.Config

			transport := fetcher.NewHTTPTransport(fetcher.HTTPOptions{
				Timeout: cfg.RequestTimeout,
				Proxies: newProxyManager(cfg),
			})
			sleeper := fetcher.RealSleeper{}
			scraper := imdb.NewScraper(cfg.IMDb, rt.Fetcher(transport), sleeper, rt.Logger)
			scraper.Instrument(rt.Metrics, rt.Progress)

			set := domain.NewRecordSet[imdb.Movie]()
			rt.Logger.Info("starting scrape",
				zap.Int("start_year", cfg.IMDb.StartYear),
				zap.Int("end_year", cfg.IMDb.EndYear))
			stats := pipeline.Run(ctx, rt.Runner(imdb.Dataset, cfg.IMDb.YearDelay, sleeper), scraper.Units(), set)
			report.Run(app.Out, imdb.Dataset, stats)

			movies := set.Items()
			if len(movies) == 0 {
				rt.Logger.Warn("no data to save")
				return nil
			}
			out := filepath.Clean(cfg.IMDb.Output)
			if err := storage.WriteCSV(app.Fs, out, imdb.Columns, movies); err != nil {
				return err
			}
			rt.Logger.Info("data saved", zap.String("file", out), zap.Int("movies", len(movies)))
			persist(ctx, rt, imdb.Dataset, imdb.Columns, movies)
			report.IMDb(app.Out, movies)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("start-year", 1977, "first year to scrape")
	flags.Int("end-year", 2024, "last year to scrape (inclusive)")
	flags.String("output", imdb.DefaultOutput, "CSV output path")
	bind(app.Viper, flags, map[string]string{
		"imdb.start_year": "start-year",
		"imdb.end_year":   "end-year",
		"imdb.output":     "output",
	})
	return cmd
}
