package cli

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/fetcher"
	"github.com/user/datadesk/internal/payroll"
	"github.com/user/datadesk/internal/pipeline"
	"github.com/user/datadesk/internal/report"
	"github.com/user/datadesk/internal/storage"
)

func newPayrollCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Scrape Premier League club payrolls per season",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.start(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			cfg := rt.Config
			startedAt := time.Now()

			browser, err := app.NewBrowser(ctx, fetcher.BrowserOptions{
				Headless:     cfg.Browser.Headless,
				Proxies:      newProxyManager(cfg),
				PageTimeout:  cfg.Browser.PageTimeout,
				WaitSelector: cfg.Browser.WaitSelector,
				WaitTimeout:  cfg.Browser.WaitTimeout,
				SettleDelay:  cfg.Browser.SettleDelay,
			}, rt)
			if err != nil {
				return err
			}
			defer browser.Close()

			seasons := cfg.Payroll.SeasonList()
			rt.Logger.Info("starting scrape", zap.Strings("seasons", seasons))

			sleeper := fetcher.RealSleeper{}
			scraper := payroll.NewScraper(cfg.Payroll, rt.Fetcher(browser), rt.Logger)
			set := domain.NewRecordSet[payroll.TeamPayroll]()
			stats := pipeline.Run(ctx, rt.Runner(payroll.Dataset, cfg.Payroll.Delay, sleeper), scraper.Units(), set)
			report.Run(app.Out, payroll.Dataset, stats)

			rows := set.Items()
			if len(rows) == 0 {
				rt.Logger.Warn("no data was scraped successfully")
				return nil
			}
			out := cfg.Payroll.OutputName(startedAt)
			if err := storage.WriteCSV(app.Fs, out, payroll.Columns, rows); err != nil {
				return err
			}
			rt.Logger.Info("data saved", zap.String("file", out), zap.Int("rows", len(rows)))
			persist(ctx, rt, payroll.Dataset, payroll.Columns, rows)
			report.Payroll(app.Out, rows)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("start-year", 2013, "first season start year")
	flags.Int("end-year", 2025, "season start year to stop before")
	flags.StringSlice("season", nil, "explicit season to scrape, e.g. 2020-2021 (repeatable)")
	flags.Bool("headless", true, "run Chrome headless")
	bind(app.Viper, flags, map[string]string{
		"payroll.start_year": "start-year",
		"payroll.end_year":   "end-year",
		"payroll.seasons":    "season",
		"browser.headless":   "headless",
	})
	return cmd
}
