package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/datadesk/internal/matches"
	"github.com/user/datadesk/internal/report"
	"github.com/user/datadesk/internal/storage"
)

func newMergeCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge per-season Premier League result files into one CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.start(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			cfg := rt.Config.Merge

			merged, err := matches.NewMerger(app.Fs, cfg, rt.Logger).Merge()
			if err != nil {
				return err
			}
			out := cfg.OutputPath()
			if err := storage.WriteCSV(app.Fs, out, merged.Columns, merged.Rows); err != nil {
				return err
			}
			rt.Logger.Info("saved merged data", zap.String("file", out), zap.Int("rows", len(merged.Rows)))
			persist(ctx, rt, "matches", merged.Columns, merged.Rows)
			report.Matches(app.Out, merged)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("dir", matches.DefaultConfig().Dir, "directory holding the result files")
	bind(app.Viper, flags, map[string]string{"merge.dir": "dir"})
	return cmd
}
