// Package report prints run summaries as console tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/user/datadesk/internal/imdb"
	"github.com/user/datadesk/internal/matches"
	"github.com/user/datadesk/internal/payroll"
	"github.com/user/datadesk/internal/pipeline"
)

const sampleRows = 5

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

func keyValues(w io.Writer, title string, rows [][2]any) {
	t := newTable(w, title)
	for _, r := range rows {
		t.AppendRow(table.Row{r[0], r[1]})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

// Run prints unit counters of a finished run.
func Run(w io.Writer, dataset string, s pipeline.Stats) {
	status := "completed"
	if s.Interrupted {
		status = "interrupted"
	}
	keyValues(w, "Run: "+dataset, [][2]any{
		{"Status", status},
		{"Units", s.Units},
		{"Succeeded", s.Succeeded},
		{"Skipped", s.Skipped},
		{"Failed", s.Failed},
		{"Records", s.Records},
	})
}

func IMDb(w io.Writer, movies []imdb.Movie) {
	s := imdb.Summarize(movies)
	keyValues(w, "Scraping Summary", [][2]any{
		{"Total movies scraped", s.Total},
		{"Years covered", fmt.Sprintf("%d - %d", s.FirstYear, s.LastYear)},
		{"Movies with opening weekend data", s.WithOpening},
		{"Movies with worldwide gross data", s.WithWorldwide},
	})

	t := newTable(w, "First rows")
	t.AppendHeader(headerRow(imdb.Columns[:len(imdb.Columns)-1]))
	for _, m := range movies[:min(sampleRows, len(movies))] {
		v := m.Values()
		t.AppendRow(valueRow(v[:len(v)-1]))
	}
	t.Render()
}

func Payroll(w io.Writer, rows []payroll.TeamPayroll) {
	s := payroll.Summarize(rows)
	keyValues(w, "Payroll Summary", [][2]any{
		{"Total records scraped", s.Total},
		{"Seasons covered", s.Seasons},
		{"Teams found", s.Teams},
	})

	sample := newTable(w, "Sample data")
	sample.AppendHeader(table.Row{"Team", "Season", "Adj. gross (GBP)"})
	for _, r := range rows[:min(10, len(rows))] {
		sample.AppendRow(table.Row{r.TeamName, r.Season, r.AdjGross})
	}
	sample.Render()

	bySeason := newTable(w, "Summary by season")
	bySeason.AppendHeader(table.Row{"Season", "Teams", "Total adj. gross (GBP)"})
	for _, st := range s.BySeason {
		bySeason.AppendRow(table.Row{st.Season, st.Teams, st.TotalAdjGross})
	}
	bySeason.Render()

	top := newTable(w, "Top 10 highest spending teams")
	top.AppendHeader(table.Row{"Team", "Season", "Adj. gross (GBP)"})
	for _, r := range s.TopSpenders {
		top.AppendRow(table.Row{r.TeamName, r.Season, r.AdjGross})
	}
	top.Render()

	counts := newTable(w, "Teams by season count")
	counts.AppendHeader(table.Row{"Team", "Seasons covered"})
	for _, c := range s.MostSeasons {
		counts.AppendRow(table.Row{c.TeamName, c.Seasons})
	}
	counts.Render()
}

func Matches(w io.Writer, m *matches.Merged) {
	s := matches.Summarize(m)
	seasons := make([]string, 0, len(s.PerSeason))
	for _, pc := range s.PerSeason {
		seasons = append(seasons, strconv.Itoa(pc.Season))
	}
	keyValues(w, "Merge Summary", [][2]any{
		{"Files merged", len(m.Files)},
		{"Rows dropped (invalid date)", m.Dropped},
		{"Season range", fmt.Sprintf("%d - %d", s.FirstSeason, s.LastSeason)},
		{"Seasons covered", len(seasons)},
		{"Total columns", s.Columns},
		{"Total matches", s.Total},
	})

	header, rows := matches.Sample(m, sampleRows)
	sample := newTable(w, fmt.Sprintf("Sample data (first %d rows)", sampleRows))
	sample.AppendHeader(headerRow(header))
	for _, r := range rows {
		sample.AppendRow(valueRow(r))
	}
	sample.Render()

	breakdown := newTable(w, "Seasons breakdown")
	breakdown.AppendHeader(table.Row{"Season", "Matches played"})
	for _, pc := range s.PerSeason {
		breakdown.AppendRow(table.Row{pc.Season, pc.Matches})
	}
	breakdown.Render()
}

func headerRow(cols []string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

func valueRow(values []string) table.Row {
	return headerRow(values)
}
