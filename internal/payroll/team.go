package payroll

import (
	"sort"
	"strconv"

	"github.com/user/datadesk/internal/domain"
)

var Columns = []string{
	"team_name", "club_code",
	"weekly_gross_gbp", "annual_gross_gbp", "adj_gross_gbp",
	"keeper_gbp", "defense_gbp", "midfield_gbp", "forward_gbp",
	"season",
}

// TeamPayroll is one club's payroll for one season, in whole pounds.
type TeamPayroll struct {
	Season      string
	TeamName    string
	ClubCode    string
	WeeklyGross int64
	AnnualGross int64
	AdjGross    int64
	Keeper      int64
	Defense     int64
	Midfield    int64
	Forward     int64
}

var _ domain.Row = TeamPayroll{}

func (t TeamPayroll) Header() []string {
	return Columns
}

func (t TeamPayroll) Values() []string {
	f := func(v int64) string { return strconv.FormatInt(v, 10) }
	return []string{
		t.TeamName, t.ClubCode,
		f(t.WeeklyGross), f(t.AnnualGross), f(t.AdjGross),
		f(t.Keeper), f(t.Defense), f(t.Midfield), f(t.Forward),
		t.Season,
	}
}

func teamFromRecord(rec domain.Record, season string) TeamPayroll {
	name, _ := rec.String("team_name")
	code, _ := rec.String("club_code")
	n := func(field string) int64 {
		v, _ := rec.Int(field)
		return v
	}
	return TeamPayroll{
		Season:      season,
		TeamName:    name,
		ClubCode:    code,
		WeeklyGross: n("weekly_gross_gbp"),
		AnnualGross: n("annual_gross_gbp"),
		AdjGross:    n("adj_gross_gbp"),
		Keeper:      n("keeper_gbp"),
		Defense:     n("defense_gbp"),
		Midfield:    n("midfield_gbp"),
		Forward:     n("forward_gbp"),
	}
}

type SeasonTotal struct {
	Season        string
	Teams         int
	TotalAdjGross int64
}

type TeamCount struct {
	TeamName string
	Seasons  int
}

// Summary is the console report of a run.
type Summary struct {
	Total       int
	Seasons     int
	Teams       int
	BySeason    []SeasonTotal
	TopSpenders []TeamPayroll
	MostSeasons []TeamCount
}

const topN = 10

func Summarize(rows []TeamPayroll) Summary {
	bySeason := map[string]*SeasonTotal{}
	counts := map[string]int{}
	var seasonOrder, teamOrder []string
	for _, r := range rows {
		st, ok := bySeason[r.Season]
		if !ok {
			st = &SeasonTotal{Season: r.Season}
			bySeason[r.Season] = st
			seasonOrder = append(seasonOrder, r.Season)
		}
		st.Teams++
		st.TotalAdjGross += r.AdjGross

		if _, ok := counts[r.TeamName]; !ok {
			teamOrder = append(teamOrder, r.TeamName)
		}
		counts[r.TeamName]++
	}

	s := Summary{Total: len(rows), Seasons: len(seasonOrder), Teams: len(teamOrder)}

	sort.Strings(seasonOrder)
	for _, season := range seasonOrder {
		s.BySeason = append(s.BySeason, *bySeason[season])
	}

	spenders := make([]TeamPayroll, len(rows))
	copy(spenders, rows)
	sort.SliceStable(spenders, func(i, j int) bool { return spenders[i].AdjGross > spenders[j].AdjGross })
	s.TopSpenders = spenders[:min(topN, len(spenders))]

	for _, team := range teamOrder {
		s.MostSeasons = append(s.MostSeasons, TeamCount{TeamName: team, Seasons: counts[team]})
	}
	sort.SliceStable(s.MostSeasons, func(i, j int) bool { return s.MostSeasons[i].Seasons > s.MostSeasons[j].Seasons })
	s.MostSeasons = s.MostSeasons[:min(topN, len(s.MostSeasons))]
	return s
}
