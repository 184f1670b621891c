package matches

import "sort"

// SampleColumns are shown in the console sample when present.
var SampleColumns = []string{"Date", "Season", "HomeTeam", "AwayTeam", "FTHG", "FTAG", "FTR"}

type SeasonCount struct {
	Season  int
	Matches int
}

type Summary struct {
	Total       int
	Columns     int
	FirstSeason int
	LastSeason  int
	PerSeason   []SeasonCount
}

func Summarize(m *Merged) Summary {
	counts := map[int]int{}
	for _, r := range m.Rows {
		counts[r.Season]++
	}
	s := Summary{Total: len(m.Rows), Columns: len(m.Columns)}
	for season, n := range counts {
		s.PerSeason = append(s.PerSeason, SeasonCount{Season: season, Matches: n})
	}
	sort.Slice(s.PerSeason, func(i, j int) bool { return s.PerSeason[i].Season < s.PerSeason[j].Season })
	if len(s.PerSeason) > 0 {
		s.FirstSeason = s.PerSeason[0].Season
		s.LastSeason = s.PerSeason[len(s.PerSeason)-1].Season
	}
	return s
}

// Sample returns the first n rows restricted to the SampleColumns present.
func Sample(m *Merged, n int) (header []string, rows [][]string) {
	present := map[string]int{}
	for i, c := range m.Columns {
		present[c] = i
	}
	var idx []int
	for _, c := range SampleColumns {
		if i, ok := present[c]; ok {
			header = append(header, c)
			idx = append(idx, i)
		}
	}
	for _, r := range m.Rows[:min(n, len(m.Rows))] {
		values := r.Values()
		row := make([]string, len(idx))
		for j, i := range idx {
			row[j] = values[i]
		}
		rows = append(rows, row)
	}
	return header, rows
}
