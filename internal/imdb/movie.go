package imdb

import (
	"strconv"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/extractor"
)

// Columns is the CSV header order.
var Columns = []string{"year", "title", "opening_weekend", "gross_world", "gross_usa_canada", "budget", "url"}

// Movie holds one release group's figures. Nil amounts were not reported.
type Movie struct {
	Year           int
	Title          string
	URL            string
	OpeningWeekend *int64
	GrossWorld     *int64
	GrossUSACanada *int64
	Budget         *int64
}

var _ domain.Row = Movie{}

func (m Movie) Header() []string {
	return Columns
}

func (m Movie) Values() []string {
	return []string{
		strconv.Itoa(m.Year),
		m.Title,
		amount(m.OpeningWeekend),
		amount(m.GrossWorld),
		amount(m.GrossUSACanada),
		amount(m.Budget),
		m.URL,
	}
}

func amount(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func movieFromRecord(rec domain.Record, year int, link extractor.Link) Movie {
	return Movie{
		Year:           year,
		Title:          link.Text,
		URL:            link.URL,
		OpeningWeekend: field(rec, "opening_weekend"),
		GrossWorld:     field(rec, "gross_world"),
		GrossUSACanada: field(rec, "gross_usa_canada"),
		Budget:         field(rec, "budget"),
	}
}

func field(rec domain.Record, name string) *int64 {
	v, ok := rec.Int(name)
	if !ok {
		return nil
	}
	return &v
}

// Summary describes a finished run.
type Summary struct {
	Total         int
	FirstYear     int
	LastYear      int
	WithOpening   int
	WithWorldwide int
}

func Summarize(movies []Movie) Summary {
	var s Summary
	for i, m := range movies {
		if i == 0 || m.Year < s.FirstYear {
			s.FirstYear = m.Year
		}
		if i == 0 || m.Year > s.LastYear {
			s.LastYear = m.Year
		}
		if m.OpeningWeekend != nil {
			s.WithOpening++
		}
		if m.GrossWorld != nil {
			s.WithWorldwide++
		}
	}
	s.Total = len(movies)
	return s
}
