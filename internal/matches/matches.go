// Package matches merges per-season football-data.co.uk result files into one
// dated, season-labelled CSV.
package matches

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/normalize"
)

// ErrNoFiles means none of the candidate files could be loaded.
var ErrNoFiles = errors.New("no data files loaded")

const (
	DateColumn   = "Date"
	SeasonColumn = "Season"
	DateFormat   = "2006-01-02"
	sampleSize   = 5
)

type Config struct {
	Dir     string `mapstructure:"dir"`
	Pattern string `mapstructure:"pattern"`
	FirstID int    `mapstructure:"first_id"`
	LastID  int    `mapstructure:"last_id"`
	Output  string `mapstructure:"output"`
}

func DefaultConfig() Config {
	return Config{
		Dir:     "articles/prem-home-invasion",
		Pattern: "E0 (%d).csv",
		FirstID: 4,
		LastID:  36,
		Output:  "premier_league_merged.csv",
	}
}

// Candidates returns the file names the merge looks for, in order.
func (c Config) Candidates() []string {
	var names []string
	for id := c.FirstID; id <= c.LastID; id++ {
		names = append(names, fmt.Sprintf(c.Pattern, id))
	}
	return names
}

func (c Config) OutputPath() string {
	return filepath.Join(c.Dir, c.Output)
}

// Match is one result row. Fields holds the raw cells by column name.
type Match struct {
	Date   time.Time
	Season int
	Fields map[string]string

	columns []string
}

var _ domain.Row = Match{}

// NewMatch builds a row dated d laid out by columns.
func NewMatch(columns []string, d time.Time, fields map[string]string) Match {
	return Match{Date: d, Season: SeasonFor(d), Fields: fields, columns: columns}
}

func (m Match) Header() []string {
	return m.columns
}

func (m Match) Values() []string {
	out := make([]string, len(m.columns))
	for i, col := range m.columns {
		switch col {
		case DateColumn:
			out[i] = m.Date.Format(DateFormat)
		case SeasonColumn:
			out[i] = strconv.Itoa(m.Season)
		default:
			out[i] = m.Fields[col]
		}
	}
	return out
}

// Merged is the combined, date-sorted result.
type Merged struct {
	// Columns is the union of all file headers in first-seen order, with
	// Season last unless a file already carries it. Season cells are always
	// derived from Date.
	Columns []string
	Rows    []Match
	Files   []string
	// Dropped counts rows removed for a missing or unparsable date.
	Dropped int
}

// SeasonFor labels a match by the calendar year its season ends in. Seasons
// start in August.
func SeasonFor(t time.Time) int {
	if t.Month() >= time.August {
		return t.Year() + 1
	}
	return t.Year()
}

type Merger struct {
	fs     afero.Fs
	cfg    Config
	logger *zap.Logger
}

func NewMerger(fs afero.Fs, cfg Config, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{fs: fs, cfg: cfg, logger: logger}
}

type pending struct {
	date   normalize.Date
	fields map[string]string
}

// Merge loads every candidate file present in the data directory. Missing
// and unreadable files are logged and skipped.
func (m *Merger) Merge() (*Merged, error) {
	m.listDir()

	var (
		columns []string
		seen    = map[string]bool{}
		rows    []pending
		files   []string
	)
	for _, name := range m.cfg.Candidates() {
		path := filepath.Join(m.cfg.Dir, name)
		header, recs, err := m.readFile(path)
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("file not found, skipping", zap.String("file", name))
			continue
		}
		if err != nil {
			m.logger.Error("error reading file", zap.String("file", name), zap.Error(err))
			continue
		}

		for _, col := range header {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
		rows = append(rows, m.parseDates(name, recs)...)
		files = append(files, name)
		m.logger.Info("read file", zap.String("file", name), zap.Int("rows", len(recs)))
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	m.logger.Info("merged data", zap.Int("rows", len(rows)))

	if !seen[DateColumn] {
		columns = append(columns, DateColumn)
	}
	if !seen[SeasonColumn] {
		columns = append(columns, SeasonColumn)
	}

	out := &Merged{Columns: columns, Files: files}
	for _, r := range rows {
		if !r.date.Valid {
			out.Dropped++
			continue
		}
		out.Rows = append(out.Rows, NewMatch(columns, r.date.Time, r.fields))
	}
	if out.Dropped > 0 {
		m.logger.Warn("dropping rows with invalid or missing dates", zap.Int("rows", out.Dropped))
	}
	sort.SliceStable(out.Rows, func(i, j int) bool { return out.Rows[i].Date.Before(out.Rows[j].Date) })
	return out, nil
}

func (m *Merger) listDir() {
	entries, err := afero.ReadDir(m.fs, m.cfg.Dir)
	if err != nil {
		m.logger.Warn("cannot list data directory", zap.String("dir", m.cfg.Dir), zap.Error(err))
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	m.logger.Info("files in data directory", zap.String("dir", m.cfg.Dir), zap.Strings("files", names))
}

func (m *Merger) readFile(path string) ([]string, []map[string]string, error) {
	f, err := m.fs.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	header = uniqueHeader(header)

	var recs []map[string]string
	for {
		line, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(recs)+2, err)
		}
		if isBlank(line) {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(line) {
				rec[col] = line[i]
			}
		}
		recs = append(recs, rec)
	}
	return header, recs, nil
}

func (m *Merger) parseDates(name string, recs []map[string]string) []pending {
	values := make([]string, len(recs))
	for i, rec := range recs {
		values[i] = strings.TrimSpace(rec[DateColumn])
	}
	col := normalize.Dates(values)
	if len(values) > 0 && col.Missing() == len(values) {
		m.logger.Warn("date parsing failed completely",
			zap.String("file", name),
			zap.Strings("sample", values[:min(sampleSize, len(values))]))
	}

	out := make([]pending, len(recs))
	for i, rec := range recs {
		out[i] = pending{date: col.Dates[i], fields: rec}
	}
	return out
}

// uniqueHeader names blank columns "Unnamed: <index>" and suffixes repeated
// names with ".1", ".2" and so on, so every cell keeps its own column.
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			col = "Unnamed: " + strconv.Itoa(i)
		}
		name := col
		for n := 1; used[name]; n++ {
			name = col + "." + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func isBlank(line []string) bool {
	for _, v := range line {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
