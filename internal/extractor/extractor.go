// Package extractor pulls flat records out of HTML using selector maps
// described as data rather than per-site query code.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/datadesk/internal/domain"
)

// ErrNotFound means the page has no usable data: the container is absent or
// a required field is empty.
var ErrNotFound = errors.New("expected content not found")

// Parser converts matched text into a record value. Returning false leaves
// the field unset.
type Parser func(text string) (any, bool)

// FieldSpec locates one field relative to a container.
type FieldSpec struct {
	Name string
	// Selector is evaluated within the container; empty means the container itself.
	Selector string
	// Attr reads an attribute instead of the element text.
	Attr     string
	Parse    Parser
	Required bool
}

// FieldMap describes a single-record page.
type FieldMap struct {
	Container string
	Fields    []FieldSpec
}

// TableMap describes a page with one record per row.
type TableMap struct {
	Container string
	Row       string
	// MinCells skips rows with fewer td cells.
	MinCells int
	Fields   []FieldSpec
}

// Link is an anchor's text and resolved URL.
type Link struct {
	Text string
	URL  string
}

// Extract applies fm to payload.
func Extract(payload []byte, fm FieldMap) (domain.Record, error) {
	doc, err := parse(payload)
	if err != nil {
		return nil, err
	}
	container := doc.Find(fm.Container).First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: container %q", ErrNotFound, fm.Container)
	}
	return extractFields(container, fm.Fields)
}

// ExtractTable applies tm to payload and returns one record per usable row.
// Rows missing a required field are skipped and counted in skipped.
func ExtractTable(payload []byte, tm TableMap) (records []domain.Record, skipped int, err error) {
	doc, err := parse(payload)
	if err != nil {
		return nil, 0, err
	}
	container := doc.Find(tm.Container).First()
	if container.Length() == 0 {
		return nil, 0, fmt.Errorf("%w: container %q", ErrNotFound, tm.Container)
	}

	container.Find(tm.Row).Each(func(i int, row *goquery.Selection) {
		if row.Find("td").Length() < tm.MinCells {
			return
		}
		rec, err := extractFields(row, tm.Fields)
		if err != nil {
			skipped++
			return
		}
		records = append(records, rec)
	})
	return records, skipped, nil
}

// Links returns anchors matching selector whose href contains hrefContains,
// resolved against base, in document order.
func Links(payload []byte, base, selector, hrefContains string) ([]Link, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := parse(payload)
	if err != nil {
		return nil, err
	}

	var links []Link
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" || !strings.Contains(href, hrefContains) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, Link{
			Text: strings.TrimSpace(s.Text()),
			URL:  baseURL.ResolveReference(ref).String(),
		})
	})
	return links, nil
}

func parse(payload []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func extractFields(scope *goquery.Selection, fields []FieldSpec) (domain.Record, error) {
	rec := domain.Record{}
	for _, f := range fields {
		text, found := locate(scope, f)
		if !found || text == "" {
			if f.Required {
				return nil, fmt.Errorf("%w: field %q", ErrNotFound, f.Name)
			}
			continue
		}

		if f.Parse == nil {
			rec.Set(f.Name, text)
			continue
		}
		v, ok := f.Parse(text)
		if !ok {
			if f.Required {
				return nil, fmt.Errorf("%w: field %q unparsable", ErrNotFound, f.Name)
			}
			continue
		}
		rec.Set(f.Name, v)
	}
	return rec, nil
}

func locate(scope *goquery.Selection, f FieldSpec) (string, bool) {
	sel := scope
	if f.Selector != "" {
		sel = scope.Find(f.Selector).First()
	}
	if sel.Length() == 0 {
		return "", false
	}
	if f.Attr != "" {
		v, ok := sel.Attr(f.Attr)
		return strings.TrimSpace(v), ok
	}
	return strings.TrimSpace(sel.Text()), true
}
