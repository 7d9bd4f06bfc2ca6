package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadVideoURLs reads the video list from a spreadsheet (.xlsx) or a plain
// text file with one URL per line. Rows without an http(s) URL are skipped.
func LoadVideoURLs(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadSheet(path)
	}
	return loadLines(path)
}

// loadSheet auto-detects the url column by header heuristics.
func loadSheet(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}

	urlIdx := -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(l, "url") || strings.Contains(l, "link") || strings.Contains(l, "video") {
			urlIdx = i
			break
		}
	}
	start := 1
	if urlIdx == -1 {
		// no recognisable header: first column, first row included
		urlIdx, start = 0, 0
	}

	var out []string
	for _, r := range rows[start:] {
		if urlIdx >= len(r) {
			continue
		}
		if u := strings.TrimSpace(r[urlIdx]); isHTTP(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func loadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if isHTTP(line) {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

func isHTTP(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
