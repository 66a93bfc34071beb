package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pgm-split-go/internal/pgm"
)

func main() {
	path := flag.String("path", "", "Path to a PGM file or a directory of them")
	flag.Parse()

	if *path == "" {
		logrus.Fatal("missing -path")
	}

	files, err := listFiles(*path)
	if err != nil {
		logrus.Fatalf("list files: %v", err)
	}

	var ok, partial, short, empty int
	for _, file := range files {
		summary, err := inspectFile(file)
		if err != nil {
			logrus.Warnf("inspect %s: %v", file, err)
			continue
		}
		fmt.Printf("%s: %dx%d payload=%d %s\n", file, summary.Width, summary.Height, summary.Payload, summary.Verdict())
		switch summary.Verdict() {
		case verdictPartial:
			partial++
		case verdictShort:
			short++
		case verdictEmpty:
			empty++
		default:
			ok++
		}
	}

	fmt.Printf("summary: ok=%d partial=%d short=%d empty=%d\n", ok, partial, short, empty)
}

const (
	verdictOK      = "ok"
	verdictPartial = "partial-row"
	verdictShort   = "short"
	verdictEmpty   = "empty"
)

type fileSummary struct {
	pgm.Header
	Payload int64
}

// Verdict compares the payload with the declared dimensions. A payload longer
// than width*height is what the splitter writes for a trailing partial row.
func (s fileSummary) Verdict() string {
	declared := int64(s.Width) * int64(s.Height)
	switch {
	case s.Payload == 0 && declared == 0:
		return verdictEmpty
	case s.Payload > declared:
		return verdictPartial
	case s.Payload < declared:
		return verdictShort
	default:
		return verdictOK
	}
}

func inspectFile(path string) (fileSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileSummary{}, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := pgm.ReadHeader(r)
	if err != nil {
		return fileSummary{}, err
	}
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return fileSummary{}, errors.Wrap(err, "read payload")
	}
	return fileSummary{Header: header, Payload: n}, nil
}

func listFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == pgm.Extension {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
