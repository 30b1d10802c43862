package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/TFMV/reconcile/pkg/core"
)

// commentPrefixes mark lines that are skipped in every input file.
var commentPrefixes = []string{"--", "//", "'"}

// ConfigurationError describes an unusable input file or line. Line is zero
// when the whole file is affected.
type ConfigurationError struct {
	File   string
	Line   int
	Text   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s - %s", e.File, e.Reason)
	}
	return fmt.Sprintf("%s:%d - %s: %q", e.File, e.Line, e.Reason, e.Text)
}

// Inputs is everything a run reads from the input directory.
type Inputs struct {
	Tables []core.Table
	Pairs  []core.SourcePair
	Ignore core.IgnoreSet

	// Errors holds one *ConfigurationError per unusable file or line.
	Errors []error
}

// LoadInputs reads the three input files. Problems are collected in
// Inputs.Errors and the valid remainder is returned.
func LoadInputs(c InputConfig) Inputs {
	var in Inputs
	var errs []error

	in.Tables, errs = LoadTables(c.Path(c.Tables))
	in.Errors = append(in.Errors, errs...)

	in.Pairs, errs = LoadSourcePairs(c.Path(c.Sources))
	in.Errors = append(in.Errors, errs...)

	var ignore []string
	ignore, errs = LoadIgnoreList(c.Path(c.Ignore))
	in.Errors = append(in.Errors, errs...)
	in.Ignore = core.NewIgnoreSet(ignore...)

	return in
}

// LoadTables reads "schema,table" lines.
func LoadTables(path string) ([]core.Table, []error) {
	var tables []core.Table
	errs := readRecords(path, 2, func(f []string) {
		tables = append(tables, core.Table{Schema: f[0], Name: f[1]})
	})
	return tables, errs
}

// LoadSourcePairs reads "name1,server1,database1,name2,server2,database2" lines.
func LoadSourcePairs(path string) ([]core.SourcePair, []error) {
	var pairs []core.SourcePair
	errs := readRecords(path, 6, func(f []string) {
		pairs = append(pairs, core.SourcePair{
			A: core.DataSource{Label: f[0], Server: f[1], Database: f[2]},
			B: core.DataSource{Label: f[3], Server: f[4], Database: f[5]},
		})
	})
	return pairs, errs
}

// LoadIgnoreList reads one column name per line. A missing ignore file is
// not an error.
func LoadIgnoreList(path string) ([]string, []error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var names []string
	errs := readRecords(path, 1, func(f []string) {
		names = append(names, f[0])
	})
	return names, errs
}

// readRecords calls fn for every well-formed line of path.
func readRecords(path string, fields int, fn func([]string)) []error {
	file, err := os.Open(path)
	if err != nil {
		return []error{&ConfigurationError{File: path, Reason: fmt.Sprintf("cannot open: %v", err)}}
	}
	defer file.Close()

	var errs []error
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isComment(line) {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != fields {
			errs = append(errs, &ConfigurationError{
				File: path, Line: lineNo, Text: line,
				Reason: fmt.Sprintf("expected %d fields, got %d", fields, len(parts)),
			})
			continue
		}
		empty := false
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			empty = empty || parts[i] == ""
		}
		if empty {
			errs = append(errs, &ConfigurationError{File: path, Line: lineNo, Text: line, Reason: "empty field"})
			continue
		}
		fn(parts)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, &ConfigurationError{File: path, Line: lineNo, Reason: fmt.Sprintf("read failed: %v", err)})
	}
	return errs
}

func isComment(line string) bool {
	for _, p := range commentPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
