// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package typesdb loads data-set definitions from the type-database text
// format: one line per type, "<type_name> <source>:<type>:<min>:<max> ...",
// fields separated by whitespace, each field's four colon-separated
// subfields giving the data source's name, storage class, and optional
// min/max ("U" meaning unknown). Lines starting with "#", and blank lines,
// are skipped. Grounded line-for-line on
// original_source/src/daemon/types_list.c's parse_line/parse_ds; the core
// itself never reads a types file, this package is the external
// collaborator that does and then calls core.RegisterDataSet for each
// result.
package typesdb

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/siphond/siphond/pkg/model"
)

// Load parses a single types-database file into its data sets.
func Load(path string) ([]model.DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("typesdb: open %s: %w", path, err)
	}
	defer f.Close()

	var sets []model.DataSet
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 4096), 4096)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ds, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("typesdb: %s:%d: %w", path, lineNo, err)
		}
		sets = append(sets, ds)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("typesdb: read %s: %w", path, err)
	}
	return sets, nil
}

// LoadAll parses every file in paths, in order, and concatenates the
// resulting data sets. A later file's definition of the same type name
// is not merged here — that happens when the caller feeds every returned
// DataSet through core.RegisterDataSet, which already implements the
// reference implementation's merge_dataset replace-on-divergence rule.
func LoadAll(paths []string) ([]model.DataSet, error) {
	var all []model.DataSet
	for _, p := range paths {
		sets, err := Load(p)
		if err != nil {
			return nil, err
		}
		all = append(all, sets...)
	}
	return all, nil
}

func parseLine(line string) (model.DataSet, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return model.DataSet{}, fmt.Errorf("expected at least 2 fields, got %d", len(fields))
	}

	typeName := fields[0]
	sources := make([]model.DataSource, 0, len(fields)-1)
	for _, f := range fields[1:] {
		f = strings.TrimSuffix(f, ",")
		src, err := parseDataSource(f)
		if err != nil {
			return model.DataSet{}, fmt.Errorf("data set %q: %w", typeName, err)
		}
		sources = append(sources, src)
	}

	return model.DataSet{TypeName: typeName, Sources: sources}, nil
}

func parseDataSource(field string) (model.DataSource, error) {
	parts := strings.Split(field, ":")
	if len(parts) != 4 {
		return model.DataSource{}, fmt.Errorf("data source %q: expected 4 colon-separated fields, got %d", field, len(parts))
	}

	typ, err := model.ParseValueType(parts[1])
	if err != nil {
		return model.DataSource{}, err
	}
	min, err := parseMinMax(parts[2])
	if err != nil {
		return model.DataSource{}, fmt.Errorf("data source %q: min: %w", field, err)
	}
	max, err := parseMinMax(parts[3])
	if err != nil {
		return model.DataSource{}, fmt.Errorf("data source %q: max: %w", field, err)
	}

	return model.DataSource{Name: parts[0], Type: typ, Min: min, Max: max}, nil
}

func parseMinMax(s string) (float64, error) {
	if strings.EqualFold(s, "U") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
