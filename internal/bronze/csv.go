package bronze

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-medallion/internal/engine"
)

// Lineage columns appended to every bronze table.
const (
	ColumnSourceFile = "_source_file"
	ColumnIngestedAt = "_ingested_at"
)

// rawFile is a CSV file found under the raw directory.
type rawFile struct {
	path string
	// rel is the path relative to the raw directory, with forward slashes.
	rel   string
	table string
}

// parsedFile is the content of a rawFile. columns is nil for an empty file.
type parsedFile struct {
	rawFile
	columns []string
	rows    [][]string
}

// TableName returns the bronze table of a CSV file.
func TableName(path string) string {
	base := filepath.Base(path)

	return engine.Identifier(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Columns turns a CSV header into column names: identifiers, unique, in order.
func Columns(header []string) []string {
	res := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, label := range header {
		name := engine.Identifier(label)
		candidate := name
		for n := 2; used[candidate]; n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		used[candidate] = true
		res[i] = candidate
	}

	return res
}

// discover lists the CSV files under dir in lexical order.
func discover(dir string) ([]rawFile, error) {
	var files []rawFile
	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rawFile{
			path:  path,
			rel:   filepath.ToSlash(rel),
			table: TableName(path),
		})

		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "unable to walk %s", dir)
	}
	if len(files) == 0 {
		return nil, errors.Wrap(ErrNoInputFiles, dir)
	}

	return files, nil
}

// parse reads file and appends the lineage values to every row.
func parse(file rawFile, ingestedAt string) (parsedFile, error) {
	res := parsedFile{rawFile: file}

	f, err := os.Open(file.path)
	if err != nil {
		return res, errors.Wrapf(err, "unable to open %s", file.path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, errors.Wrapf(err, "unable to read header of %s", file.path)
	}
	res.columns = append(Columns(header), ColumnSourceFile, ColumnIngestedAt)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, errors.Wrapf(err, "unable to read %s", file.path)
		}
		res.rows = append(res.rows, append(record, file.rel, ingestedAt))
	}

	return res, nil
}
