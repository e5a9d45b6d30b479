package parquet

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

// FileInfo describes one Parquet file of a table.
type FileInfo struct {
	Path    string
	Rows    int64
	Columns []string
}

// ReadFileInfo reads the row count and column names from the footer of the
// local Parquet file at path.
func ReadFileInfo(path string) (FileInfo, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return FileInfo{}, errors.Wrapf(err, "opening %s", path)
	}
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, nil, 1)
	if err != nil {
		return FileInfo{}, errors.Wrapf(err, "reading footer of %s", path)
	}
	defer pr.ReadStop()
	info := FileInfo{Path: path, Rows: pr.GetNumRows()}
	// the first schema element is the root
	for _, tag := range pr.SchemaHandler.Infos[1:] {
		info.Columns = append(info.Columns, tag.ExName)
	}
	return info, nil
}

// ReadRowCount returns the number of rows in the local Parquet file at path.
func ReadRowCount(path string) (int64, error) {
	info, err := ReadFileInfo(path)
	return info.Rows, err
}

// ReadTable describes every Parquet file of the local table directory dir,
// in path order. Hidden files such as _SUCCESS are skipped.
func ReadTable(dir string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || !strings.HasSuffix(p, ".parquet") || strings.HasPrefix(fi.Name(), "_") || strings.HasPrefix(fi.Name(), ".") {
			return nil
		}
		info, err := ReadFileInfo(p)
		if err != nil {
			return err
		}
		files = append(files, info)
		return nil
	})
	return files, errors.Wrapf(err, "reading table %s", dir)
}

// CountTableRows sums the rows of every Parquet file of the local table
// directory dir.
func CountTableRows(dir string) (int64, error) {
	files, err := ReadTable(dir)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, f := range files {
		n += f.Rows
	}
	return n, nil
}
