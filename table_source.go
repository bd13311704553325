package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// ErrUnsupportedFormat is returned for table files with an unknown extension
var ErrUnsupportedFormat = errors.New("unsupported table format")

const secondsPerDay = 24 * 60 * 60

// pandas writes its index into parquet files under this column prefix
const pandasIndexPrefix = "__index_level_"

// TableSource reads a logical table from storage
type TableSource interface {
	ReadTable(ctx context.Context, name string, tc TableConfig) (*Table, error)
}

// FileSource reads tables from files under a data directory.
// The decoder is chosen by file extension.
type FileSource struct {
	config *Config
}

// NewFileSource creates a file-backed table source
func NewFileSource(config *Config) *FileSource {
	return &FileSource{config: config}
}

// ReadTable reads the file configured for a table
func (s *FileSource) ReadTable(ctx context.Context, name string, tc TableConfig) (*Table, error) {
	path := s.config.TablePath(tc)

	var (
		table *Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		table, err = readParquetTable(path)
	case ".csv":
		table, err = readCSVTable(path)
	case ".xlsx":
		table, err = readXLSXTable(path, tc.Sheet)
	case ".db", ".sqlite", ".sqlite3":
		sqlTable := tc.Table
		if sqlTable == "" {
			sqlTable = name
		}
		table, err = readSQLiteTable(ctx, path, sqlTable)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("load table %s from %s: %w", name, path, err)
	}

	table.Name = name
	return table, nil
}

// readParquetTable reads every row group of a flat parquet file
func readParquetTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, err
	}

	// Leaf column index -> output column index (-1 = dropped)
	schema := pf.Schema()
	leaves := schema.Columns()
	outIndex := make([]int, len(leaves))
	timeKinds := make([]parquetTimeKind, len(leaves))
	var columns []string
	for i, leaf := range leaves {
		name := strings.Join(leaf, ".")
		if strings.HasPrefix(name, pandasIndexPrefix) {
			outIndex[i] = -1
			continue
		}
		if lc, ok := schema.Lookup(leaf...); ok {
			timeKinds[i] = timeKindOf(lc.Node.Type())
		}
		outIndex[i] = len(columns)
		columns = append(columns, name)
	}

	table := &Table{Columns: columns, Rows: make([][]any, 0, pf.NumRows())}
	buf := make([]parquet.Row, 128)

	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				cells := make([]any, len(columns))
				for _, v := range row {
					col := v.Column()
					if col < 0 || col >= len(outIndex) || outIndex[col] < 0 {
						continue
					}
					cells[outIndex[col]] = parquetValue(v, timeKinds[col])
				}
				table.Rows = append(table.Rows, cells)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, err
			}
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// parquetTimeKind is the date or timestamp annotation of a parquet column
type parquetTimeKind int

const (
	parquetNoTime parquetTimeKind = iota
	parquetDate
	parquetTimestampMillis
	parquetTimestampMicros
	parquetTimestampNanos
)

// timeKindOf reads the DATE and TIMESTAMP logical types of a column
func timeKindOf(t parquet.Type) parquetTimeKind {
	lt := t.LogicalType()
	switch {
	case lt == nil:
		return parquetNoTime
	case lt.Date != nil:
		return parquetDate
	case lt.Timestamp != nil:
		switch unit := lt.Timestamp.Unit; {
		case unit.Nanos != nil:
			return parquetTimestampNanos
		case unit.Micros != nil:
			return parquetTimestampMicros
		default:
			return parquetTimestampMillis
		}
	}
	return parquetNoTime
}

// parquetValue converts a parquet value into a table cell.
// DATE and TIMESTAMP columns become UTC time.Time cells.
func parquetValue(v parquet.Value, kind parquetTimeKind) any {
	if v.IsNull() {
		return nil
	}
	switch kind {
	case parquetDate:
		return time.Unix(int64(v.Int32())*secondsPerDay, 0).UTC()
	case parquetTimestampMillis:
		return time.UnixMilli(v.Int64()).UTC()
	case parquetTimestampMicros:
		return time.UnixMicro(v.Int64()).UTC()
	case parquetTimestampNanos:
		return time.Unix(0, v.Int64()).UTC()
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

// readCSVTable reads a CSV file with a header row
func readCSVTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	return tableFromRecords(records), nil
}

// readXLSXTable reads a worksheet whose first row is the header
func readXLSXTable(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}

	return tableFromRecords(records), nil
}

// tableFromRecords builds a table from a header row plus text records
func tableFromRecords(records [][]string) *Table {
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := &Table{Columns: header, Rows: make([][]any, 0, len(records)-1)}
	for _, rec := range records[1:] {
		cells := make([]any, len(header))
		for i := range header {
			if i < len(rec) {
				cells[i] = parseCell(rec[i])
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}

// readSQLiteTable reads all rows of one table from a SQLite database
func readSQLiteTable(ctx context.Context, path, name string) (*Table, error) {
	// sql.Open does not touch the file; a missing database would be created empty
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	table := &Table{Columns: columns}
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				cells[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
