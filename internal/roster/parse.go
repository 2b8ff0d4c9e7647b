package roster

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"attendtrack/internal/attendance"
)

// Column names in a roster header.
const (
	ColStudentID    = "studentId"
	ColFirstName    = "firstName"
	ColLastName     = "lastName"
	ColClass        = "class"
	ColGradeLevel   = "gradeLevel"
	ColEmail        = "email"
	ColContactPhone = "contactPhone"
)

var requiredColumns = []string{ColStudentID, ColFirstName, ColLastName, ColClass, ColGradeLevel}

var (
	ErrNoValidRows       = errors.New("roster contains no valid rows")
	ErrUnsupportedFormat = errors.New("unsupported roster format, expected .csv or .xlsx")
)

// MissingHeadersError fails a whole roster.
type MissingHeadersError struct {
	Missing []string
}

func (e MissingHeadersError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// RowError describes one rejected line. Line is 1-based and counts the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result holds the accepted students and the per-line rejections.
type Result struct {
	Students []attendance.Student
	Errors   []RowError
}

// ParseCSV reads a comma separated roster. Fields are split on every comma;
// quoting is not supported.
func ParseCSV(r io.Reader) (Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		cols   map[string]int
		res    Result
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if cols == nil {
			var err error
			if cols, err = headerIndex(fields); err != nil {
				return Result{}, err
			}
			continue
		}
		res.add(lineNo, fields, cols)
	}
	if err := sc.Err(); err != nil {
		return Result{}, fmt.Errorf("read roster: %w", err)
	}
	if cols == nil {
		return Result{}, MissingHeadersError{Missing: append([]string(nil), requiredColumns...)}
	}
	return res, nil
}

// ParseXLSX reads the first sheet of a workbook with the same rules as ParseCSV.
func ParseXLSX(r io.Reader) (Result, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, MissingHeadersError{Missing: append([]string(nil), requiredColumns...)}
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	var (
		cols map[string]int
		res  Result
	)
	for i, row := range rows {
		if blank(row) {
			continue
		}
		if cols == nil {
			if cols, err = headerIndex(row); err != nil {
				return Result{}, err
			}
			continue
		}
		res.add(i+1, row, cols)
	}
	if cols == nil {
		return Result{}, MissingHeadersError{Missing: append([]string(nil), requiredColumns...)}
	}
	return res, nil
}

// Parse picks a parser from the file extension.
func Parse(filename string, body []byte) (Result, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return ParseCSV(bytes.NewReader(body))
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		return ParseXLSX(bytes.NewReader(body))
	default:
		return Result{}, ErrUnsupportedFormat
	}
}

func headerIndex(header []string) (map[string]int, error) {
	known := append(append([]string(nil), requiredColumns...), ColEmail, ColContactPhone)
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, k := range known {
			if strings.EqualFold(h, k) {
				if _, dup := cols[k]; !dup {
					cols[k] = i
				}
			}
		}
	}
	var missing []string
	for _, k := range requiredColumns {
		if _, ok := cols[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, MissingHeadersError{Missing: missing}
	}
	return cols, nil
}

func (res *Result) add(line int, fields []string, cols map[string]int) {
	value := func(col string) string {
		idx, ok := cols[col]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	var missing []string
	for _, col := range requiredColumns {
		if value(col) == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		res.Errors = append(res.Errors, RowError{Line: line, Reason: "missing " + strings.Join(missing, ", ")})
		return
	}
	grade, err := strconv.Atoi(value(ColGradeLevel))
	if err != nil {
		res.Errors = append(res.Errors, RowError{Line: line, Reason: fmt.Sprintf("invalid gradeLevel %q", value(ColGradeLevel))})
		return
	}
	res.Students = append(res.Students, attendance.Student{
		StudentID:    value(ColStudentID),
		FirstName:    value(ColFirstName),
		LastName:     value(ColLastName),
		Class:        value(ColClass),
		GradeLevel:   grade,
		Email:        attendance.StringPtr(value(ColEmail)),
		ContactPhone: attendance.StringPtr(value(ColContactPhone)),
	})
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
