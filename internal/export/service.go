// Package export renders parsed shifts as XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

const (
	shiftsSheet = "Shifts"
	errorsSheet = "Failures"
)

// Row is one shift with the image it came from.
type Row struct {
	Source string
	Shift  entity.ParsedShift
}

// Failure is an image that produced no shifts.
type Failure struct {
	Source    string
	ErrorType string
	Message   string
}

// Service produces XLSX bytes for shift exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{logger: common.LoggerOr(logger)}
}

// ShiftsXLSX renders a single scan's shifts.
func ShiftsXLSX(shifts []entity.ParsedShift) ([]byte, error) {
	rows := make([]Row, len(shifts))
	for i, s := range shifts {
		rows[i] = Row{Shift: s}
	}
	return NewService(nil).Workbook(rows, nil)
}

// Workbook writes the rows to a "Shifts" sheet and, when there are any, the failures to a
// "Failures" sheet. The Source column is only included when some row carries a source.
func (s *Service) Workbook(rows []Row, failures []Failure) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", shiftsSheet); err != nil {
		return nil, err
	}

	withSource := false
	for _, r := range rows {
		if r.Source != "" {
			withSource = true
			break
		}
	}

	headers := []string{"Date", "Start", "End", "Hours", "Roster Label", "Job ID", "Confidence", "Note", "Raw Date", "Raw Time"}
	if withSource {
		headers = append([]string{"Source"}, headers...)
	}
	if err := writeRow(f, shiftsSheet, 1, toAny(headers)); err != nil {
		return nil, err
	}

	for i, r := range rows {
		sh := r.Shift
		values := []any{
			sh.Date,
			deref(sh.StartTime),
			deref(sh.EndTime),
			sh.TotalHours,
			sh.RosterJobName,
			deref(sh.MappedJobID),
			sh.Confidence,
			truncate(sh.Note, 140),
			sh.RawDateText,
			sh.RawTimeText,
		}
		if withSource {
			values = append([]any{r.Source}, values...)
		}
		if err := writeRow(f, shiftsSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	// Widen a few columns
	first := 'A'
	if withSource {
		_ = f.SetColWidth(shiftsSheet, "A", "A", 32) // source
		first = 'B'
	}
	col := func(offset int) string { return string(rune(int(first) + offset)) }
	_ = f.SetColWidth(shiftsSheet, col(0), col(0), 12) // date
	_ = f.SetColWidth(shiftsSheet, col(4), col(4), 22) // label
	_ = f.SetColWidth(shiftsSheet, col(5), col(5), 38) // job id
	_ = f.SetColWidth(shiftsSheet, col(7), col(7), 40) // note

	if len(failures) > 0 {
		if _, err := f.NewSheet(errorsSheet); err != nil {
			return nil, err
		}
		if err := writeRow(f, errorsSheet, 1, []any{"Source", "Error Type", "Message"}); err != nil {
			return nil, err
		}
		for i, fl := range failures {
			if err := writeRow(f, errorsSheet, i+2, []any{fl.Source, fl.ErrorType, fl.Message}); err != nil {
				return nil, err
			}
		}
		_ = f.SetColWidth(errorsSheet, "A", "A", 32)
		_ = f.SetColWidth(errorsSheet, "C", "C", 60)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"failures", len(failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
