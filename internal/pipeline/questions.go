package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/llm"
)

// clarifyID is the question id for the n-th (0-based) uncertain cell.
func clarifyID(n int) string {
	return constants.DataClarifyPrefix + strconv.Itoa(n+1)
}

// clarifyIndex returns the 0-based uncertain cell index a question id refers to.
func clarifyIndex(id string, cells int) (int, bool) {
	if !constants.IsDataClarify(id) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, constants.DataClarifyPrefix))
	if err != nil || n < 1 || n > cells {
		return 0, false
	}
	return n - 1, true
}

// clarifyQuestion builds the confirmation question for one uncertain cell.
func clarifyQuestion(n int, cell entity.UncertainCell) entity.SmartQuestion {
	where := cell.Location
	if where == "" {
		where = "one cell"
	}
	q := entity.SmartQuestion{
		ID:       clarifyID(n),
		Required: true,
	}
	if cell.AlternativeValue == "" || strings.EqualFold(cell.AlternativeValue, cell.ReadValue) {
		q.Type = constants.QuestionText
		q.Question = fmt.Sprintf("We read %q at %s. What does it actually say?", cell.ReadValue, where)
		return q
	}
	q.Type = constants.QuestionSingleSelect
	q.Question = fmt.Sprintf("Which value is correct at %s?", where)
	q.Options = []entity.QuestionOption{
		{Label: cell.ReadValue, Value: cell.ReadValue, Description: "as transcribed"},
		{Label: cell.AlternativeValue, Value: cell.AlternativeValue, Description: "alternative reading"},
	}
	if cell.Reason != "" {
		q.Question += " (" + cell.Reason + ")"
	}
	return q
}

// reconcileQuestions makes sure every uncertain cell has exactly one confirmation question
// offering both readings. Model questions for out-of-range cells are dropped.
func reconcileQuestions(model []entity.SmartQuestion, cells []entity.UncertainCell) []entity.SmartQuestion {
	out := make([]entity.SmartQuestion, 0, len(model)+len(cells))
	seen := make(map[int]bool, len(cells))
	for _, q := range model {
		if !constants.IsDataClarify(q.ID) {
			out = append(out, q)
			continue
		}
		idx, ok := clarifyIndex(q.ID, len(cells))
		if !ok || seen[idx] {
			continue
		}
		seen[idx] = true
		det := clarifyQuestion(idx, cells[idx])
		if q.Question != "" {
			det.Question = q.Question
		}
		out = append(out, det)
	}
	for i, cell := range cells {
		if !seen[i] {
			out = append(out, clarifyQuestion(i, cell))
		}
	}
	return out
}

// personQuestion offers one option per candidate name, or nil when there is nothing to choose.
func personQuestion(names []string) *entity.SmartQuestion {
	if len(names) < 2 {
		return nil
	}
	q := &entity.SmartQuestion{
		ID:       constants.QuestionPersonSelect,
		Type:     constants.QuestionSingleSelect,
		Question: "Whose shifts should be imported?",
		Required: true,
	}
	for _, n := range names {
		q.Options = append(q.Options, entity.QuestionOption{Label: n, Value: n})
	}
	return q
}

// fallbackQuestions is used when the analysis response cannot be read.
func fallbackQuestions(c *entity.ExtractedContent) []entity.SmartQuestion {
	var out []entity.SmartQuestion
	if q := personQuestion(c.UniqueNames()); q != nil {
		out = append(out, *q)
	}
	return reconcileQuestions(out, c.UncertainCells)
}

// splitAnswers separates uncertain-cell confirmations from other clarifications.
func splitAnswers(answers []entity.QuestionAnswer, c *entity.ExtractedContent) ([]llm.Confirmation, []string, string) {
	var (
		confirmations  []llm.Confirmation
		clarifications []string
		person         string
	)
	for _, a := range answers {
		value := strings.TrimSpace(a.Value)
		if value == "" {
			continue
		}
		if idx, ok := clarifyIndex(a.QuestionID, len(c.UncertainCells)); ok {
			cell := c.UncertainCells[idx]
			confirmations = append(confirmations, llm.Confirmation{Location: cell.Location, Original: cell.ReadValue, Value: value})
			continue
		}
		switch a.QuestionID {
		case constants.QuestionPersonSelect:
			person = value
			clarifications = append(clarifications, "Extract only the shifts of: "+value)
		case constants.QuestionDateFormat:
			clarifications = append(clarifications, "Dates are written as: "+value)
		case constants.QuestionTimeFormat:
			clarifications = append(clarifications, "Times are written as: "+value)
		default:
			clarifications = append(clarifications, a.QuestionID+": "+value)
		}
	}
	return confirmations, clarifications, person
}

var (
	rowRe    = regexp.MustCompile(`(?i)\brow\s*(\d+)`)
	columnRe = regexp.MustCompile(`(?i)\bcol(?:umn)?\s*[:#]?\s*("?)([^,;"]+)("?)`)
)

// applyConfirmations returns a copy of c with confirmed values written into the grid cells their
// location names and into the raw text. Answered cells leave the uncertain list. Raw text is only
// rewritten for pinned cells, or when there is no grid to pin against.
func applyConfirmations(c *entity.ExtractedContent, confs []llm.Confirmation) *entity.ExtractedContent {
	if len(confs) == 0 {
		return c
	}
	out := *c
	out.Rows = make([][]string, len(c.Rows))
	for i, r := range c.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	answered := make(map[string]struct{}, len(confs))
	for _, cf := range confs {
		if loc := strings.ToLower(strings.TrimSpace(cf.Location)); loc != "" {
			answered[loc] = struct{}{}
		}

		pinned := false
		if row, col, ok := locateCell(cf.Location, out.Headers, len(out.Rows)); ok && col < len(out.Rows[row]) &&
			strings.EqualFold(strings.TrimSpace(out.Rows[row][col]), cf.Original) {
			out.Rows[row][col] = cf.Value
			pinned = true
		}
		if pinned || len(out.Rows) == 0 {
			out.RawText = replaceWord(out.RawText, cf.Original, cf.Value)
		}
	}

	out.UncertainCells = make([]entity.UncertainCell, 0, len(c.UncertainCells))
	for _, u := range c.UncertainCells {
		if _, ok := answered[strings.ToLower(strings.TrimSpace(u.Location))]; !ok {
			out.UncertainCells = append(out.UncertainCells, u)
		}
	}
	return &out
}

// replaceWord replaces case-insensitive occurrences of old in text that are not part of a longer
// word or number.
func replaceWord(text, old, repl string) string {
	old = strings.TrimSpace(old)
	if text == "" || old == "" || strings.EqualFold(old, repl) {
		return text
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(old))
	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringIndex(text, -1) {
		if !wordEdge(text, m[0], true) || !wordEdge(text, m[1], false) {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// wordEdge reports whether position i in s is a word boundary on the given side of a match.
func wordEdge(s string, i int, before bool) bool {
	var r rune
	if before {
		if i == 0 {
			return true
		}
		r, _ = utf8.DecodeLastRuneInString(s[:i])
	} else {
		if i >= len(s) {
			return true
		}
		r, _ = utf8.DecodeRuneInString(s[i:])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func locateCell(location string, headers []string, rows int) (int, int, bool) {
	rm := rowRe.FindStringSubmatch(location)
	cm := columnRe.FindStringSubmatch(location)
	if rm == nil || cm == nil {
		return 0, 0, false
	}
	row, err := strconv.Atoi(rm[1])
	if err != nil || row < 1 || row > rows {
		return 0, 0, false
	}
	colRef := strings.TrimSpace(cm[2])
	if n, err := strconv.Atoi(colRef); err == nil {
		if n < 1 {
			return 0, 0, false
		}
		return row - 1, n - 1, true
	}
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), colRef) {
			return row - 1, i, true
		}
	}
	return 0, 0, false
}

// confirmLabels replaces shift labels that still carry a transcribed value the caller corrected.
func confirmLabels(shifts []entity.AIExtractedShift, confs []llm.Confirmation) {
	for _, cf := range confs {
		if cf.Original == "" || strings.EqualFold(cf.Original, cf.Value) {
			continue
		}
		for i := range shifts {
			if strings.EqualFold(strings.TrimSpace(shifts[i].JobName), cf.Original) {
				shifts[i].JobName = cf.Value
			}
			if strings.EqualFold(strings.TrimSpace(shifts[i].Location), cf.Original) {
				shifts[i].Location = cf.Value
			}
		}
	}
}
