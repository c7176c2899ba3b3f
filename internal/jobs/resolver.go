// Package jobs maps free-text roster labels onto configured job ids.
package jobs

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/normalize"
)

// minPartialLen keeps short codes like "RL" from matching longer names such as "Grill".
const minPartialLen = 3

// Resolve returns the job id for label. Precedence: exact alias, exact job name, then
// substring match in either direction when both strings have at least minPartialLen runes.
func Resolve(label string, aliases []entity.JobAlias, configs []entity.JobConfig) (string, bool) {
	fold := cases.Fold()
	key := fold.String(normalize.NormalizeText(label))
	if key == "" {
		return "", false
	}

	for _, a := range aliases {
		if a.JobID != "" && fold.String(normalize.NormalizeText(a.Alias)) == key {
			return a.JobID, true
		}
	}

	names := make([]string, len(configs))
	for i, c := range configs {
		names[i] = fold.String(normalize.NormalizeText(c.Name))
		if names[i] == key {
			return c.ID, true
		}
	}

	if utf8.RuneCountInString(key) < minPartialLen {
		return "", false
	}
	for i, name := range names {
		if utf8.RuneCountInString(name) < minPartialLen {
			continue
		}
		if strings.Contains(name, key) || strings.Contains(key, name) {
			return configs[i].ID, true
		}
	}
	return "", false
}
