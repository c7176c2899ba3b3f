package constants

// ScanPhase is the canonical phase label stored on audit records.
type ScanPhase string

// Stable values (store these exact strings in DB).
const (
	PhaseQuestions ScanPhase = "questions" // transcription + disambiguation
	PhaseFilter    ScanPhase = "filter"    // extraction over prior transcription
	PhaseLegacy    ScanPhase = "legacy"    // transcription + extraction in one call
)

// ParsePhase maps the request discriminator onto a phase. An empty value selects the legacy path.
func ParsePhase(s string) (ScanPhase, bool) {
	switch ScanPhase(s) {
	case "":
		return PhaseLegacy, true
	case PhaseQuestions, PhaseFilter:
		return ScanPhase(s), true
	}
	return "", false
}

// ConsumesQuota reports whether a phase runs the transcription stage and is therefore metered.
func (p ScanPhase) ConsumesQuota() bool {
	return p == PhaseQuestions || p == PhaseLegacy
}
