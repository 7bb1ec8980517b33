// Package plan applies minimal domain checks to a recovered plan candidate.
// It is an extension point: stricter schema enforcement (week numbering,
// session counts, deload cadence) belongs here once plans are parsed rather
// than patched as text.
package plan

import "strings"

// ErrInvalidPlan is the terminal payload returned for candidates that carry
// no recoverable plan. It is data, not an error: unusable generative output
// is an expected condition for callers.
const ErrInvalidPlan = `{"error":"invalid plan"}`

// restHint is spliced into plans that never mention a rest-day key, flagging
// that a rest-day suggestion should be inserted downstream.
const restHint = `,"adjustments":["insert_rest_day_suggestion"]}`

// CheckAndFix validates a candidate plan and returns either the (possibly
// amended) plan text or the terminal ErrInvalidPlan payload.
func CheckAndFix(candidate string) string {
	if candidate == "" || candidate == "{}" {
		return ErrInvalidPlan
	}
	return ensureRestHint(candidate)
}

// ensureRestHint appends an adjustments field before the final closing brace
// when the plan mentions no rest-day key. Plans that do not end with '}' are
// returned untouched; splicing into them would corrupt the text.
func ensureRestHint(candidate string) string {
	if strings.Contains(candidate, `"rest`) {
		return candidate
	}
	if !strings.HasSuffix(candidate, "}") {
		return candidate
	}
	return candidate[:len(candidate)-1] + restHint
}
