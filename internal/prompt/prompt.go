// Package prompt renders a user profile into the instruction prompt sent to
// the text-generation backend.
package prompt

import "strings"

// systemSection enumerates the coaching constraints and the exact output
// schema the model must follow. Kept as one block so the preamble stays
// byte-for-byte stable across requests.
const systemSection = `<|system|>
You are a certified strength & conditioning coach.
Follow these constraints:
- progressive overload <= 10% per week
- 1-2 rest days per week
- deload every 4th week
- respect injuries (swap with low-impact work)

Your output MUST be a valid JSON object.
Do not write any explanations, markdown, or text outside JSON.
JSON schema:
{
  "goal": string,
  "weeks": [
    {"week": number, "sessions": [string, ...]}
  ],
  "rest_days": [string, ...]
}
`

// Build composes the full prompt: system constraints, the caller's profile
// framed verbatim, and a completion cue so the backend continues as if
// authoring the answer. Deterministic; the profile is treated as opaque text
// and never validated here.
func Build(profile string) string {
	var sb strings.Builder
	sb.Grow(len(systemSection) + len(profile) + 96)

	sb.WriteString(systemSection)
	sb.WriteString("\n<|user|>\n")
	sb.WriteString("User profile JSON:\n")
	sb.WriteString(profile)
	sb.WriteString("\n\nReturn ONLY the training plan as JSON.")
	sb.WriteString("\n<|assistant|>\n")

	return sb.String()
}
