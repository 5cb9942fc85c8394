package template

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Render substitutes every {{name}} placeholder in text with variables[name].
// Unmatched placeholders are left verbatim so a missing or misspelled
// variable never erases content or aborts a batch. Pure; safe for concurrent
// use.
func Render(text string, variables map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := variables[name]; ok {
			return value
		}
		return match
	})
}

// MergeVariables builds the substitution set for one recipient. Keys in
// overrides (recipient identity and schedule context fields) always win over
// schedule-authored variables of the same name.
func MergeVariables(scheduleVars, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(scheduleVars)+len(overrides))
	for k, v := range scheduleVars {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
