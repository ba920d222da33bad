package service

import "strings"

// AbstainMessage is the fixed reply when the guides do not cover a question.
const AbstainMessage = "I could not find information about this in the GSPP user guides."

// IsAbstention reports whether an answer is empty or is the model declining
// with AbstainMessage.
func IsAbstention(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	return strings.EqualFold(strings.Trim(t, `"`), AbstainMessage)
}
