package slots

import (
	"regexp"
	"strings"
)

// ReplyKind classifies an operator reply to a pending prompt.
type ReplyKind int

const (
	ReplyValue ReplyKind = iota
	ReplyAffirm
	ReplyNegate
	ReplyCancel
)

// Reply is a parsed operator reply.
type Reply struct {
	Kind ReplyKind
	// Remainder is the text after an affirmation, or the whole reply for values.
	Remainder string
}

var (
	affirmPattern = regexp.MustCompile(`(?i)^(?:yes|yep|yeah|y|sure|ok|okay|confirm|confirmed|go\s+ahead|do\s+it|send\s+it|please\s+do|absolutely)\b[\s,.!:;\-]*(.*)$`)
	// A bare "no" only negates on its own or before punctuation, so a message
	// such as "no worries, see you at 2" stays a value.
	negatePattern = regexp.MustCompile(`(?i)^(?:(?:no|nope|nah)(?:[\s.!]*$|\s*[,;:]|\s+(?:thanks|thank\s+you|not\s+now|don'?t|do\s+not)\b)|(?:don'?t|do\s+not)\b)`)
	cancelPattern = regexp.MustCompile(`(?i)^(?:cancel|stop|never\s*mind|abort|forget\s+it)\b[\s.!]*(?:it|that|this)?[\s.!]*$`)
	leadInPattern = regexp.MustCompile(`(?i)^(?:saying|say|tell\s+them|tell\s+her|tell\s+him)\b[\s,:]*`)
	fillerPattern = regexp.MustCompile(`(?i)^(?:please|thanks|thank\s+you|go\s+ahead|do\s+it|send\s+it|sure|ok|okay)?[\s.!]*$`)
)

// ParseReply classifies text. When confirming is false only cancel words
// are special; everything else is a value.
func ParseReply(text string, confirming bool) Reply {
	trimmed := strings.TrimSpace(text)

	if cancelPattern.MatchString(trimmed) {
		return Reply{Kind: ReplyCancel}
	}
	if !confirming {
		return Reply{Kind: ReplyValue, Remainder: trimmed}
	}

	if m := affirmPattern.FindStringSubmatch(trimmed); m != nil {
		return Reply{Kind: ReplyAffirm, Remainder: affirmationRemainder(m[1])}
	}
	if negatePattern.MatchString(trimmed) {
		return Reply{Kind: ReplyNegate}
	}
	return Reply{Kind: ReplyValue, Remainder: trimmed}
}

func affirmationRemainder(s string) string {
	s = strings.TrimSpace(s)
	if fillerPattern.MatchString(s) {
		return ""
	}
	s = leadInPattern.ReplaceAllString(s, "")
	return strings.Trim(strings.TrimSpace(s), `"`)
}
