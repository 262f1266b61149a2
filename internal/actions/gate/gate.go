// Package gate decides which action kinds pause for explicit operator
// confirmation before dispatch.
package gate

import "action-engine/internal/actions/intent"

var sensitive = map[intent.Kind]bool{
	intent.SendMessage:       true,
	intent.SendTextMessage:   true,
	intent.PlaceCall:         true,
	intent.TriggerAutomation: true,
	intent.CreateOpportunity: true,
}

// RequiresConfirmation reports whether kind is sensitive.
func RequiresConfirmation(kind intent.Kind) bool {
	return sensitive[kind]
}

// SensitiveKinds returns the sensitive kinds in vocabulary order.
func SensitiveKinds() []intent.Kind {
	var out []intent.Kind
	for _, k := range intent.Kinds() {
		if sensitive[k] {
			out = append(out, k)
		}
	}
	return out
}
