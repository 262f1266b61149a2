package intent

import "strings"

// requiredEntities lists mandatory entity keys per kind, in solicitation order.
var requiredEntities = map[Kind][]string{
	SendMessage:        {"recipient", "subject"},
	SendTextMessage:    {"phone", "message"},
	ScheduleSocialPost: {"content"},
	CreateContact:      {"name"},
	PlaceCall:          {"phone"},
	CreateTask:         {"title"},
	SearchContacts:     {"query"},
	FetchAnalytics:     nil,
	TriggerAutomation:  {"workflow"},
	CreateOpportunity:  {"name"},
	BookAppointment:    {"contact", "datetime"},
	GenerateContent:    {"topic"},
	SwitchAgent:        {"role"},
}

// aliases are alternative keys that satisfy a required key.
var aliases = map[Kind]map[string][]string{
	SendTextMessage: {"phone": {"recipient", "contact"}},
	PlaceCall:       {"phone": {"contact", "recipient"}},
}

// RequiredEntities returns the ordered required keys for kind.
func RequiredEntities(kind Kind) []string {
	keys := requiredEntities[kind]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// MissingEntities returns required keys absent from entities, in order.
func MissingEntities(kind Kind, entities map[string]string) []string {
	var missing []string
	for _, key := range requiredEntities[kind] {
		if !present(kind, key, entities) {
			missing = append(missing, key)
		}
	}
	return missing
}

// NextMissing returns the first missing key or "".
func NextMissing(kind Kind, entities map[string]string) string {
	missing := MissingEntities(kind, entities)
	if len(missing) == 0 {
		return ""
	}
	return missing[0]
}

// Complete reports whether all required keys are present.
func Complete(kind Kind, entities map[string]string) bool {
	return NextMissing(kind, entities) == ""
}

func present(kind Kind, key string, entities map[string]string) bool {
	if strings.TrimSpace(entities[key]) != "" {
		return true
	}
	for _, alt := range aliases[kind][key] {
		if strings.TrimSpace(entities[alt]) != "" {
			return true
		}
	}
	return false
}

// EntityLabel is the human wording used when soliciting key.
func EntityLabel(key string) string {
	switch key {
	case "phone":
		return "phone number"
	case "datetime":
		return "date and time"
	case "workflow":
		return "automation workflow"
	case "query":
		return "search term"
	case "role":
		return "agent role"
	default:
		return key
	}
}
