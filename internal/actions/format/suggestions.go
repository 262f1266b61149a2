package format

import "strings"

// Suggestion is a quick action offered in the dashboard.
type Suggestion struct {
	Label    string `json:"label"`
	Template string `json:"template"`
	Icon     string `json:"icon"`
}

var commonSuggestions = []Suggestion{
	{Label: "Find a contact", Template: "find contacts named ", Icon: "search"},
	{Label: "Create a task", Template: "create task ", Icon: "check-square"},
	{Label: "Book an appointment", Template: "book appointment with ", Icon: "calendar"},
	{Label: "Show analytics", Template: "show analytics", Icon: "bar-chart"},
}

var roleSuggestions = map[string][]Suggestion{
	"marketing": {
		{Label: "Schedule a social post", Template: "schedule a social post about ", Icon: "share"},
		{Label: "Generate content", Template: "write a blog post about ", Icon: "edit"},
		{Label: "Campaign analytics", Template: "show campaign analytics", Icon: "bar-chart"},
		{Label: "Start a nurture workflow", Template: "trigger automation ", Icon: "zap"},
	},
	"sales": {
		{Label: "Create an opportunity", Template: "create opportunity for ", Icon: "dollar-sign"},
		{Label: "Call a lead", Template: "call ", Icon: "phone"},
		{Label: "Send a follow-up text", Template: "text ", Icon: "message-square"},
		{Label: "Pipeline analytics", Template: "show sales analytics", Icon: "trending-up"},
	},
	"support": {
		{Label: "Find a customer", Template: "find contacts named ", Icon: "search"},
		{Label: "Reply by email", Template: "email ", Icon: "mail"},
		{Label: "Call back", Template: "call ", Icon: "phone"},
		{Label: "Create a follow-up task", Template: "create task follow up with ", Icon: "check-square"},
	},
	"operations": {
		{Label: "Trigger a workflow", Template: "trigger automation ", Icon: "zap"},
		{Label: "Create a task", Template: "create task ", Icon: "check-square"},
		{Label: "Book an appointment", Template: "book appointment with ", Icon: "calendar"},
		{Label: "Operations report", Template: "show operations report", Icon: "clipboard"},
	},
	"manager": {
		{Label: "Team analytics", Template: "show team analytics", Icon: "bar-chart"},
		{Label: "Talk to sales", Template: "connect to sales", Icon: "users"},
		{Label: "Talk to marketing", Template: "connect to marketing", Icon: "users"},
		{Label: "Create an opportunity", Template: "create opportunity for ", Icon: "dollar-sign"},
	},
}

// SuggestionsFor returns the quick actions for role, or the common set for
// an empty or unknown role.
func SuggestionsFor(role string) []Suggestion {
	set, ok := roleSuggestions[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		set = commonSuggestions
	}
	out := make([]Suggestion, len(set))
	copy(out, set)
	return out
}

// Roles lists the roles that have a dedicated suggestion set.
func Roles() []string {
	return []string{"marketing", "sales", "support", "operations", "manager"}
}
