package matcher

import (
	"regexp"
	"strings"

	"action-engine/internal/actions/intent"
)

// groups exposes the capture groups of one match, trimmed.
type groups []string

func (g groups) at(i int) string {
	if i >= len(g) {
		return ""
	}
	return strings.TrimSpace(g[i])
}

type rule struct {
	name    string
	pattern *regexp.Regexp
	kind    intent.Kind
	extract func(g groups) map[string]string
}

// Ordered; the first matching rule wins.
var rules = []rule{
	{
		name:    "switch-agent",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:connect|switch|talk|transfer|hand\s+off)(?:\s+me)?\s+(?:to|with)\s+(.+)$`),
		kind:    intent.SwitchAgent,
		extract: func(g groups) map[string]string {
			return map[string]string{"role": classifyRole(strings.ToLower(g.at(0)))}
		},
	},
	{
		name:    "text-message",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:send\s+(?:an?\s+)?)?(?:text|sms)(?:\s+message)?(?:\s+to)?(?:\s+(.+))?$`),
		kind:    intent.SendTextMessage,
		extract: func(g groups) map[string]string {
			head, message := splitMessage(g.at(1))
			target := cutAt(head, topicMarkers)
			out := entities("message", message)
			if phone := leadingPhone(target); phone != "" {
				out["phone"] = phone
			} else if target != "" {
				out["recipient"] = target
			}
			return out
		},
	},
	{
		name:    "place-call",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:call|phone|dial|ring)(?:\s+up)?(?:\s+(.+))?$`),
		kind:    intent.PlaceCall,
		extract: func(g groups) map[string]string {
			target := cutAt(g.at(1), topicMarkers)
			if phone := leadingPhone(target); phone != "" {
				return map[string]string{"phone": phone}
			}
			return entities("contact", target)
		},
	},
	{
		name:    "send-message",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:(?:send|write|compose|draft)\s+(?:an?\s+)?)?(?:email|e-mail|mail|message)(?:\s+to)?(?:\s+(.+))?$`),
		kind:    intent.SendMessage,
		extract: func(g groups) map[string]string {
			head, body := splitMessage(g.at(1))
			recipient, subject := splitSubject(head)
			return entities("recipient", recipient, "subject", subject, "body", body)
		},
	},
	{
		name:    "social-post-platform",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:schedule|create|publish|share|post|make)\s+(?:an?\s+)?(?:social(?:\s+media)?\s+)?(?:post\s+)?(.*?)\s*(?:to|on)\s+(facebook|instagram|linkedin|twitter|tiktok|social(?:\s+media)?)(?:\s+(?:at|on|for)\s+(.+))?$`),
		kind:    intent.ScheduleSocialPost,
		extract: func(g groups) map[string]string {
			platform := strings.ToLower(g.at(2))
			if strings.HasPrefix(platform, "social") {
				platform = ""
			}
			return entities("content", g.at(1), "platform", platform, "scheduledFor", g.at(3))
		},
	},
	{
		name:    "social-post",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:schedule|create|publish|make|write)\s+(?:an?\s+)?social(?:\s+media)?\s+post(?:\s+(?:about|saying|with)\s+(.+?))?(?:\s+(?:for|at|on)\s+(.+))?$`),
		kind:    intent.ScheduleSocialPost,
		extract: func(g groups) map[string]string {
			return entities("content", g.at(1), "scheduledFor", g.at(2))
		},
	},
	{
		name:    "create-contact",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:create|add|new)\s+(?:an?\s+)?(?:new\s+)?contact(?:\s+(?:named|called|for))?(?:\s+(.+?))?(?:\s+(?:with\s+)?(?:phone|number)\s+(\+?\d[\d\s\-().]{5,}\d))?(?:\s+(?:and\s+|with\s+)?email\s+(\S+@\S+))?$`),
		kind:    intent.CreateContact,
		extract: func(g groups) map[string]string {
			return entities("name", g.at(1), "phone", intent.NormalizePhone(g.at(2)), "email", g.at(3))
		},
	},
	{
		name:    "search-contacts",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:find|search(?:\s+for)?|look\s*up|show(?:\s+me)?|list)\s+(?:all\s+|my\s+|the\s+)?(?:contacts?|leads?|people)(?:\s+(?:named|called|for|matching|like|from|with))?(?:\s+(.+))?$`),
		kind:    intent.SearchContacts,
		extract: func(g groups) map[string]string {
			return entities("query", g.at(1))
		},
	},
	{
		name:    "create-task",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:create|add|new|make)\s+(?:an?\s+)?(?:new\s+)?(?:task|todo|to-do|reminder)(?:\s+(?:to|for|called|named))?:?(?:\s+(.+?))?(?:\s+(?:due|by)\s+(.+))?$`),
		kind:    intent.CreateTask,
		extract: func(g groups) map[string]string {
			return entities("title", g.at(1), "dueDate", g.at(2))
		},
	},
	{
		name:    "remind-me",
		pattern: regexp.MustCompile(`^(?:please\s+)?remind\s+me\s+(?:to\s+)?(.+?)(?:\s+(?:by|on|at)\s+(.+))?$`),
		kind:    intent.CreateTask,
		extract: func(g groups) map[string]string {
			return entities("title", g.at(1), "dueDate", g.at(2))
		},
	},
	{
		name:    "fetch-analytics",
		pattern: regexp.MustCompile(`^(?:(?:show|get|fetch|pull|view|open)\s+(?:me\s+)?)?(?:the\s+|my\s+|our\s+)?(?:(\w+)\s+)?(?:analytics|stats|statistics|metrics|report)(?:\s+(?:for|on)\s+(.+))?$`),
		kind:    intent.FetchAnalytics,
		extract: func(g groups) map[string]string {
			scope := g.at(2)
			if scope == "" {
				scope = g.at(1)
			}
			return entities("scope", scope)
		},
	},
	{
		name:    "trigger-automation",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:trigger|run|start|launch|fire|execute)\s+(?:the\s+)?(?:automation|workflow)(?:\s+(?:called|named))?(?:\s+(.+?))?(?:\s+(?:for|on)\s+(.+))?$`),
		kind:    intent.TriggerAutomation,
		extract: func(g groups) map[string]string {
			return entities("workflow", g.at(1), "contact", g.at(2))
		},
	},
	{
		name:    "trigger-named-automation",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:trigger|run|start|launch|fire|execute)\s+(?:the\s+)?(.+?)\s+(?:automation|workflow)(?:\s+(?:for|on)\s+(.+))?$`),
		kind:    intent.TriggerAutomation,
		extract: func(g groups) map[string]string {
			return entities("workflow", g.at(1), "contact", g.at(2))
		},
	},
	{
		name:    "create-opportunity",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:create|add|new|open|log)\s+(?:an?\s+)?(?:new\s+)?(?:opportunity|deal)(?:\s+(?:for|called|named|with))?(?:\s+(.+?))?(?:\s+(?:worth|valued\s+at|of)\s+\$?([\d,.]+k?))?$`),
		kind:    intent.CreateOpportunity,
		extract: func(g groups) map[string]string {
			return entities("name", g.at(1), "value", g.at(2))
		},
	},
	{
		name:    "book-appointment",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:book|schedule|set\s+up|arrange)\s+(?:an?\s+)?(?:appointment|meeting|call|demo|consultation)(?:\s+with\s+(.+?))?(?:\s+((?:on|at|for)\s+.+|(?:today|tonight|tomorrow|next|this|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b.*))?$`),
		kind:    intent.BookAppointment,
		extract: func(g groups) map[string]string {
			return entities("contact", g.at(1), "datetime", trimLeadingWord(g.at(2), "on", "at", "for"))
		},
	},
	{
		name:    "generate-content",
		pattern: regexp.MustCompile(`^(?:please\s+)?(?:generate|write|draft|create|compose)\s+(?:me\s+)?(?:an?\s+|some\s+)?(?:blog\s+post|post|content|copy|caption|article|newsletter|ad\s+copy|ad)(?:\s+(?:about|on|for)\s+(.+))?$`),
		kind:    intent.GenerateContent,
		extract: func(g groups) map[string]string {
			return entities("topic", g.at(1))
		},
	},
}

var (
	messageMarkers = []string{" saying ", " that says ", " with the message ", " with message ", " and say ", " and tell them ", ": "}
	topicMarkers   = []string{" about ", " regarding ", " re "}
	subjectMarkers = []string{" with subject ", " subject ", " about ", " regarding ", " re "}

	leadingPhonePattern = regexp.MustCompile(`^\+?\d[\d\s\-().]*\d`)
)

// roleKeywords are scanned in priority order.
var roleKeywords = []string{"marketing", "sales", "support", "operations", "manager"}

const defaultRole = "assistant"

func classifyRole(s string) string {
	for _, kw := range roleKeywords {
		if strings.Contains(s, kw) {
			return kw
		}
	}
	return defaultRole
}

// splitMessage separates "<head> saying <message>".
func splitMessage(s string) (head, message string) {
	padded := " " + s + " "
	idx, marker := firstMarker(padded, messageMarkers)
	if idx < 0 {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(padded[:idx]), strings.TrimSpace(padded[idx+len(marker):])
}

func splitSubject(s string) (recipient, subject string) {
	padded := " " + s + " "
	idx, marker := firstMarker(padded, subjectMarkers)
	if idx < 0 {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(padded[:idx]), strings.TrimSpace(padded[idx+len(marker):])
}

// cutAt returns s up to the first marker.
func cutAt(s string, markers []string) string {
	padded := " " + s + " "
	if idx, _ := firstMarker(padded, markers); idx >= 0 {
		return strings.TrimSpace(padded[:idx])
	}
	return strings.TrimSpace(s)
}

func firstMarker(s string, markers []string) (int, string) {
	lower := strings.ToLower(s)
	best, which := -1, ""
	for _, m := range markers {
		if i := strings.Index(lower, m); i >= 0 && (best < 0 || i < best) {
			best, which = i, m
		}
	}
	return best, which
}

func leadingPhone(s string) string {
	m := leadingPhonePattern.FindString(s)
	if m == "" || !intent.LooksLikePhone(m) {
		return ""
	}
	return intent.NormalizePhone(m)
}

func trimLeadingWord(s string, words ...string) string {
	lower := strings.ToLower(s)
	for _, w := range words {
		if strings.HasPrefix(lower, w+" ") {
			return strings.TrimSpace(s[len(w)+1:])
		}
	}
	return s
}

// entities builds a map from key/value pairs, omitting empty values.
func entities(kv ...string) map[string]string {
	out := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if v := strings.TrimSpace(kv[i+1]); v != "" {
			out[kv[i]] = v
		}
	}
	return out
}
