package format

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"action-engine/internal/actions/dispatch"
	"action-engine/internal/actions/intent"
)

func TestFormat_SuccessTemplates(t *testing.T) {
	tests := []struct {
		name   string
		result dispatch.ActionResult
		want   string
	}{
		{
			name:   "sms",
			result: dispatch.ActionResult{Succeeded: true, Kind: intent.SendTextMessage, Entities: map[string]string{"phone": "15550101", "message": "hi"}},
			want:   "SMS sent to 15550101",
		},
		{
			name:   "sms to named recipient",
			result: dispatch.ActionResult{Succeeded: true, Kind: intent.SendTextMessage, Entities: map[string]string{"recipient": "Sarah"}},
			want:   "SMS sent to Sarah",
		},
		{
			name:   "message",
			result: dispatch.ActionResult{Succeeded: true, Kind: intent.SendMessage, Entities: map[string]string{"recipient": "john"}},
			want:   "Sent message to john",
		},
		{
			name:   "contact search array payload",
			result: dispatch.ActionResult{Succeeded: true, Kind: intent.SearchContacts, Payload: json.RawMessage(`[{"id":1},{"id":2}]`)},
			want:   "Found 2 contact(s)",
		},
		{
			name:   "contact search object payload",
			result: dispatch.ActionResult{Succeeded: true, Kind: intent.SearchContacts, Payload: json.RawMessage(`{"contacts":[{"id":1}]}`)},
			want:   "Found 1 contact(s)",
		},
		{
			name:   "contact search count payload",
			result: dispatch.ActionResult{Succeeded: true, Kind: intent.SearchContacts, Payload: json.RawMessage(`{"total":7}`)},
			want:   "Found 7 contact(s)",
		},
		{
			name:   "appointment",
			result: dispatch.ActionResult{Succeeded: true, Kind: intent.BookAppointment, Entities: map[string]string{"contact": "sarah", "datetime": "friday"}},
			want:   "Booked appointment with sarah for friday",
		},
		{
			name:   "social post",
			result: dispatch.ActionResult{Succeeded: true, Kind: intent.ScheduleSocialPost, Entities: map[string]string{"platform": "instagram"}},
			want:   "Post scheduled on instagram",
		},
		{
			name:   "agent switch",
			result: dispatch.ActionResult{Succeeded: true, Kind: intent.SwitchAgent, Entities: map[string]string{"role": "sales"}},
			want:   "Switched to the sales agent",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.result))
		})
	}
}

func TestFormat_Fallbacks(t *testing.T) {
	assert.Equal(t, "Pulled 3 dashboards",
		Format(dispatch.ActionResult{Succeeded: true, Kind: intent.FetchAnalytics, Message: "Pulled 3 dashboards"}))
	assert.Equal(t, "done on the backend",
		Format(dispatch.ActionResult{Succeeded: true, Kind: intent.CreateTask, Message: "done on the backend"}))
	assert.Equal(t, genericSuccess, Format(dispatch.ActionResult{Succeeded: true, Kind: intent.FetchAnalytics}))
	assert.Equal(t, genericSuccess, Format(dispatch.ActionResult{Succeeded: true, Kind: intent.SearchContacts, Payload: json.RawMessage(`"x"`)}))
}

func TestFormat_Failures(t *testing.T) {
	assert.Equal(t, "Contact not found",
		Format(dispatch.ActionResult{Succeeded: false, Kind: intent.SendTextMessage, Message: "Contact not found", Entities: map[string]string{"phone": "1"}}))
	assert.Equal(t, genericFailure, Format(dispatch.ActionResult{Kind: intent.PlaceCall}))
}

func TestFormat_NeedsMoreInfo(t *testing.T) {
	assert.Equal(t, "Which Sarah did you mean?",
		Format(dispatch.ActionResult{Succeeded: true, NeedsMoreInfo: true, Prompt: "Which Sarah did you mean?"}))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Send a text message to 15550101", Describe(intent.SendTextMessage, map[string]string{"phone": "15550101"}))
	assert.Equal(t, `Send a text message to 15550101: "see you"`,
		Describe(intent.SendTextMessage, map[string]string{"phone": "15550101", "message": "see you"}))
	assert.Equal(t, `Send a message to john about "invoice"`,
		Describe(intent.SendMessage, map[string]string{"recipient": "john", "subject": "invoice"}))
	assert.Equal(t, "Place a call", Describe(intent.PlaceCall, nil))
	assert.Equal(t, `Trigger the "welcome" automation for sarah`,
		Describe(intent.TriggerAutomation, map[string]string{"workflow": "welcome", "contact": "sarah"}))
	assert.Equal(t, "Create an opportunity for Acme worth 5,000",
		Describe(intent.CreateOpportunity, map[string]string{"name": "Acme", "value": "5,000"}))
	assert.Equal(t, "Create task", Describe(intent.CreateTask, nil))
}

func TestQuestion(t *testing.T) {
	assert.Equal(t, "What should the message say?", Question(intent.SendTextMessage, "message"))
	assert.Equal(t, "What should the opportunity be called?", Question(intent.CreateOpportunity, "name"))
	assert.Equal(t, "Please provide the color.", Question(intent.CreateTask, "color"))
}

func TestSuggestionsFor(t *testing.T) {
	for _, role := range Roles() {
		got := SuggestionsFor(role)
		assert.NotEmpty(t, got, role)
		assert.NotEqual(t, commonSuggestions, got, role)
	}
	assert.Equal(t, commonSuggestions, SuggestionsFor(""))
	assert.Equal(t, commonSuggestions, SuggestionsFor("janitor"))
	assert.Equal(t, roleSuggestions["sales"], SuggestionsFor(" Sales "))

	got := SuggestionsFor("sales")
	got[0].Label = "mutated"
	assert.NotEqual(t, "mutated", roleSuggestions["sales"][0].Label)
}
