package format

import (
	"fmt"
	"strings"

	"action-engine/internal/actions/intent"
)

// Describe summarizes what dispatching kind with the given entities would do.
// It is used in confirmation prompts.
func Describe(kind intent.Kind, collected map[string]string) string {
	e := entities(collected)
	switch kind {
	case intent.SendMessage:
		s := "Send a message" + target(e.first("recipient"))
		if subject := e.first("subject"); subject != "" {
			s += fmt.Sprintf(" about %q", subject)
		}
		return s
	case intent.SendTextMessage:
		s := "Send a text message" + target(e.first("phone", "recipient", "contact"))
		if msg := e.first("message"); msg != "" {
			s += fmt.Sprintf(": %q", msg)
		}
		return s
	case intent.PlaceCall:
		return "Place a call" + target(e.first("phone", "contact", "recipient"))
	case intent.TriggerAutomation:
		s := "Trigger the automation"
		if wf := e.first("workflow"); wf != "" {
			s = fmt.Sprintf("Trigger the %q automation", wf)
		}
		if contact := e.first("contact"); contact != "" {
			s += " for " + contact
		}
		return s
	case intent.CreateOpportunity:
		s := "Create an opportunity"
		if name := e.first("name"); name != "" {
			s += " for " + name
		}
		if value := e.first("value"); value != "" {
			s += " worth " + value
		}
		return s
	case intent.BookAppointment:
		s := "Book an appointment"
		if contact := e.first("contact"); contact != "" {
			s += " with " + contact
		}
		if when := e.first("datetime"); when != "" {
			s += " for " + when
		}
		return s
	}

	words := strings.ReplaceAll(string(kind), "_", " ")
	if words == "" {
		return "Run this action"
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

func target(who string) string {
	if who == "" {
		return ""
	}
	return " to " + who
}

// Question is the prompt used to solicit one missing entity.
func Question(kind intent.Kind, key string) string {
	switch key {
	case "phone":
		return "What phone number should I use?"
	case "message":
		return "What should the message say?"
	case "recipient":
		return "Who should receive it?"
	case "subject":
		return "What is it about?"
	case "content":
		return "What should the post say?"
	case "name":
		if kind == intent.CreateOpportunity {
			return "What should the opportunity be called?"
		}
		return "What is the contact's name?"
	case "title":
		return "What should the task say?"
	case "query":
		return "Who should I search for?"
	case "workflow":
		return "Which automation should I trigger?"
	case "contact":
		return "Who is the appointment with?"
	case "datetime":
		return "When should it be booked?"
	case "topic":
		return "What topic should the content cover?"
	case "role":
		return "Which agent should I connect you to?"
	}
	return fmt.Sprintf("Please provide the %s.", intent.EntityLabel(key))
}
