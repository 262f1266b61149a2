// internal/workers/ai-conversation/resolve-operator-command/models.go
package resolveoperatorcommand

type Input struct {
	ConversationID string                 `json:"conversationId"`
	Text           string                 `json:"text"`
	Platform       string                 `json:"platform"`
	TenantID       string                 `json:"tenantId"`
	BrandContext   map[string]interface{} `json:"brandContext"`
	Persona        string                 `json:"persona"`
}

type Output struct {
	Reply     string `json:"reply"`
	Stage     string `json:"stage"`
	Succeeded bool   `json:"succeeded"`
	Action    string `json:"action,omitempty"`
	// AwaitingInput tells the process to collect another operator message.
	AwaitingInput bool `json:"awaitingInput"`
}
