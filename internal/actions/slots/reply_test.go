package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReply_Confirming(t *testing.T) {
	tests := []struct {
		in        string
		kind      ReplyKind
		remainder string
	}{
		{"yes", ReplyAffirm, ""},
		{"Yes!", ReplyAffirm, ""},
		{"ok", ReplyAffirm, ""},
		{"okay, go ahead", ReplyAffirm, ""},
		{"go ahead", ReplyAffirm, ""},
		{"yes please", ReplyAffirm, ""},
		{"yes, say we'll confirm shortly", ReplyAffirm, "we'll confirm shortly"},
		{"yes saying see you at 3", ReplyAffirm, "see you at 3"},
		{"sure, tell them we're closed", ReplyAffirm, "we're closed"},
		{`confirm: "on my way"`, ReplyAffirm, "on my way"},
		{"yesterday was fine", ReplyValue, "yesterday was fine"},
		{"no", ReplyNegate, ""},
		{"Nope", ReplyNegate, ""},
		{"don't", ReplyNegate, ""},
		{"No.", ReplyNegate, ""},
		{"no thanks", ReplyNegate, ""},
		{"nope, not now", ReplyNegate, ""},
		{"do not send it", ReplyNegate, ""},
		{"No worries, see you at 2", ReplyValue, "No worries, see you at 2"},
		{"nobody is home", ReplyValue, "nobody is home"},
		{"cancel that", ReplyCancel, ""},
		{"nevermind", ReplyCancel, ""},
		{"stop by at noon", ReplyValue, "stop by at noon"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseReply(tt.in, true)
			assert.Equal(t, tt.kind, got.Kind)
			if tt.kind != ReplyNegate && tt.kind != ReplyCancel {
				assert.Equal(t, tt.remainder, got.Remainder)
			}
		})
	}
}

func TestParseReply_NotConfirming(t *testing.T) {
	assert.Equal(t, Reply{Kind: ReplyValue, Remainder: "yes plz"}, ParseReply("  yes plz ", false))
	assert.Equal(t, Reply{Kind: ReplyValue, Remainder: "no"}, ParseReply("no", false))
	assert.Equal(t, ReplyCancel, ParseReply("cancel", false).Kind)
}
