package biz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/papergen/internal/papergen/biz"
)

func TestDecodeModelJSON(t *testing.T) {
	type payload struct {
		QuestionText string `json:"question_text"`
	}

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "direct",
			raw:  `{"question_text": "What does the seagull fear?"}`,
			want: "What does the seagull fear?",
		},
		{
			name: "fenced with language tag",
			raw:  "Here is the question:\n```json\n{\"question_text\": \"Why does the family grumble?\"}\n```\nHope this helps.",
			want: "Why does the family grumble?",
		},
		{
			name: "fenced without language tag",
			raw:  "```\n{\"question_text\": \"Describe the attic.\"}\n```",
			want: "Describe the attic.",
		},
		{
			name: "prose-wrapped object",
			raw:  `Sure! The drafted question is {"question_text": "Who was Mulan?"} as requested.`,
			want: "Who was Mulan?",
		},
		{
			name: "braces inside strings",
			raw:  `{"question_text": "Explain the phrase \"{grumble}\" here"}`,
			want: `Explain the phrase "{grumble}" here`,
		},
		{
			name:    "no json at all",
			raw:     "I cannot generate that question.",
			wantErr: true,
		},
		{
			name:    "empty input",
			raw:     "   ",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			raw:     `{"question_text": "truncated`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := biz.DecodeModelJSON(tt.raw, &got)
			if tt.wantErr {
				require.ErrorIs(t, err, biz.ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.QuestionText)
		})
	}
}

func TestDecodeModelJSONArray(t *testing.T) {
	var got []map[string]any
	raw := "```json\n[{\"a\": 1}, {\"a\": 2}]\n```"
	require.NoError(t, biz.DecodeModelJSON(raw, &got))
	assert.Len(t, got, 2)
}
