package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "code fence",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "comments and trailing commas",
			in:   "{\n  \"a\": 1, // first\n  /* note */ \"b\": [1, 2,],\n}",
			want: "{\n  \"a\": 1, \n   \"b\": [1, 2]\n}",
		},
		{
			name: "prose around object",
			in:   `Sure! Here it is: {"a": 1} hope this helps`,
			want: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeModelJSON(tt.in))
		})
	}
}

func TestParseAnalysisResult(t *testing.T) {
	raw := "```json\n" + `{
  "primary": {"label": "dog", "confidence": 0.9, "box": {"x": 0.1, "y": 0.6, "w": 0.2, "h": 0.3}, "cx": 0.2, "cy": 0.75},
  "description": "a dog on grass",
  "tags": ["dog", "grass",],
}` + "\n```"

	res := ParseAnalysisResult(raw)
	assert.Equal(t, "dog", res.Primary.Label)
	assert.Equal(t, 0.75, res.Primary.Cy)
	assert.Equal(t, []string{"dog", "grass"}, res.Tags)
	assert.False(t, IsFallback(res))
}

func TestParseAnalysisResultFallbacks(t *testing.T) {
	res := ParseAnalysisResult("I see a cat on a sofa.")
	assert.Equal(t, "unclear image", res.Primary.Label)
	assert.Equal(t, 0.5, res.Primary.Cx)
	assert.Contains(t, res.Tags, "fallback")
	assert.True(t, IsFallback(res))

	res = ParseAnalysisResult(`{"primary": {"label": }`)
	assert.Equal(t, "parse error", res.Primary.Label)

	res = ParseAnalysisResult(`{}`)
	assert.Equal(t, 0.5, res.Primary.Cx)
	assert.Equal(t, 0.5, res.Primary.Cy)
	assert.Equal(t, 0.5, res.Primary.Box.W)
}

func TestWithDefaultTimeout(t *testing.T) {
	ctx, cancel := WithDefaultTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	require.True(t, ok)

	parent, parentCancel := context.WithCancel(context.Background())
	defer parentCancel()
	ctx, cancel = WithDefaultTimeout(parent)
	defer cancel()
	assert.Equal(t, parent, ctx)
}
