package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	out, err := Template("Hi {{name}}, {{name}} asked {{q}}").Render(map[string]string{
		"name":  "Ana",
		"q":     "why",
		"extra": "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ana, Ana asked why", out)
}

func TestRender_Missing(t *testing.T) {
	_, err := Template("{{a}} {{b}} {{c}}").Render(map[string]string{"b": ""})
	require.Error(t, err)
	assert.Equal(t, "missing template variables: a, c", err.Error())
}

func TestVariables(t *testing.T) {
	assert.Equal(t, []string{"example_id", "refusal", "context"}, GroundedSystem.Variables())
	assert.Equal(t, []string{"question"}, GroundedUser.Variables())
	assert.Equal(t, []string{"id", "page", "content"}, ContextBlock.Variables())
}

func TestMustRender_Panics(t *testing.T) {
	assert.Panics(t, func() { GroundedUser.MustRender(nil) })
}
