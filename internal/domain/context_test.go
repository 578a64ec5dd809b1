package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionContext_Accessors(t *testing.T) {
	main := MainContext()
	assert.True(t, main.IsMain())
	assert.Equal(t, "main", main.String())
	_, ok := main.PlanID()
	assert.False(t, ok)

	plan := PlanContext("chronological")
	assert.Equal(t, ContextPlan, plan.Kind())
	id, ok := plan.PlanID()
	assert.True(t, ok)
	assert.Equal(t, "chronological", id)
	_, ok = plan.ChallengeID()
	assert.False(t, ok)

	challenge := ChallengeContext("AdventJourney")
	id, ok = challenge.ChallengeID()
	assert.True(t, ok)
	assert.Equal(t, "AdventJourney", id)
	assert.Equal(t, "challenge:AdventJourney", challenge.String())
}

func TestCompletionContext_ZeroValueIsMain(t *testing.T) {
	var c CompletionContext
	assert.True(t, c.IsMain())
	assert.Equal(t, MainContext(), mustParse(t, "", ""))
}

func mustParse(t *testing.T, kind, ref string) CompletionContext {
	t.Helper()
	c, err := ParseCompletionContext(kind, ref)
	require.NoError(t, err)
	return c
}

func TestParseCompletionContext_RejectsInvalidCombinations(t *testing.T) {
	tests := []struct {
		name string
		kind string
		ref  string
	}{
		{"main with ref", "main", "x"},
		{"plan without id", "plan", ""},
		{"challenge without id", "challenge", ""},
		{"unknown kind", "bonus", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCompletionContext(tt.kind, tt.ref)
			assert.Error(t, err)
		})
	}
}

func TestCompletionContext_JSONRoundTrip(t *testing.T) {
	in := struct {
		Ctx CompletionContext `json:"ctx"`
	}{Ctx: PlanContext("mcheyne")}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ctx":"plan:mcheyne"}`, string(data))

	var out struct {
		Ctx CompletionContext `json:"ctx"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Ctx, out.Ctx)
}
