package compact

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/internal/testutil"
)

func history(n int) []core.Turn {
	return testutil.NewMemoryBuilder("s1", "u1").Turns(n).Build().Turns()
}

func TestBuild_NewSessionHeaderAndMessageOnly(t *testing.T) {
	out := Build(Input{Message: "I run a coffee shop"}, DefaultOptions())

	assert.Contains(t, out, "stage: none\n")
	assert.Contains(t, out, "business_profile: none\n")
	assert.Contains(t, out, "campaign_brief: none\n")
	assert.NotContains(t, out, SummaryBlock)
	assert.NotContains(t, out, RecentBlock)
	assert.NotContains(t, out, OtherBlock)
	assert.True(t, strings.HasSuffix(out, MessageBlock+"\nI run a coffee shop"))
}

func TestBuild_CompactionBound(t *testing.T) {
	out := Build(Input{History: history(25), Message: "next"}, DefaultOptions())

	require.Contains(t, out, SummaryBlock)
	summary := out[strings.Index(out, SummaryBlock):strings.Index(out, RecentBlock)]
	assert.Contains(t, summary, "turns: 5 (user: 3, assistant: 2)")
	assert.Contains(t, summary, `first_user: "msg-00"`)
	assert.Contains(t, summary, `last_user: "msg-04"`)
	assert.Contains(t, summary, `first_assistant: "msg-01"`)
	assert.Contains(t, summary, `last_assistant: "msg-03"`)

	recent := out[strings.Index(out, RecentBlock):strings.Index(out, MessageBlock)]
	for i := 0; i < 25; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		line := fmt.Sprintf("%s: msg-%02d\n", role, i)
		if i < 5 {
			assert.NotContains(t, recent, line, "turn %d should be summarized", i)
		} else {
			assert.Contains(t, recent, line, "turn %d should be verbatim", i)
		}
	}
	assert.Equal(t, 20, strings.Count(recent, "msg-"))
}

func TestBuild_UnderThresholdNoSummary(t *testing.T) {
	out := Build(Input{History: history(10), Message: "next"}, DefaultOptions())

	assert.NotContains(t, out, SummaryBlock)
	assert.Equal(t, 10, strings.Count(out, "msg-"))

	exactly := Build(Input{History: history(20), Message: "next"}, DefaultOptions())
	assert.NotContains(t, exactly, SummaryBlock)
}

func TestBuild_SnippetsTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	turns := []core.Turn{{Role: core.RoleUser, Text: long}}
	turns = append(turns, history(20)...)

	out := Build(Input{History: turns, Message: "m"}, Options{Threshold: 20, SnippetChars: 50, MaxOtherSessions: 4})
	assert.Contains(t, out, `first_user: "`+strings.Repeat("x", 47)+`..."`)
	assert.NotContains(t, out, strings.Repeat("x", 51))
}

func TestBuild_HeaderFields(t *testing.T) {
	out := Build(Input{
		Stage:           core.StageCampaignBrief,
		BusinessProfile: map[string]any{"name": "Bean There", "city": "Lisbon"},
		CampaignBrief:   map[string]any{"goal": "awareness"},
		WorkerStatuses:  map[string]string{"onboarding": "complete", "brief": "collecting_budget"},
		Message:         "hi",
	}, DefaultOptions())

	assert.Contains(t, out, "stage: campaign_brief\n")
	assert.Contains(t, out, `business_profile: {"city":"Lisbon","name":"Bean There"}`)
	assert.Contains(t, out, "campaign_brief: present\n")
	assert.Less(t, strings.Index(out, "status.brief:"), strings.Index(out, "status.onboarding:"))
}

func TestBuild_OtherSessionsCapped(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)
	var others []core.SessionSummary
	for i := 0; i < 6; i++ {
		others = append(others, core.SessionSummary{
			SessionID: fmt.Sprintf("other-%d", i),
			Created:   created,
			TurnCount: i,
			LastUser:  "line one\nline two",
		})
	}

	out := Build(Input{OtherSessions: others, Message: "m"}, DefaultOptions())
	require.Contains(t, out, OtherBlock)
	assert.Contains(t, out, "other-3")
	assert.NotContains(t, out, "other-4")
	assert.Contains(t, out, `created=2025-01-02T03:04Z turns=0 profile=no last_user="line one line two"`)
	assert.Less(t, strings.Index(out, OtherBlock), strings.Index(out, MessageBlock))
}

func TestBuild_Deterministic(t *testing.T) {
	in := Input{
		BusinessProfile: map[string]any{"b": 1, "a": 2},
		WorkerStatuses:  map[string]string{"z": "1", "a": "2"},
		History:         history(30),
		Message:         "m",
	}
	assert.Equal(t, Build(in, DefaultOptions()), Build(in, DefaultOptions()))
}

func TestFromSnapshot_ExcludesCurrentMessage(t *testing.T) {
	mem := testutil.NewMemoryBuilder("s1", "u1").Turns(2).Stage(core.StageOnboarding).Build()
	mem.AppendMessage(core.RoleUser, "now", "")

	in := FromSnapshot(mem.Snapshot(), nil, "now")
	assert.Len(t, in.History, 2)
	assert.Equal(t, core.StageOnboarding, in.Stage)
	assert.Equal(t, "now", in.Message)
}
