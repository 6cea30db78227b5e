package insights

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/textgen"
)

func TestParse_NonJSONFallsBack(t *testing.T) {
	payload, ok := Parse("I'm sorry, I can't help with that.")
	assert.False(t, ok)
	assert.Empty(t, payload.Trends)
	assert.Empty(t, payload.Concerns)
	assert.Empty(t, payload.Achievements)
	require.Len(t, payload.Recommendations, 1)
	assert.Equal(t, DefaultRecommendation, payload.Recommendations[0].Description)
	assert.NotNil(t, payload.Trends)
}

func TestParse_Fenced(t *testing.T) {
	response := "Here is the analysis:\n```json\n{\"trends\": [{\"title\": \"Glucose\", \"description\": \"Rising\"}], \"concerns\": []}\n```\nStay well!"
	payload, ok := Parse(response)
	require.True(t, ok)
	require.Len(t, payload.Trends, 1)
	assert.Equal(t, "Glucose", payload.Trends[0].Title)
	assert.Equal(t, "Rising", payload.Trends[0].Description)
	assert.Empty(t, payload.Recommendations)
}

func TestParse_BareFence(t *testing.T) {
	response := "```\n{\"achievements\": [\"Logged mood 7 days in a row\"]}\n```"
	payload, ok := Parse(response)
	require.True(t, ok)
	require.Len(t, payload.Achievements, 1)
	assert.Equal(t, "Logged mood 7 days in a row", payload.Achievements[0].Description)
}

func TestParse_RawBlockInProse(t *testing.T) {
	response := `Sure! {"recommendations": [{"name": "Hydrate", "text": "Drink water {often}"}]} Hope that helps.`
	payload, ok := Parse(response)
	require.True(t, ok)
	require.Len(t, payload.Recommendations, 1)
	assert.Equal(t, "Hydrate", payload.Recommendations[0].Title)
	assert.Equal(t, "Drink water {often}", payload.Recommendations[0].Description)
}

func TestParse_TruncatedJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"open string", `{"trends": [{"title": "Sleep", "description": "Improving stead`},
		{"dangling comma", `{"trends": [{"title": "Sleep", "description": "Improving"},`},
		{"dangling key", `{"trends": [{"title": "Sleep", "description": "Improving"}], "concerns": [{"title": "BP", "descr`},
		{"unterminated fence", "```json\n{\"trends\": [{\"title\": \"Sleep\", \"description\": \"Improving\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, ok := Parse(tt.response)
			require.True(t, ok)
			require.NotEmpty(t, payload.Trends)
			assert.Equal(t, "Sleep", payload.Trends[0].Title)
		})
	}
}

func TestParse_RequiresKnownKey(t *testing.T) {
	_, ok := Parse(`{"summary": "all good"}`)
	assert.False(t, ok)
}

func TestRepair(t *testing.T) {
	assert.Equal(t, `{"a": ["x"]}`, Repair(`{"a": ["x"`))
	assert.Equal(t, `{"a": "b"}`, Repair(`{"a": "b`))
	assert.Equal(t, `{"a":null}`, Repair(`{"a": `))
	assert.Equal(t, `{"a": 1}`, Repair(`{"a": 1,`))
}

func TestCandidates_Order(t *testing.T) {
	response := "text {\"raw\": 1} ```json\n{\"fenced\": 1}\n```"
	c := Candidates(response)
	require.GreaterOrEqual(t, len(c), 3)
	assert.Equal(t, `{"fenced": 1}`, c[0])
	assert.Equal(t, `{"raw": 1}`, c[1])
	assert.Equal(t, strings.TrimSpace(response), c[len(c)-1])
}

var now = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func ent(id, tool string, ago time.Duration, data map[string]any) models.TrackingEntry {
	return models.TrackingEntry{ID: id, UserID: "u1", ToolID: tool, Data: data, Timestamp: now.Add(-ago)}
}

func TestDetectPattern(t *testing.T) {
	steady := []models.TrackingEntry{
		ent("g1", models.ToolGlucose, 4*time.Hour, map[string]any{"glucose_level": 100}),
		ent("g2", models.ToolGlucose, 3*time.Hour, map[string]any{"glucose_level": 104}),
		ent("g3", models.ToolGlucose, 2*time.Hour, map[string]any{"glucose_level": 98}),
		ent("g4", models.ToolGlucose, time.Hour, map[string]any{"glucose_level": 102}),
	}

	tests := []struct {
		name    string
		newest  models.TrackingEntry
		history []models.TrackingEntry
		want    bool
	}{
		{"hypo", ent("n", models.ToolGlucose, 0, map[string]any{"glucose_level": 60}), nil, true},
		{"hyper", ent("n", models.ToolGlucose, 0, map[string]any{"glucose_level": 260}), nil, true},
		{"deviation", ent("n", models.ToolGlucose, 0, map[string]any{"glucose_level": 160}), steady, true},
		{"normal glucose", ent("n", models.ToolGlucose, 0, map[string]any{"glucose_level": 103}), steady, false},
		{"low mood", ent("n", models.ToolMood, 0, map[string]any{"mood": 3}), nil, true},
		{"mood drop", ent("n", models.ToolMood, 0, map[string]any{"mood": 5}), []models.TrackingEntry{
			ent("m1", models.ToolMood, time.Hour, map[string]any{"mood": 8}),
			ent("m2", models.ToolMood, 2*time.Hour, map[string]any{"mood": 9}),
		}, true},
		{"ok mood", ent("n", models.ToolMood, 0, map[string]any{"mood": 6}), nil, false},
		{"bp", ent("n", models.ToolBloodPressure, 0, map[string]any{"systolic": 120, "diastolic": 90}), nil, true},
		{"symptom", ent("n", models.ToolSymptom, 0, map[string]any{"severity": 7}), nil, true},
		{"short sleep", ent("n", models.ToolSleep, 0, map[string]any{"hours": 4.5}), nil, true},
		{"fine sleep", ent("n", models.ToolSleep, 0, map[string]any{"hours": 7}), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := DetectPattern(tt.newest, append(tt.history, tt.newest))
			assert.Equal(t, tt.want, ok, reason)
			if tt.want {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestDetectPattern_BloodPressureSingleSide(t *testing.T) {
	reason, ok := DetectPattern(ent("n", models.ToolBloodPressure, 0, map[string]any{"diastolic": 95}), nil)
	require.True(t, ok)
	assert.Equal(t, "blood pressure of diastolic 95 is elevated", reason)
}

func TestDecide_Priority(t *testing.T) {
	hypo := ent("n", models.ToolGlucose, 0, map[string]any{"glucose_level": 55})
	fine := ent("n", models.ToolMood, 0, map[string]any{"mood": 7})
	recent := []models.TrackingEntry{
		ent("a", models.ToolMood, time.Hour, map[string]any{"mood": 7}),
		ent("b", models.ToolMood, 2*time.Hour, map[string]any{"mood": 7}),
		fine,
	}

	twoDaysAgo := now.Add(-48 * time.Hour)
	hourAgo := now.Add(-time.Hour)
	weekAgo := now.Add(-8 * 24 * time.Hour)

	d := Decide(&hypo, recent, &twoDaysAgo, now)
	assert.Equal(t, models.InsightTypeTriggered, d.Type)
	assert.True(t, d.Generate)

	d = Decide(&fine, recent, &twoDaysAgo, now)
	assert.Equal(t, models.InsightTypeDaily, d.Type)

	d = Decide(&fine, recent[:2], &twoDaysAgo, now)
	assert.False(t, d.Generate, "fewer than 3 entries and less than a week")

	d = Decide(&fine, nil, &weekAgo, now)
	assert.Equal(t, models.InsightTypeWeekly, d.Type)

	d = Decide(&fine, recent, &hourAgo, now)
	assert.False(t, d.Generate)

	d = Decide(&fine, recent, nil, now)
	assert.True(t, d.Generate)
	assert.Equal(t, models.InsightTypeWeekly, d.Type)
}

type stubGen struct {
	result textgen.Result
	prompt string
}

func (s *stubGen) Name() string { return "stub" }

func (s *stubGen) Generate(ctx context.Context, prompt string) textgen.Result {
	s.prompt = prompt
	if _, ok := ctx.Deadline(); !ok {
		return textgen.Result{Error: "no deadline"}
	}
	return s.result
}

func TestGenerator_Success(t *testing.T) {
	stub := &stubGen{result: textgen.Result{Success: true, Content: `{"trends":[{"title":"Mood","description":"Stable"}]}`, Model: "m1"}}
	g := NewGenerator(stub, time.Second)

	entries := []models.TrackingEntry{
		ent("a", models.ToolMood, time.Hour, map[string]any{"mood": 7}),
		ent("b", models.ToolGlucose, time.Hour, map[string]any{"glucose_level": 110}),
	}
	insight := g.Generate(context.Background(), Request{
		UserID: "u1", Type: models.InsightTypeOnDemand, Entries: entries,
		From: now.Add(-7 * 24 * time.Hour), To: now,
	})

	assert.False(t, insight.Metadata.Fallback)
	assert.Equal(t, "m1", insight.Metadata.Model)
	assert.Equal(t, 2, insight.Metadata.DataPointsAnalyzed)
	require.Len(t, insight.Insights.Trends, 1)
	assert.Contains(t, stub.prompt, "glucose: n=1")
	assert.Contains(t, stub.prompt, `"recommendations"`)
	assert.NotNil(t, insight.Alerts)
}

func TestGenerator_FailureFallsBack(t *testing.T) {
	g := NewGenerator(&stubGen{result: textgen.Result{Success: false, Error: "boom"}}, time.Second)
	insight := g.Generate(context.Background(), Request{UserID: "u1", Type: models.InsightTypeDaily})

	assert.True(t, insight.Metadata.Fallback)
	assert.Equal(t, DefaultPayload(), insight.Insights)
	assert.InDelta(t, fallbackConfidence, insight.Metadata.Confidence, 1e-9)
}

func TestGenerator_UnparseableFallsBack(t *testing.T) {
	g := NewGenerator(&stubGen{result: textgen.Result{Success: true, Content: "no json here"}}, time.Second)
	insight := g.Generate(context.Background(), Request{UserID: "u1", Type: models.InsightTypeWeekly})
	assert.True(t, insight.Metadata.Fallback)
	assert.Len(t, insight.Insights.Recommendations, 1)
}
