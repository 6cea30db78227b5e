package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellnessgrid/backend/internal/models"
)

var start = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

func entryAt(tool string, day int, data map[string]any) models.TrackingEntry {
	return models.TrackingEntry{UserID: "u1", ToolID: tool, Data: data, Timestamp: start.AddDate(0, 0, day)}
}

func TestGlucoseScore(t *testing.T) {
	tests := []struct {
		name     string
		readings []float64
		want     float64
	}{
		{"all in range flat", []float64{100, 100, 100, 100}, 100},
		{"boundary 70 is in range", []float64{70, 70, 70}, 100},
		{"rising high series", []float64{155, 165, 175, 185, 195, 205, 215, 225, 235, 245}, 0},
		{"one severe low", []float64{50, 100, 100, 100}, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GlucoseScore(tt.readings)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, ok := GlucoseScore(nil)
	assert.False(t, ok)
}

func TestGlucoseScore_HighAverageWellBelow70(t *testing.T) {
	readings := []float64{170, 180, 190, 195, 200, 205, 210, 215, 220, 215}
	got, ok := GlucoseScore(readings)
	require.True(t, ok)
	assert.Less(t, got, 70.0)
}

func TestMedicationScore(t *testing.T) {
	all := []models.TrackingEntry{
		entryAt(models.ToolMedication, 0, map[string]any{"taken": true}),
		entryAt(models.ToolMedication, 1, map[string]any{"status": "Taken"}),
	}
	got, ok := MedicationScore(all)
	require.True(t, ok)
	assert.Equal(t, 100.0, got)

	half := []models.TrackingEntry{
		entryAt(models.ToolMedication, 0, map[string]any{"taken": true}),
		entryAt(models.ToolMedication, 1, map[string]any{"taken": false}),
	}
	got, ok = MedicationScore(half)
	require.True(t, ok)
	assert.Equal(t, 40.0, got)

	_, ok = MedicationScore(nil)
	assert.False(t, ok)
}

func TestSleepScore(t *testing.T) {
	entries := []models.TrackingEntry{
		entryAt(models.ToolSleep, 0, map[string]any{"hours": 8, "quality": 10}),
		entryAt(models.ToolSleep, 1, map[string]any{"hours": 5.5}),
	}
	got, ok := SleepScore(entries)
	require.True(t, ok)
	// (50+50 + 25+25) / 2
	assert.InDelta(t, 75, got, 1e-9)
}

func TestMoodScore(t *testing.T) {
	got, ok := MoodScore([]float64{7, 7, 7})
	require.True(t, ok)
	assert.InDelta(t, 80, got, 1e-9)

	got, ok = MoodScore([]float64{1, 9, 1, 9})
	require.True(t, ok)
	assert.InDelta(t, 40, got, 1e-9)
}

func TestBloodPressurePoints(t *testing.T) {
	assert.Equal(t, 100.0, BloodPressurePoints(115, 75))
	assert.Equal(t, 85.0, BloodPressurePoints(125, 75))
	assert.Equal(t, 70.0, BloodPressurePoints(135, 85))
	assert.Equal(t, 50.0, BloodPressurePoints(150, 95))
	assert.Equal(t, 25.0, BloodPressurePoints(185, 125))
}

func TestHeartRatePoints(t *testing.T) {
	assert.Equal(t, 100.0, HeartRatePoints(72))
	assert.Equal(t, 80.0, HeartRatePoints(55))
	assert.Equal(t, 70.0, HeartRatePoints(105))
	assert.Equal(t, 40.0, HeartRatePoints(45))
	assert.Equal(t, 20.0, HeartRatePoints(150))
}

func TestVitalsScore(t *testing.T) {
	entries := []models.TrackingEntry{
		entryAt(models.ToolBloodPressure, 0, map[string]any{"systolic": 115, "diastolic": 75, "heart_rate": 55}),
		entryAt(models.ToolVitalSigns, 1, map[string]any{"blood_pressure": "150/95"}),
	}
	got, ok := VitalsScore(entries)
	require.True(t, ok)
	// entry one (100+80)/2 = 90, entry two 50
	assert.InDelta(t, 70, got, 1e-9)
}

func TestExerciseScore(t *testing.T) {
	week := 7 * 24 * time.Hour
	var entries []models.TrackingEntry
	for d := 0; d < 5; d++ {
		entries = append(entries, entryAt(models.ToolExercise, d, map[string]any{"duration": 30}))
	}
	got, ok := ExerciseScore(entries, week)
	require.True(t, ok)
	// 150 min over 7 days meets the target; 5/7 days gives +10
	assert.InDelta(t, 100, got, 1e-9)

	got, ok = ExerciseScore(entries[:1], week)
	require.True(t, ok)
	assert.InDelta(t, 20, got, 1e-9)
}

func TestNutritionScore(t *testing.T) {
	week := 7 * 24 * time.Hour
	var entries []models.TrackingEntry
	for d := 0; d < 7; d++ {
		entries = append(entries, entryAt(models.ToolNutrition, d, map[string]any{"calories": 2000}))
	}
	got, ok := NutritionScore(entries, week)
	require.True(t, ok)
	assert.InDelta(t, 90, got, 1e-9)

	_, ok = NutritionScore(nil, week)
	assert.False(t, ok)
}

func TestRenormalize_SumsToOne(t *testing.T) {
	all := []models.ScoreComponent{
		models.ComponentGlucose, models.ComponentMedication, models.ComponentSleep,
		models.ComponentMood, models.ComponentVitals, models.ComponentExercise, models.ComponentNutrition,
	}
	conditionSets := [][]models.UserCondition{
		nil,
		{{ConditionID: "type-2-diabetes"}},
		{{ConditionID: "Hypertension"}, {ConditionID: "anxiety"}},
	}

	// every non-empty subset of components
	for mask := 1; mask < 1<<len(all); mask++ {
		var present []models.ScoreComponent
		for i, c := range all {
			if mask&(1<<i) != 0 {
				present = append(present, c)
			}
		}
		for _, conds := range conditionSets {
			w := Renormalize(Adjust(BaseWeights(), DefaultOverrides(), conds), present)
			assert.InDelta(t, 1.0, w.Sum(), 1e-9)
			assert.Len(t, w, len(present))
		}
	}
}

func TestAdjust_ConditionOverrides(t *testing.T) {
	w := Adjust(BaseWeights(), DefaultOverrides(), []models.UserCondition{{ConditionID: "type-1-diabetes"}})
	assert.Equal(t, 0.35, w[models.ComponentGlucose])
	assert.Equal(t, 0.10, w[models.ComponentVitals])

	w = Adjust(BaseWeights(), DefaultOverrides(), []models.UserCondition{{ConditionID: "hypertension"}, {ConditionID: "depression"}})
	assert.Equal(t, 0.25, w[models.ComponentVitals])
	assert.Equal(t, 0.25, w[models.ComponentMood])

	// base table is not mutated
	assert.Equal(t, 0.25, BaseWeights()[models.ComponentGlucose])
}

func TestClassifyTrend(t *testing.T) {
	prior := func(scores ...float64) []models.HealthScore {
		out := make([]models.HealthScore, len(scores))
		for i, s := range scores {
			out[i] = models.HealthScore{OverallScore: s}
		}
		return out
	}

	assert.Equal(t, models.ScoreTrendInsufficientData, ClassifyTrend(80, prior(70)))
	assert.Equal(t, models.ScoreTrendImproving, ClassifyTrend(80, prior(70, 72)))
	assert.Equal(t, models.ScoreTrendDeclining, ClassifyTrend(60, prior(70, 70, 70)))
	assert.Equal(t, models.ScoreTrendStable, ClassifyTrend(72, prior(70, 70)))
	// only the newest three count
	assert.Equal(t, models.ScoreTrendStable, ClassifyTrend(70, prior(70, 70, 70, 10)))
}

func TestNormalizePeriod(t *testing.T) {
	assert.Equal(t, DefaultPeriod, NormalizePeriod(""))
	assert.Equal(t, DefaultPeriod, NormalizePeriod("  "))
	assert.Equal(t, "7d", NormalizePeriod(" 7D "))
	assert.Equal(t, "12h", NormalizePeriod("12H"))
}

func TestParsePeriod(t *testing.T) {
	d, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	d, err = ParsePeriod("2w")
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, d)

	d, err = ParsePeriod("12h")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, d)

	for _, bad := range []string{"x", "0d", "-3d", "7y", "d"} {
		_, err := ParsePeriod(bad)
		assert.Error(t, err, bad)
	}
}

func TestCompose_WeightedSum(t *testing.T) {
	entries := []models.TrackingEntry{
		entryAt(models.ToolGlucose, 0, map[string]any{"glucose_level": 100}),
		entryAt(models.ToolGlucose, 1, map[string]any{"glucose_level": 100}),
		entryAt(models.ToolMood, 0, map[string]any{"mood": 7}),
		entryAt(models.ToolMood, 1, map[string]any{"mood": 7}),
	}

	score, err := NewComposer().Compose("u1", "7d", entries, nil, nil, start)
	require.NoError(t, err)

	assert.Equal(t, "u1", score.UserID)
	assert.Equal(t, "7d", score.Period)
	assert.Len(t, score.ComponentScores, 2)
	assert.InDelta(t, 1.0, Weights(score.Weights).Sum(), 1e-9)

	// glucose 100 at weight .25/.40, mood 80 at .15/.40
	assert.InDelta(t, 100*0.625+80*0.375, score.OverallScore, 1e-9)
	assert.Equal(t, models.ScoreTrendInsufficientData, score.Trend)
}

func TestCompose_NoData(t *testing.T) {
	score, err := NewComposer().Compose("u1", "", nil, nil, nil, start)
	require.NoError(t, err)
	assert.Zero(t, score.OverallScore)
	assert.Empty(t, score.ComponentScores)
	assert.Equal(t, DefaultPeriod, score.Period)
}

func TestCompose_InvalidPeriod(t *testing.T) {
	_, err := NewComposer().Compose("u1", "abc", nil, nil, nil, start)
	assert.Error(t, err)
}
