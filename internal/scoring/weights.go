// Package scoring composes the 0-100 wellness score from per-component
// sub-scores and a condition-aware weight table.
package scoring

import (
	"strings"

	"github.com/wellnessgrid/backend/internal/models"
)

// Weights maps a component to its share of the overall score
type Weights map[models.ScoreComponent]float64

// BaseWeights is the default weight table before condition overrides
func BaseWeights() Weights {
	return Weights{
		models.ComponentGlucose:    0.25,
		models.ComponentMedication: 0.20,
		models.ComponentSleep:      0.15,
		models.ComponentMood:       0.15,
		models.ComponentVitals:     0.10,
		models.ComponentExercise:   0.10,
		models.ComponentNutrition:  0.05,
	}
}

// ConditionOverride raises one component's weight for users with a matching
// condition. Keywords match case-insensitively as substrings of the
// condition id.
type ConditionOverride struct {
	Keywords  []string
	Component models.ScoreComponent
	Weight    float64
}

// DefaultOverrides returns the condition-specific weight rules
func DefaultOverrides() []ConditionOverride {
	return []ConditionOverride{
		{
			Keywords:  []string{"diabetes", "diabetic", "prediabetes"},
			Component: models.ComponentGlucose,
			Weight:    0.35,
		},
		{
			Keywords:  []string{"hypertension", "high-blood-pressure", "high_blood_pressure"},
			Component: models.ComponentVitals,
			Weight:    0.25,
		},
		{
			Keywords:  []string{"depression", "anxiety", "bipolar", "ptsd", "mental-health", "mental_health"},
			Component: models.ComponentMood,
			Weight:    0.25,
		},
	}
}

func (o ConditionOverride) matches(conditions []models.UserCondition) bool {
	for _, c := range conditions {
		id := strings.ToLower(c.ConditionID)
		for _, kw := range o.Keywords {
			if strings.Contains(id, kw) {
				return true
			}
		}
	}
	return false
}

// Adjust applies condition overrides to a copy of base
func Adjust(base Weights, overrides []ConditionOverride, conditions []models.UserCondition) Weights {
	adjusted := make(Weights, len(base))
	for k, v := range base {
		adjusted[k] = v
	}
	for _, o := range overrides {
		if o.matches(conditions) {
			adjusted[o.Component] = o.Weight
		}
	}
	return adjusted
}

// Renormalize keeps only the present components and scales their weights to
// sum to 1.0. Components with no weight entry are dropped. An empty result
// means no component can contribute.
func Renormalize(w Weights, present []models.ScoreComponent) Weights {
	out := make(Weights, len(present))
	var total float64
	for _, c := range present {
		v, ok := w[c]
		if !ok || v <= 0 {
			continue
		}
		out[c] = v
		total += v
	}
	if total == 0 {
		return Weights{}
	}
	for c := range out {
		out[c] /= total
	}
	return out
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}
