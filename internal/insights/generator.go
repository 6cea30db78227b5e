package insights

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/metrics"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/textgen"
)

// DefaultTimeout bounds a single text generation call
const DefaultTimeout = 30 * time.Second

const fallbackConfidence = 0.3

// Request carries everything needed to produce one insight
type Request struct {
	UserID     string
	Type       models.InsightType
	Reason     string
	Entries    []models.TrackingEntry
	Trends     []models.HealthTrend
	Alerts     []models.UserAlert
	Conditions []models.UserCondition
	From       time.Time
	To         time.Time
}

// Generator produces insights. It never returns an error: any text
// generation or parse failure yields the default payload.
type Generator struct {
	textgen textgen.Generator
	timeout time.Duration
	now     func() time.Time
}

// NewGenerator creates a Generator. A zero timeout uses DefaultTimeout.
func NewGenerator(tg textgen.Generator, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if tg == nil {
		tg = textgen.Disabled{}
	}
	return &Generator{textgen: tg, timeout: timeout, now: time.Now}
}

// Generate builds the prompt, calls the text generator once and parses the reply
func (g *Generator) Generate(ctx context.Context, req Request) models.HealthInsight {
	start := g.now()
	log := logger.Ctx(ctx).With(logger.String("insight_type", string(req.Type)))

	summary := Summarize(req.Entries, req.Trends, req.From, req.To)
	summary.InsightType = req.Type
	summary.Alerts = req.Alerts
	summary.Conditions = req.Conditions
	summary.TriggerReason = req.Reason

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res := g.textgen.Generate(callCtx, BuildPrompt(summary))

	payload := DefaultPayload()
	fallback := true
	if !res.Success {
		log.Warn("text generation failed, using default insight",
			logger.String("provider", g.textgen.Name()),
			logger.String("reason", res.Error),
		)
	} else if parsed, ok := Parse(res.Content); ok {
		payload = parsed
		fallback = false
	} else {
		log.Warn("could not parse text generation response, using default insight",
			logger.String("provider", g.textgen.Name()),
			logger.Int("response_length", len(res.Content)),
		)
	}

	metrics.InsightsGenerated.WithLabelValues(string(req.Type), strconv.FormatBool(fallback)).Inc()

	confidence := fallbackConfidence
	if !fallback {
		confidence = math.Min(0.9, 0.5+float64(len(req.Entries))/100)
	}

	alerts := req.Alerts
	if alerts == nil {
		alerts = []models.UserAlert{}
	}

	return models.HealthInsight{
		UserID:      req.UserID,
		InsightType: req.Type,
		Insights:    payload,
		Alerts:      alerts,
		Metadata: models.InsightMetadata{
			ProcessingTimeMs:   g.now().Sub(start).Milliseconds(),
			DataPointsAnalyzed: len(req.Entries),
			Confidence:         confidence,
			TriggerReason:      req.Reason,
			Model:              res.Model,
			Fallback:           fallback,
		},
		GeneratedAt: g.now(),
	}
}
