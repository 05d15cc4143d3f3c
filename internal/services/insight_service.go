package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/cloudops/internal/cache"
	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/domain/insight"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
)

const (
	insightCostDays      = 7
	insightMetricSamples = 10
	fallbackModel        = "fallback"
)

const insightSystemPrompt = "You are a cloud cost optimization expert. Reply with JSON only."

var fallbackInsight = insight.Insight{
	Insights: "Compute usually dominates spend. Review the top services in the cost breakdown " +
		"and compare week over week trends before changing capacity.",
	Recommendations: []string{
		"Use reserved or savings-plan pricing for steady EC2 workloads",
		"Move infrequently accessed S3 data to cheaper storage classes with lifecycle rules",
		"Right-size RDS instances from observed CPU and memory utilization",
	},
	Concerns: []string{},
}

// InsightService implements insight.Service
type InsightService struct {
	costRepo   cost.Repository
	metricRepo metric.Repository
	completer  insight.Completer
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

// NewInsightService creates a new insight service. completer may be nil, in
// which case every call returns the static fallback.
func NewInsightService(
	costRepo cost.Repository,
	metricRepo metric.Repository,
	completer insight.Completer,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *InsightService {
	if c == nil {
		c = cache.Noop{}
	}
	return &InsightService{
		costRepo:   costRepo,
		metricRepo: metricRepo,
		completer:  completer,
		cache:      c,
		cacheTTL:   cacheTTL,
		logger:     log.WithComponent("insight-service"),
		now:        time.Now,
	}
}

type costDigest struct {
	Date      string             `json:"date"`
	TotalCost string             `json:"totalCost"`
	Breakdown []cost.ServiceCost `json:"breakdown"`
}

type metricDigest struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type modelReply struct {
	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
	Concerns        []string `json:"concerns"`
}

// Generate asks the language model for insights over the last week of costs
// and the latest metric samples. Any failure yields the static fallback, so
// the call only errors when the stored data cannot be read.
func (s *InsightService) Generate(ctx context.Context, accountID string) (*insight.Insight, error) {
	now := s.now().UTC()
	key := cache.Key("insights", accountID, now.Format("2006-01-02T15"))

	var cached insight.Insight
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	prompt, err := s.buildPrompt(ctx, accountID, now)
	if err != nil {
		return nil, err
	}

	if s.completer == nil {
		return s.fallback(accountID, now), nil
	}

	reply, err := s.completer.Complete(ctx, insightSystemPrompt, prompt)
	if err != nil {
		s.logger.WarnWithErr(err, "Insight generation failed, returning fallback")
		return s.fallback(accountID, now), nil
	}

	result := &insight.Insight{
		AccountID:       accountID,
		Model:           s.completer.Model(),
		GeneratedAt:     now,
		Recommendations: []string{},
		Concerns:        []string{},
	}

	var parsed modelReply
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &parsed); err != nil || parsed.Analysis == "" {
		result.Insights = reply
	} else {
		result.Insights = parsed.Analysis
		if parsed.Recommendations != nil {
			result.Recommendations = parsed.Recommendations
		}
		if parsed.Concerns != nil {
			result.Concerns = parsed.Concerns
		}
	}

	if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
		s.logger.WarnWithErr(err, "Failed to cache insights")
	}
	return result, nil
}

func (s *InsightService) buildPrompt(ctx context.Context, accountID string, now time.Time) (string, error) {
	end := now.Truncate(oneDay)
	records, err := s.costRepo.QueryDaily(ctx, accountID,
		end.Add(-(insightCostDays-1)*oneDay).Format(cost.DateLayout), end.Format(cost.DateLayout))
	if err != nil {
		return "", err
	}

	costs := make([]costDigest, 0, len(records))
	for _, r := range records {
		costs = append(costs, costDigest{Date: r.Date, TotalCost: r.TotalCost.StringFixed(2), Breakdown: r.Breakdown})
	}

	types, err := s.metricRepo.ListTypes(ctx, accountID)
	if err != nil {
		return "", err
	}
	samples := []metricDigest{}
	for _, t := range types {
		if len(samples) >= insightMetricSamples {
			break
		}
		latest, err := s.metricRepo.Query(ctx, metric.Query{AccountID: accountID, MetricType: t, Limit: 1})
		if err != nil {
			return "", err
		}
		for _, m := range latest {
			samples = append(samples, metricDigest{Type: m.MetricType, Value: m.Value, Unit: m.Unit})
		}
	}

	costJSON, _ := json.MarshalIndent(costs, "", "  ")
	metricJSON, _ := json.MarshalIndent(samples, "", "  ")

	var b strings.Builder
	b.WriteString("Analyze this AWS cloud data and provide actionable insights.\n\n")
	fmt.Fprintf(&b, "COST DATA (last %d days):\n%s\n\n", insightCostDays, costJSON)
	fmt.Fprintf(&b, "METRICS DATA (recent):\n%s\n\n", metricJSON)
	b.WriteString("Provide a brief analysis of the cost trend in 2-3 sentences, the top 3 specific " +
		"recommendations to reduce cost, and any anomalies or concerns.\n")
	b.WriteString(`Respond as JSON: {"analysis": "...", "recommendations": ["..."], "concerns": ["..."]}`)
	return b.String(), nil
}

func (s *InsightService) fallback(accountID string, now time.Time) *insight.Insight {
	out := fallbackInsight
	out.AccountID = accountID
	out.Model = fallbackModel
	out.Fallback = true
	out.GeneratedAt = now
	out.Recommendations = append([]string(nil), fallbackInsight.Recommendations...)
	out.Concerns = []string{}
	return &out
}

// stripCodeFence removes a surrounding markdown code fence from a model reply
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
