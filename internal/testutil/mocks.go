package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
)

// MockMetricRepository is a mock implementation of metric.Repository
type MockMetricRepository struct {
	mu         sync.Mutex
	Metrics    []*metric.Metric
	PutError   error
	QueryError error
}

func NewMockMetricRepository() *MockMetricRepository {
	return &MockMetricRepository{}
}

func (m *MockMetricRepository) Put(ctx context.Context, s *metric.Metric) error {
	return m.PutBatch(ctx, []*metric.Metric{s})
}

func (m *MockMetricRepository) PutBatch(ctx context.Context, metrics []*metric.Metric) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range metrics {
		replaced := false
		for i, existing := range m.Metrics {
			if existing.AccountID == s.AccountID && existing.MetricType == s.MetricType && existing.Timestamp.Equal(s.Timestamp) {
				m.Metrics[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			m.Metrics = append(m.Metrics, s)
		}
	}
	return nil
}

func (m *MockMetricRepository) Query(ctx context.Context, q metric.Query) ([]*metric.Metric, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*metric.Metric
	for _, s := range m.Metrics {
		if s.AccountID != q.AccountID || s.MetricType != q.MetricType {
			continue
		}
		if !q.Start.IsZero() && s.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && s.Timestamp.After(q.End) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Ascending {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MockMetricRepository) ListTypes(ctx context.Context, accountID string) ([]string, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	types := []string{}
	for _, s := range m.Metrics {
		if s.AccountID == accountID && !seen[s.MetricType] {
			seen[s.MetricType] = true
			types = append(types, s.MetricType)
		}
	}
	sort.Strings(types)
	return types, nil
}

// MockCostRepository is a mock implementation of cost.Repository
type MockCostRepository struct {
	mu               sync.Mutex
	Daily            map[string]*cost.DailyRecord
	Forecasts        []*cost.Forecast
	PutError         error
	QueryError       error
	PutForecastError error
}

func NewMockCostRepository() *MockCostRepository {
	return &MockCostRepository{Daily: make(map[string]*cost.DailyRecord)}
}

func (m *MockCostRepository) PutDaily(ctx context.Context, r *cost.DailyRecord) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Daily[r.AccountID+"#"+r.Date] = r
	return nil
}

func (m *MockCostRepository) QueryDaily(ctx context.Context, accountID, startDate, endDate string) ([]*cost.DailyRecord, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*cost.DailyRecord{}
	for _, r := range m.Daily {
		if r.AccountID == accountID && r.Date >= startDate && r.Date <= endDate {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MockCostRepository) PutForecasts(ctx context.Context, forecasts []*cost.Forecast) error {
	if m.PutForecastError != nil {
		return m.PutForecastError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Forecasts = append(m.Forecasts, forecasts...)
	return nil
}

func (m *MockCostRepository) ListForecasts(ctx context.Context, accountID string, limit int) ([]*cost.Forecast, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*cost.Forecast{}
	for _, f := range m.Forecasts {
		if f.AccountID == accountID {
			out = append(out, f)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockAnomalyRepository is a mock implementation of anomaly.Repository
type MockAnomalyRepository struct {
	mu          sync.Mutex
	Anomalies   map[string]*anomaly.Anomaly
	PutError    error
	GetError    error
	UpdateError error
}

func NewMockAnomalyRepository() *MockAnomalyRepository {
	return &MockAnomalyRepository{Anomalies: make(map[string]*anomaly.Anomaly)}
}

func (m *MockAnomalyRepository) Put(ctx context.Context, a *anomaly.Anomaly) error {
	return m.PutBatch(ctx, []*anomaly.Anomaly{a})
}

func (m *MockAnomalyRepository) PutBatch(ctx context.Context, anomalies []*anomaly.Anomaly) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range anomalies {
		cp := *a
		m.Anomalies[a.ID] = &cp
	}
	return nil
}

func (m *MockAnomalyRepository) Get(ctx context.Context, accountID, id string) (*anomaly.Anomaly, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Anomalies[id]
	if !ok || a.AccountID != accountID {
		return nil, anomaly.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAnomalyRepository) Update(ctx context.Context, a *anomaly.Anomaly) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Anomalies[a.ID]
	if !ok || existing.AccountID != a.AccountID {
		return anomaly.ErrNotFound
	}
	cp := *a
	m.Anomalies[a.ID] = &cp
	return nil
}

func (m *MockAnomalyRepository) List(ctx context.Context, accountID string, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	if m.GetError != nil {
		return nil, 0, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*anomaly.Anomaly{}
	for _, a := range m.Anomalies {
		if a.AccountID != accountID {
			continue
		}
		if filter.MetricType != "" && a.MetricType != filter.MetricType {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].DetectedAt.After(out[j].DetectedAt)
		}
		return out[i].ID < out[j].ID
	})

	total := int64(len(out))
	if offset >= len(out) {
		return []*anomaly.Anomaly{}, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *MockAnomalyRepository) CountByStatusAndSeverity(ctx context.Context, accountID string) (map[string]map[string]int, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[string]map[string]int{}
	for _, a := range m.Anomalies {
		if a.AccountID != accountID {
			continue
		}
		if counts[a.Status] == nil {
			counts[a.Status] = map[string]int{}
		}
		counts[a.Status][a.Severity]++
	}
	return counts, nil
}

// MockAlertRepository is a mock implementation of alert.Repository
type MockAlertRepository struct {
	mu          sync.Mutex
	Alerts      map[string]*alert.Alert
	PutError    error
	GetError    error
	UpdateError error
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{Alerts: make(map[string]*alert.Alert)}
}

func (m *MockAlertRepository) Put(ctx context.Context, a *alert.Alert) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.Alerts[a.ID] = &cp
	return nil
}

func (m *MockAlertRepository) Get(ctx context.Context, accountID, id string) (*alert.Alert, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Alerts[id]
	if !ok || a.AccountID != accountID {
		return nil, alert.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAlertRepository) Update(ctx context.Context, a *alert.Alert) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Alerts[a.ID]; !ok {
		return alert.ErrNotFound
	}
	cp := *a
	m.Alerts[a.ID] = &cp
	return nil
}

func (m *MockAlertRepository) List(ctx context.Context, accountID string, filter alert.Filter, limit int) ([]*alert.Alert, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*alert.Alert{}
	for _, a := range m.Alerts {
		if a.AccountID != accountID {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockCostCollector is a mock implementation of cost.Collector
type MockCostCollector struct {
	mu     sync.Mutex
	Record func(accountID string, day time.Time) *cost.DailyRecord
	Err    error
	Calls  int
}

func (m *MockCostCollector) FetchDailyCosts(ctx context.Context, accountID string, day time.Time) (*cost.DailyRecord, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Record != nil {
		return m.Record(accountID, day), nil
	}
	return &cost.DailyRecord{
		AccountID: accountID,
		Date:      day.UTC().Format(cost.DateLayout),
		Currency:  cost.DefaultCurrency,
		Breakdown: []cost.ServiceCost{},
	}, nil
}

// MockMetricCollector is a mock implementation of metric.Collector
type MockMetricCollector struct {
	mu      sync.Mutex
	Samples []*metric.Metric
	Err     error
	Calls   int
}

func (m *MockMetricCollector) FetchLatest(ctx context.Context, accountID string) ([]*metric.Metric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*metric.Metric, 0, len(m.Samples))
	for _, s := range m.Samples {
		cp := *s
		cp.AccountID = accountID
		out = append(out, &cp)
	}
	return out, nil
}

// MockPublisher records published alerts
type MockPublisher struct {
	mu        sync.Mutex
	Published []*alert.Alert
	Err       error
}

func (m *MockPublisher) Publish(ctx context.Context, a *alert.Alert) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, a)
	return nil
}

// Count returns the number of published alerts
func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}

// MockCompleter is a mock implementation of insight.Completer
type MockCompleter struct {
	Reply      string
	Err        error
	ModelName  string
	LastPrompt string
	Calls      int
}

func (m *MockCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.Calls++
	m.LastPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

func (m *MockCompleter) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}
