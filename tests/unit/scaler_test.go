package unit

import (
	"context"
	"testing"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/clock"
	"github.com/OldStager01/paas-autoscaler/internal/metrics"
	"github.com/OldStager01/paas-autoscaler/internal/scaler"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/cloudwatch"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/paas"
)

type fakeMetricStats struct {
	series map[string][]cloudwatch.Datapoint
	err    error
}

func (f *fakeMetricStats) GetMetricStatistics(ctx context.Context, namespace, metricName, dimName, dimValue string, start, end time.Time, period time.Duration, stat cloudwatch.Stat) ([]cloudwatch.Datapoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.series[metricName], nil
}

// S1/S7 — ELB threshold math and surge-queue override.
func TestElbScaler_ThresholdMath(t *testing.T) {
	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"RequestCount":     {{Value: 50}, {Value: 220}},
		"SurgeQueueLength": {{Value: 0}},
	}}
	s, err := scaler.NewElbScaler("web", cw, metrics.Noop{}, clock.NewMock(time.Now()), 1, 10, "web-elb", "", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Errorf("expected ceil(220/100)=3, got %d", got)
	}
}

func TestElbScaler_SurgeQueueOverride(t *testing.T) {
	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"RequestCount":     {{Value: 10}},
		"SurgeQueueLength": {{Value: 1}},
	}}
	s, err := scaler.NewElbScaler("web", cw, metrics.Noop{}, clock.NewMock(time.Now()), 1, 10, "web-elb", "", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10 {
		t.Errorf("expected surge queue override to force max (10), got %d", got)
	}
}

func TestElbScaler_RequiresElbName(t *testing.T) {
	_, err := scaler.NewElbScaler("web", &fakeMetricStats{}, metrics.Noop{}, clock.NewMock(time.Now()), 1, 10, "", "", 100)
	if err == nil {
		t.Fatal("expected error when elb_name is missing")
	}
}

type fakeQueueDepth struct {
	depths map[string]int
	err    error
}

func (f *fakeQueueDepth) GetQueueDepth(ctx context.Context, queueName string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.depths[queueName], nil
}

// Two additive terms: backlog depth and peak throughput.
func TestSqsScaler_AdditiveTerms(t *testing.T) {
	queues := &fakeQueueDepth{depths: map[string]int{"prod-jobs": 95}}
	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"NumberOfMessagesSent": {{Value: 40}},
	}}
	s, err := scaler.NewSqsScaler("worker", queues, cw, metrics.Noop{}, clock.NewMock(time.Now()), 1, 20, []string{"jobs"}, "prod-", 50, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// ceil(95/50)=2, ceil(40/20)=2, sum=4
	if got != 4 {
		t.Errorf("expected additive total of 4, got %d", got)
	}
}

type fakeAppStats struct {
	stats map[string]paas.InstanceStats
	err   error
}

func (f *fakeAppStats) GetAppStats(ctx context.Context, guid string) (map[string]paas.InstanceStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

// CPU scaler sums instance CPU fractions rather than averaging.
func TestCpuScaler_SumsNotAverages(t *testing.T) {
	client := &fakeAppStats{stats: map[string]paas.InstanceStats{
		"0": {CPUFraction: 0.5},
		"1": {CPUFraction: 0.5},
		"2": {CPUFraction: 0.5},
	}}
	s, err := scaler.NewCpuScaler("worker", "guid-1", client, 1, 10, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// total = 150%, ceil(150/60) = 3
	if got != 3 {
		t.Errorf("expected summed CPU to yield 3, got %d", got)
	}
}

type fakeBacklog struct {
	count int
	err   error
}

func (f *fakeBacklog) ScheduledJobsBacklog(ctx context.Context, lookahead string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

// S8 — scheduled-jobs scaler's local circuit breaker: a failure makes
// every call within the next 60 seconds return 0 without re-querying.
func TestScheduledJobsScaler_CircuitBreaker(t *testing.T) {
	backlog := &fakeBacklog{err: context.DeadlineExceeded}
	clk := clock.NewMock(time.Now())
	s, err := scaler.NewScheduledJobsScaler("worker", backlog, clk, 0, 10, 50, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 on db failure, got %d", got)
	}

	backlog.err = nil
	backlog.count = 1000
	clk.Advance(30 * time.Second)

	got, err = s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("expected breaker still open within 60s, got %d", got)
	}

	clk.Advance(31 * time.Second)
	got, err = s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// scaledItems = 1000*0.3 = 300, ceil(300/50) = 6
	if got != 6 {
		t.Errorf("expected breaker closed after 61s total and backlog honored, got %d", got)
	}
}

// Invariant: clamp applies max first, then min, so a misconfigured
// min > max still yields min (matching base_scalers.py's clamp order).
func TestScheduledJobsScaler_MinGreaterThanMaxClampOrder(t *testing.T) {
	backlog := &fakeBacklog{count: 10000}
	s, err := scaler.NewScheduledJobsScaler("worker", backlog, clock.NewMock(time.Now()), 5, 3, 50, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("expected clamp-to-max-then-min to yield min (5), got %d", got)
	}
}

// S2 — schedule scaler defaults to min outside any configured window,
// and when schedule scaling is globally disabled.
func TestScheduleScaler_DefaultsToMinOutsideWindow(t *testing.T) {
	london, _ := time.LoadLocation("Europe/London")
	outside := time.Date(2026, 7, 30, 3, 0, 0, 0, london)

	s, err := scaler.NewScheduleScaler("web", clock.NewMock(outside.UTC()), 2, 10, []string{"09:00-17:00"}, nil, 0.5, func() bool { return true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Errorf("expected min (2) outside window, got %d", got)
	}
}

func TestScheduleScaler_ScalesDuringWindow(t *testing.T) {
	london, _ := time.LoadLocation("Europe/London")
	inside := time.Date(2026, 7, 30, 12, 0, 0, 0, london)

	s, err := scaler.NewScheduleScaler("web", clock.NewMock(inside.UTC()), 2, 10, []string{"09:00-17:00"}, nil, 0.5, func() bool { return true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("expected ceil(10*0.5)=5 during window, got %d", got)
	}
}

func TestScheduleScaler_DisabledGloballyDefaultsToMin(t *testing.T) {
	london, _ := time.LoadLocation("Europe/London")
	inside := time.Date(2026, 7, 30, 12, 0, 0, 0, london)

	s, err := scaler.NewScheduleScaler("web", clock.NewMock(inside.UTC()), 2, 10, []string{"09:00-17:00"}, nil, 0.5, func() bool { return false })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Errorf("expected min (2) when schedule scaling disabled, got %d", got)
	}
}

func TestScheduleScaler_WeekendUsesWeekendWindows(t *testing.T) {
	london, _ := time.LoadLocation("Europe/London")
	// 2026-08-01 is a Saturday.
	saturday := time.Date(2026, 8, 1, 12, 0, 0, 0, london)

	s, err := scaler.NewScheduleScaler("web", clock.NewMock(saturday.UTC()), 1, 8, []string{"09:00-17:00"}, []string{"10:00-14:00"}, 0.25, func() bool { return true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetDesiredInstanceCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Errorf("expected ceil(8*0.25)=2 inside weekend window, got %d", got)
	}
}
