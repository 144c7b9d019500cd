package scaler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/clock"
)

var londonLocation *time.Location

func init() {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		loc = time.UTC
	}
	londonLocation = loc
}

// ScheduleScaler scales by wall-clock time of day, converted from UTC
// to Europe/London (DST-aware) before matching against configured
// "HH:MM-HH:MM" windows keyed by workdays (Mon-Fri) or weekends
// (Sat-Sun). Outside any matching window, or when schedule scaling is
// globally disabled, it returns min_instances.
type ScheduleScaler struct {
	appName  string
	clock    clock.Clock
	min, max int

	workdays    []string
	weekends    []string
	scaleFactor float64
	enabled     func() bool
}

func NewScheduleScaler(appName string, clk clock.Clock, min, max int, workdays, weekends []string, scaleFactor float64, enabled func() bool) (*ScheduleScaler, error) {
	if len(workdays) == 0 && len(weekends) == 0 {
		return nil, fmt.Errorf("%w: schedule scaler requires at least one window", ErrNotConfigured)
	}
	if scaleFactor <= 0 || scaleFactor > 1 {
		scaleFactor = 0.1
	}
	return &ScheduleScaler{
		appName:     appName,
		clock:       clk,
		min:         min,
		max:         max,
		workdays:    workdays,
		weekends:    weekends,
		scaleFactor: scaleFactor,
		enabled:     enabled,
	}, nil
}

func (s *ScheduleScaler) Name() string { return "schedule:" + s.appName }

func (s *ScheduleScaler) GetDesiredInstanceCount(_ context.Context) (int, error) {
	if !s.enabled() || !s.shouldScaleOnSchedule() {
		return clamp(s.min, s.min, s.max), nil
	}
	raw := ceilDiv(float64(s.max)*s.scaleFactor, 1)
	return clamp(raw, s.min, s.max), nil
}

func (s *ScheduleScaler) shouldScaleOnSchedule() bool {
	now := s.clock.Now().In(londonLocation)
	windows := s.workdays
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		windows = s.weekends
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	for _, w := range windows {
		start, end, ok := parseWindow(w)
		if !ok {
			continue
		}
		if nowMinutes >= start && nowMinutes <= end {
			return true
		}
	}
	return false
}

// parseWindow parses a "HH:MM-HH:MM" range into minutes-since-midnight.
func parseWindow(window string) (start, end int, ok bool) {
	parts := strings.SplitN(window, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok1 := parseHHMM(parts[0])
	end, ok2 := parseHHMM(parts[1])
	return start, end, ok1 && ok2
}

func parseHHMM(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h*60 + m, true
}
