package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DateLayout is the day format used by traffic endpoints.
const DateLayout = "2006-01-02"

// StatsService reads traffic statistics.
type StatsService struct{ c Caller }

// Summary returns the dashboard totals.
func (s *StatsService) Summary(ctx context.Context) (TrafficSummary, error) {
	return get[TrafficSummary](ctx, s.c, "stats/summary", nil)
}

// Daily returns summed traffic per day for the last days days. Values
// below 1 use the panel default of 30.
func (s *StatsService) Daily(ctx context.Context, days int) ([]DailyTraffic, error) {
	if days < 1 {
		days = 30
	}
	out, err := get[[]DailyTraffic](ctx, s.c, "stats/daily", url.Values{"days": {strconv.Itoa(days)}})
	if out == nil {
		out = []DailyTraffic{}
	}
	return out, err
}

// DateRange bounds a traffic query. Zero times are left open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) values() url.Values {
	q := url.Values{}
	if !r.Start.IsZero() {
		q.Set("start_date", r.Start.Format(DateLayout))
	}
	if !r.End.IsZero() {
		q.Set("end_date", r.End.Format(DateLayout))
	}
	return q
}

// ClientTraffic returns the daily rows of one client.
func (s *StatsService) ClientTraffic(ctx context.Context, clientID uint, r DateRange) ([]TrafficStat, error) {
	return s.rows(ctx, item("stats/client", clientID), r)
}

// InboundTraffic returns the daily rows of one inbound. Admin only.
func (s *StatsService) InboundTraffic(ctx context.Context, inboundID uint, r DateRange) ([]TrafficStat, error) {
	return s.rows(ctx, item("stats/inbound", inboundID), r)
}

func (s *StatsService) rows(ctx context.Context, path string, r DateRange) ([]TrafficStat, error) {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return nil, fmt.Errorf("end date %s is before start date %s", r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	out, err := get[[]TrafficStat](ctx, s.c, path, r.values())
	if out == nil {
		out = []TrafficStat{}
	}
	return out, err
}

// SystemService controls the panel host and its Xray process.
type SystemService struct{ c Caller }

func (s *SystemService) Status(ctx context.Context) (SystemStatus, error) {
	return get[SystemStatus](ctx, s.c, "system/status", nil)
}

// Reload applies the stored configuration to Xray.
func (s *SystemService) Reload(ctx context.Context) (string, error) {
	return exec(ctx, s.c, http.MethodPost, "system/reload", nil)
}

// Restart restarts the Xray process. Admin only.
func (s *SystemService) Restart(ctx context.Context) (string, error) {
	return exec(ctx, s.c, http.MethodPost, "system/restart", nil)
}

// Config returns the generated Xray configuration. Admin only.
func (s *SystemService) Config(ctx context.Context) (json.RawMessage, error) {
	return get[json.RawMessage](ctx, s.c, "system/config", nil)
}

// CheckPort reports whether port is free on the panel host.
func (s *SystemService) CheckPort(ctx context.Context, port int) (PortCheck, error) {
	if port < 1 || port > 65535 {
		return PortCheck{}, fmt.Errorf("port %d out of range", port)
	}
	return get[PortCheck](ctx, s.c, "system/check-port", url.Values{"port": {strconv.Itoa(port)}})
}

func (s *SystemService) CheckUpdate(ctx context.Context) (UpdateInfo, error) {
	return get[UpdateInfo](ctx, s.c, "system/check-update", nil)
}

// AuditFilter narrows an audit query. Zero fields are not sent.
type AuditFilter struct {
	ListOptions
	UserID   uint
	Action   string
	Resource string
}

func (f AuditFilter) values() url.Values {
	q := f.ListOptions.Values()
	if f.UserID != 0 {
		q.Set("user_id", strconv.FormatUint(uint64(f.UserID), 10))
	}
	if f.Action != "" {
		q.Set("action", f.Action)
	}
	if f.Resource != "" {
		q.Set("resource", f.Resource)
	}
	return q
}

// AuditService reads the audit trail.
type AuditService struct{ c Caller }

func (s *AuditService) List(ctx context.Context, f AuditFilter) (*Page[AuditLog], error) {
	return list[AuditLog](ctx, s.c, "audits", f.values())
}
