package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunAggregatesAllUp(t *testing.T) {
	c := NewChecker()
	c.Register("postgres", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusUp}
	})
	c.Register("redis", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusUp}
	})

	report := c.Run(context.Background())
	if report.Status != StatusUp {
		t.Fatalf("Status = %v, want %v", report.Status, StatusUp)
	}
	if len(report.Components) != 2 {
		t.Fatalf("len(Components) = %d, want 2", len(report.Components))
	}
}

func TestRunReportsDownWhenAnyComponentDown(t *testing.T) {
	c := NewChecker()
	c.Register("postgres", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDown, Message: "connection refused"}
	})
	c.Register("redis", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusUp}
	})

	report := c.Run(context.Background())
	if report.Status != StatusDown {
		t.Fatalf("Status = %v, want %v", report.Status, StatusDown)
	}
}

func TestRunReportsDegradedWhenNoneDown(t *testing.T) {
	c := NewChecker()
	c.Register("cache", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDegraded}
	})

	report := c.Run(context.Background())
	if report.Status != StatusDegraded {
		t.Fatalf("Status = %v, want %v", report.Status, StatusDegraded)
	}
}

func TestLiveHandlerAlwaysOK(t *testing.T) {
	c := NewChecker()
	c.Register("postgres", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDown}
	})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	c.LiveHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadyHandlerReflectsComponentStatus(t *testing.T) {
	c := NewChecker()
	c.Register("postgres", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDown}
	})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestReadyHandlerOKWithNoChecks(t *testing.T) {
	c := NewChecker()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
