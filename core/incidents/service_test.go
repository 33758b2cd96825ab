package incidents

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"incident-desk/config"
	"incident-desk/core/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.AppConfig{DBDriver: config.DriverSQLite, DBURL: filepath.Join(t.TempDir(), "svc.db")}
	db, err := store.NewDB(cfg, nil)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return NewService(store.NewIncidentsStore(db), nil)
}

func TestCreateTrimsAndStartsPending(t *testing.T) {
	svc := newService(t)
	inc, err := svc.Create(context.Background(), NewIncident{Title: "  Disk full ", Description: " root ", Priority: " High "}, ChannelForm)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inc.ID == 0 || inc.Title != "Disk full" || inc.Description != "root" || inc.Priority != "High" {
		t.Fatalf("unexpected incident %+v", inc)
	}
	if inc.Status != store.StatusPending {
		t.Fatalf("expected Pending, got %s", inc.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newService(t)
	cases := []struct {
		name  string
		in    NewIncident
		ch    Channel
		field string
	}{
		{"empty title", NewIncident{Title: "  ", Description: "d", Priority: "Low"}, ChannelForm, "title"},
		{"long title", NewIncident{Title: strings.Repeat("x", MaxTitleLen+1), Description: "d", Priority: "Low"}, ChannelAPI, "title"},
		{"empty description", NewIncident{Title: "t", Description: "", Priority: "Low"}, ChannelAPI, "description"},
		{"form without priority", NewIncident{Title: "t", Description: "d"}, ChannelForm, "priority"},
		{"long priority", NewIncident{Title: "t", Description: "d", Priority: strings.Repeat("p", MaxPriorityLen+1)}, ChannelForm, "priority"},
	}
	for _, tc := range cases {
		_, err := svc.Create(context.Background(), tc.in, tc.ch)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if vErr.Field != tc.field {
			t.Fatalf("%s: expected field %s, got %s", tc.name, tc.field, vErr.Field)
		}
	}
	items, _ := svc.List(context.Background(), "")
	if len(items) != 0 {
		t.Fatalf("invalid input created %d incidents", len(items))
	}
}

func TestCreateTitleLimitCountsCharacters(t *testing.T) {
	svc := newService(t)
	title := strings.Repeat("é", MaxTitleLen)
	if _, err := svc.Create(context.Background(), NewIncident{Title: title, Description: "d", Priority: "Low"}, ChannelForm); err != nil {
		t.Fatalf("expected %d multibyte characters to be accepted: %v", MaxTitleLen, err)
	}
}

func TestAPIChannelDefaultsPriority(t *testing.T) {
	svc := newService(t)
	inc, err := svc.Create(context.Background(), NewIncident{Title: "t", Description: "d"}, ChannelAPI)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inc.Priority != DefaultPriority {
		t.Fatalf("expected default priority %s, got %s", DefaultPriority, inc.Priority)
	}
}

func TestNotFoundIsTranslated(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.Get(ctx, 77); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ToggleStatus(ctx, 77); !errors.Is(err, ErrNotFound) {
		t.Fatalf("toggle: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, 77); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestSummaryCountsByStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	var ids []int64
	for _, title := range []string{"a", "b", "c"} {
		inc, err := svc.Create(ctx, NewIncident{Title: title, Description: "d", Priority: "Low"}, ChannelForm)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, inc.ID)
	}
	if _, err := svc.ToggleStatus(ctx, ids[0]); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	items, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sum := Summarize(items)
	if sum.Total != 3 || sum.Pending != 2 || sum.Resolved != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestListSearchIsTrimmed(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, NewIncident{Title: "VPN down", Description: "d", Priority: "Critical"}, ChannelForm)
	_, _ = svc.Create(ctx, NewIncident{Title: "Printer", Description: "d", Priority: "Low"}, ChannelForm)
	items, err := svc.List(ctx, "  vpn ")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Title != "VPN down" {
		t.Fatalf("unexpected search result %+v", items)
	}
}
