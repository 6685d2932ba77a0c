//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tulflow/internal/platform/store"
	"tulflow/internal/services/harvest/domain"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port())
}

func TestLedger_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{AppName: "tulflow-ledger-it", PG: store.PGConfig{Enabled: true, URL: startPostgres(t)}})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = st.Close(ctx) }()

	if err := EnsureSchema(ctx, st.PG); err != nil {
		t.Fatal(err)
	}
	// twice is fine
	if err := EnsureSchema(ctx, st.PG); err != nil {
		t.Fatal(err)
	}

	r := NewPG().Bind(st.PG)
	started := time.Now().UTC().Truncate(time.Millisecond)
	run := domain.Run{
		ID: "run-1", Profile: "alma", DagID: "alma_oai", Timestamp: "2024-01-02",
		Window: domain.Window{From: "2024-01-01T00:00:00Z"}, Status: domain.StatusRunning, StartedAt: started,
	}
	if err := r.StartRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := r.FinishSet(ctx, run.ID, domain.SetRow{Set: "a", Status: domain.StatusOK, Counts: domain.RunCounts{Updated: 2}}); err != nil {
		t.Fatal(err)
	}
	if err := r.FinishSet(ctx, run.ID, domain.SetRow{Set: "b", Status: domain.StatusError, Error: "boom"}); err != nil {
		t.Fatal(err)
	}
	run.Status, run.Counts, run.Error = domain.StatusPartial, domain.RunCounts{Updated: 2}, "boom"
	if err := r.FinishRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := r.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusPartial || got.Counts.Updated != 2 || got.FinishedAt == nil || len(got.Sets) != 2 {
		t.Fatalf("run = %+v", got)
	}
	if got.Window.From != "2024-01-01T00:00:00Z" || got.Window.Until != "" {
		t.Fatalf("window = %+v", got.Window)
	}

	runs, total, err := r.ListRuns(ctx, 10, 0)
	if err != nil || total != 1 || len(runs) != 1 {
		t.Fatalf("runs=%d total=%d err=%v", len(runs), total, err)
	}

	if _, ok, err := r.Marker(ctx, "alma"); ok || err != nil {
		t.Fatalf("marker before save: ok=%v err=%v", ok, err)
	}
	until := started.Add(time.Hour)
	if err := r.SaveMarker(ctx, domain.Marker{Profile: "alma", LastFrom: started, LastUntil: until, Counts: domain.RunCounts{Updated: 2}}); err != nil {
		t.Fatal(err)
	}
	m, ok, err := r.Marker(ctx, "alma")
	if err != nil || !ok || !m.LastUntil.Equal(until) || m.Counts.Updated != 2 {
		t.Fatalf("marker = %+v ok=%v err=%v", m, ok, err)
	}
}
