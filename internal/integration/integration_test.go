package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"propops-service/internal/app"
	"propops-service/internal/domain"
	pgstore "propops-service/internal/infra/postgres"
	pgmigrations "propops-service/internal/infra/postgres/migrations"
	redisinfra "propops-service/internal/infra/redis"
)

func TestSurveyAndSOPEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	seedFixtures(t, ctx, pool)

	store := pgstore.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	templates := redisinfra.NewTemplateCache(redisClient, store, 5*time.Minute)

	surveys := app.NewSurveyService(templates, store, store, store, nil)
	sop := app.NewSOPService(store, store, store, nil)
	taskSvc := app.NewTaskService(store, nil)

	// Survey: draft -> submit derives a task and scores the visit.
	sub, err := surveys.CreateDraft(ctx, domain.Submission{
		TemplateID: "tpl-1",
		PropertyID: "prop-1",
		VisitDate:  time.Now().UTC(),
		Responses: []domain.Response{
			{QuestionID: "q1", Score: 3, IssueDescription: "stained carpet"},
			{QuestionID: "q2", Score: 10},
		},
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	tree, tasks, err := surveys.Submit(ctx, sub.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected one derived task, got %d", len(tasks))
	}
	if tasks[0].AssignedTo != "mgr-1" || tasks[0].RepeatIssue {
		t.Fatalf("unexpected task %+v", tasks[0])
	}
	if tree.Overall <= 0 {
		t.Fatalf("expected a positive overall score, got %v", tree.Overall)
	}

	// Closing the task marks the next low score for the pair as a repeat.
	if _, err := taskSvc.Transition(ctx, tasks[0].ID, domain.TaskClosed); err != nil {
		t.Fatalf("close task: %v", err)
	}
	again, err := surveys.CreateDraft(ctx, domain.Submission{
		TemplateID: "tpl-1",
		PropertyID: "prop-1",
		VisitDate:  time.Now().UTC(),
		Responses:  []domain.Response{{QuestionID: "q1", Score: 2, IssueDescription: "carpet again"}},
	})
	if err != nil {
		t.Fatalf("create second draft: %v", err)
	}
	_, tasks, err = surveys.Submit(ctx, again.ID)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("second submit: tasks=%d err=%v", len(tasks), err)
	}
	if !tasks[0].RepeatIssue {
		t.Fatalf("expected repeat issue after closed prior")
	}

	// SOP: checking both items completes the period; unchecking reverts.
	if _, err := sop.ToggleItem(ctx, "asg-1", "item-1", true, ""); err != nil {
		t.Fatalf("toggle item-1: %v", err)
	}
	completion, err := sop.ToggleItem(ctx, "asg-1", "item-2", true, "")
	if err != nil {
		t.Fatalf("toggle item-2: %v", err)
	}
	if completion.Status != domain.CompletionCompleted {
		t.Fatalf("expected completed, got %s", completion.Status)
	}
	completion, err = sop.ToggleItem(ctx, "asg-1", "item-1", false, "")
	if err != nil {
		t.Fatalf("uncheck: %v", err)
	}
	if completion.Status != domain.CompletionPending || completion.CompletedAt != nil {
		t.Fatalf("expected revert to pending, got %+v", completion)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, pgURL string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(pgURL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("init migrator: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedFixtures(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO properties (id, name, manager_id) VALUES ($1, $2, $3)`,
			[]any{"prop-1", "Harbor House", "mgr-1"}},
		{`INSERT INTO survey_templates (id, name, version, active) VALUES ($1, $2, 1, TRUE)`,
			[]any{"tpl-1", "Visit audit"}},
		{`INSERT INTO categories (id, template_id, name, weight, sort_order) VALUES ($1, $2, $3, $4, $5)`,
			[]any{"c1", "tpl-1", "Rooms", 2.0, 1}},
		{`INSERT INTO categories (id, template_id, name, weight, sort_order) VALUES ($1, $2, $3, $4, $5)`,
			[]any{"c2", "tpl-1", "F&B", 1.0, 2}},
		{`INSERT INTO subcategories (id, category_id, name, sort_order) VALUES ($1, $2, $3, $4)`,
			[]any{"s1", "c1", "", 1}},
		{`INSERT INTO subcategories (id, category_id, name, sort_order) VALUES ($1, $2, $3, $4)`,
			[]any{"s2", "c2", "", 1}},
		{`INSERT INTO questions (id, subcategory_id, text, scale_min, scale_max, required, sort_order)
		  VALUES ($1, $2, $3, $4, $5, TRUE, 1)`,
			[]any{"q1", "s1", "Room cleanliness", 1, 10}},
		{`INSERT INTO questions (id, subcategory_id, text, scale_min, scale_max, required, sort_order)
		  VALUES ($1, $2, $3, $4, $5, FALSE, 1)`,
			[]any{"q2", "s2", "Breakfast quality", 1, 10}},
		{`INSERT INTO checklists (id, name) VALUES ($1, $2)`,
			[]any{"cl-1", "Morning opening"}},
		{`INSERT INTO checklist_items (id, checklist_id, text, sort_order) VALUES ($1, $2, $3, $4)`,
			[]any{"item-1", "cl-1", "Unlock terrace", 1}},
		{`INSERT INTO checklist_items (id, checklist_id, text, sort_order) VALUES ($1, $2, $3, $4)`,
			[]any{"item-2", "cl-1", "Check fridge temps", 2}},
		{`INSERT INTO assignments (id, checklist_id, user_id, property_id, frequency, deadline_time, deadline_day)
		  VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			[]any{"asg-1", "cl-1", "user-1", "prop-1", "daily", "17:00", 0}},
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt.sql, stmt.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("TESTCONTAINERS_DISABLED") != "" {
		t.Skip("testcontainers disabled via env")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "propops", "POSTGRES_PASSWORD": "propopspass", "POSTGRES_DB": "propopsdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://propops:propopspass@%s:%s/propopsdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	addr := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return addr, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(rawURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}
