package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"propops-service/internal/app"
	"propops-service/internal/config"
	"propops-service/internal/domain"
	"propops-service/internal/infra/memory"
	pgstore "propops-service/internal/infra/postgres"
	redisinfra "propops-service/internal/infra/redis"
	transport "propops-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the property-operations server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backingStore bundles every repository the services need; both the
// in-memory store and the Postgres store satisfy it.
type backingStore interface {
	app.TemplateRepository
	app.SubmissionRepository
	app.TaskRepository
	app.PropertyRepository
	app.ChecklistRepository
	app.AssignmentRepository
	app.CompletionRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var store backingStore
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		store = pgstore.NewStore(pool)
	} else {
		store = seededMemoryStore()
	}

	templateTTL := config.TTLDuration(cfg.Templates.TTL, 10*time.Minute)
	var templates app.TemplateRepository
	if redisClient != nil {
		templates = redisinfra.NewTemplateCache(redisClient, store, templateTTL)
	} else {
		templates = memory.NewTemplateCache(store, templateTTL)
	}

	var boards app.BoardRepository
	if redisClient != nil {
		boards = redisinfra.NewBoardStore(redisClient, redisTTL)
	} else {
		boards = memory.NewBoardStore()
	}
	hub := app.NewBoardHub(boards)

	surveys := app.NewSurveyService(templates, store, store, store, hub)
	sop := app.NewSOPService(store, store, store, hub)
	tasks := app.NewTaskService(store, hub)

	handler := transport.NewHandler(surveys, sop, tasks)
	wsHandler := transport.NewWSHandler(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting propops service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seededMemoryStore provides a minimal data set for demo runs without a
// database.
func seededMemoryStore() *memory.Store {
	store := memory.NewStore()
	store.PutProperty(domain.Property{ID: "prop-1", Name: "Harbor House", ManagerID: "mgr-1"})
	_ = store.SaveTemplate(context.Background(), domain.SurveyTemplate{
		ID:      "tpl-1",
		Name:    "Monthly visit audit",
		Version: 1,
		Active:  true,
		Categories: []domain.Category{
			{
				ID: "cat-rooms", Name: "Rooms", Weight: 2, SortOrder: 1,
				Subcategories: []domain.Subcategory{{
					ID: "sub-rooms", SortOrder: 1,
					Questions: []domain.Question{
						{ID: "q-clean", Text: "Room cleanliness", ScaleMin: 1, ScaleMax: 10, Required: true, SortOrder: 1},
						{ID: "q-maint", Text: "Maintenance state", ScaleMin: 1, ScaleMax: 10, SortOrder: 2},
					},
				}},
			},
			{
				ID: "cat-fnb", Name: "Food & Beverage", Weight: 1, SortOrder: 2,
				Subcategories: []domain.Subcategory{{
					ID: "sub-fnb", SortOrder: 1,
					Questions: []domain.Question{
						{ID: "q-breakfast", Text: "Breakfast quality", ScaleMin: 1, ScaleMax: 10, SortOrder: 1},
					},
				}},
			},
		},
	})
	store.PutChecklist(domain.Checklist{
		ID:   "cl-opening",
		Name: "Morning opening",
		Items: []domain.ChecklistItem{
			{ID: "item-terrace", Text: "Unlock terrace", SortOrder: 1},
			{ID: "item-menus", Text: "Wipe menus", SortOrder: 2},
			{ID: "item-fridge", Text: "Check fridge temps", SortOrder: 3},
		},
	})
	store.PutAssignment(domain.Assignment{
		ID:          "asg-1",
		ChecklistID: "cl-opening",
		UserID:      "user-1",
		PropertyID:  "prop-1",
		Frequency:   domain.FrequencyDaily,
		DeadlineTime: "10:00",
	})
	return store
}
