package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"eduquiz-service/internal/app"
	"eduquiz-service/internal/config"
	"eduquiz-service/internal/domain"
	"eduquiz-service/internal/infra/memory"
	pgstore "eduquiz-service/internal/infra/postgres"
	redisboard "eduquiz-service/internal/infra/redis"
	transport "eduquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

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

	var (
		questions app.QuestionStore
		history   app.AnswerHistory
		ledger    app.PointLedger
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store := pgstore.NewStore(pool)
		questions = store
		history = store
		ledger = store
	} else {
		// Demo mode: seeded questions, volatile history and ledger.
		log.Warn("postgres not configured, serving seeded in-memory content")
		cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
		questions = memory.NewQuestionStore(memory.NewStaticQuestionLoader(sampleCategories()), cacheTTL)
		history = memory.NewAnswerHistory()
		ledger = memory.NewPointLedger()
	}

	var boards app.LeaderboardStore = memory.NewLeaderboard()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		boards = redisboard.NewLeaderboard(client)
	}

	hub := app.NewLeaderboardHub()
	service := app.NewQuizService(questions, history, ledger,
		app.WithLeaderboard(boards, hub, cfg.Leaderboard.Size),
		app.WithLogger(log),
	)

	handler := transport.NewHandler(service, log)
	wsHandler := transport.NewWSHandler(service, hub, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.Routes(handler, wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCategories seeds demo content; a real deployment loads questions from Postgres.
func sampleCategories() map[string][]domain.Question {
	return map[string][]domain.Question{
		"general": {
			{
				ID: "q1", CategoryID: "general", Title: "What is 2 + 2?",
				Answers: []domain.Answer{
					{ID: "a1", QuestionID: "q1", Text: "3"},
					{ID: "a2", QuestionID: "q1", Text: "4", Valid: true, Explanation: "Basic addition."},
					{ID: "a3", QuestionID: "q1", Text: "5"},
				},
			},
			{
				ID: "q2", CategoryID: "general", Title: "Which planet is closest to the sun?",
				Answers: []domain.Answer{
					{ID: "a4", QuestionID: "q2", Text: "Venus"},
					{ID: "a5", QuestionID: "q2", Text: "Mercury", Valid: true, Explanation: "Mercury orbits at about 58 million km."},
				},
			},
			{
				ID: "q3", CategoryID: "general", Title: "What is the capital of France?",
				Answers: []domain.Answer{
					{ID: "a6", QuestionID: "q3", Text: "Lyon"},
					{ID: "a7", QuestionID: "q3", Text: "Paris", Valid: true, Explanation: "Paris has been the capital since 987."},
					{ID: "a8", QuestionID: "q3", Text: "Marseille"},
				},
			},
		},
	}
}
