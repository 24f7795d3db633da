package integration

import (
	"context"
	"database/sql"
	"fmt"
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

	"eduquiz-service/internal/app"
	"eduquiz-service/internal/domain"
	pgstore "eduquiz-service/internal/infra/postgres"
	pgmigrations "eduquiz-service/internal/infra/postgres/migrations"
	infraredis "eduquiz-service/internal/infra/redis"
)

func TestQuizFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, "general", 12)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := pgstore.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	boards := infraredis.NewLeaderboard(redisClient)
	hub := app.NewLeaderboardHub()
	service := app.NewQuizService(store, store, store, app.WithLeaderboard(boards, hub, 10))

	selection, err := service.StartQuiz(ctx, "u1", "general")
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if len(selection.Questions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(selection.Questions))
	}

	// Answer the selected questions correctly; this clears the award threshold.
	answers := make([]domain.SubmittedAnswer, 0, len(selection.Questions))
	for _, q := range selection.Questions {
		correct, ok := q.CorrectAnswer()
		if !ok {
			t.Fatalf("selected question %s has no valid answer", q.ID)
		}
		answers = append(answers, domain.SubmittedAnswer{QuestionID: q.ID, SelectedAnswerID: correct.ID})
	}
	results, err := service.SubmitQuiz(ctx, "u1", "general", answers)
	if err != nil {
		t.Fatalf("submit quiz: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Correct || !r.PointsAwarded {
			t.Fatalf("expected awarded all-correct submission, got %+v", r)
		}
	}

	record, err := service.Points(ctx, "u1", "general")
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if record.Points != 10 {
		t.Fatalf("expected 10 points, got %d", record.Points)
	}

	// Answered questions moved to the mastered bucket; the two unanswered ones lead.
	reselect, err := service.StartQuiz(ctx, "u1", "general")
	if err != nil {
		t.Fatalf("restart quiz: %v", err)
	}
	answered := make(map[string]bool)
	for _, a := range answers {
		answered[a.QuestionID] = true
	}
	if answered[reselect.Questions[0].ID] || answered[reselect.Questions[1].ID] {
		t.Fatalf("expected unanswered questions first, got %s, %s",
			reselect.Questions[0].ID, reselect.Questions[1].ID)
	}

	board, err := service.Leaderboard(ctx, "general")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 1 || board.Entries[0].UserID != "u1" || board.Entries[0].Points != 10 {
		t.Fatalf("expected u1 leading with 10, got %+v", board.Entries)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn, categoryID string, count int) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for i := 1; i <= count; i++ {
		questionID := fmt.Sprintf("q%d", i)
		if _, err := db.ExecContext(ctx,
			`INSERT INTO questions (id, category_id, title, position) VALUES (?, ?, ?, ?)`,
			questionID, categoryID, fmt.Sprintf("question %d", i), i); err != nil {
			t.Fatalf("insert question: %v", err)
		}
		for j := 1; j <= 3; j++ {
			answerID := fmt.Sprintf("%s-a%d", questionID, j)
			if _, err := db.ExecContext(ctx,
				`INSERT INTO answers (id, question_id, text, is_valid, explanation, position) VALUES (?, ?, ?, ?, ?, ?)`,
				answerID, questionID, fmt.Sprintf("answer %d", j), j == 2, "because", j); err != nil {
				t.Fatalf("insert answer: %v", err)
			}
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
