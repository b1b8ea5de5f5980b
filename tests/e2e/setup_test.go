//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deskboard/deskboard/internal/config"
	"github.com/deskboard/deskboard/internal/domain"
	"github.com/deskboard/deskboard/internal/middleware"
	"github.com/deskboard/deskboard/internal/server"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testJWTSecret = "e2e-test-secret-0123456789abcdef"

// TestEnv holds all test dependencies
type TestEnv struct {
	DB        *pgxpool.Pool
	Server    *server.Server
	ServerURL string
	PostgresC testcontainers.Container
	cancel    context.CancelFunc
}

// SetupTestEnv creates a complete test environment with containers
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	env := &TestEnv{
		cancel: cancel,
	}

	postgresC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("deskboard_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}
	env.PostgresC = postgresC

	postgresURL, err := postgresC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := pgxpool.New(ctx, postgresURL)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	env.DB = db

	if err := applySchema(ctx, db); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	cfg := &config.Config{
		Port:               "0",
		ShutdownTimeout:    5 * time.Second,
		DatabaseURL:        postgresURL,
		LogLevel:           "debug",
		LogFormat:          "text",
		JWTSecret:          testJWTSecret,
		CORSOrigins:        []string{"http://localhost:4200"},
		RateLimitPerSecond: 100,
		RateLimitBurst:     200,
		SessionRatePerHour: 3600,
		SessionRateBurst:   100,
	}

	srv, err := server.New(cfg, db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	env.ServerURL = fmt.Sprintf("http://%s", listener.Addr().String())

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	env.Server = srv

	if err := waitForServer(env.ServerURL); err != nil {
		t.Fatalf("server not ready: %v", err)
	}

	return env
}

// Cleanup tears down the test environment
func (e *TestEnv) Cleanup(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if e.Server != nil {
		e.Server.Shutdown(ctx)
	}
	if e.DB != nil {
		e.DB.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(ctx)
	}
	e.cancel()
}

func applySchema(ctx context.Context, db *pgxpool.Pool) error {
	schema, err := os.ReadFile(filepath.Join("..", "..", "scripts", "schema.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(schema))
	return err
}

// MintToken signs a JWT for the given user, the way the dashboard's
// login endpoint would.
func MintToken(t *testing.T, userID, role string) string {
	t.Helper()
	claims := middleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// doJSON issues an authenticated request and decodes the JSON response.
func doJSON(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func startSession(t *testing.T, env *TestEnv, token, socketID string) *domain.Session {
	t.Helper()
	var sess domain.Session
	status := doJSON(t, http.MethodPost, env.ServerURL+"/api/v1/sessions/start", token,
		domain.StartSessionRequest{SocketID: socketID, Device: "e2e"}, &sess)
	if status != http.StatusCreated {
		t.Fatalf("start session: status = %d; want 201", status)
	}
	return &sess
}

func waitForServer(url string) error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(10 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after 10s")
}
