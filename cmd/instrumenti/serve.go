package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/instrumenti/internal/api"
	"github.com/erazemk/instrumenti/internal/auth"
	"github.com/erazemk/instrumenti/internal/model"
	"github.com/erazemk/instrumenti/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Open (or create) the database, make sure an admin account exists and
serve the API until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cfg.Addr, "addr", "a", cfg.Addr, "listen address")
	cmd.Flags().StringVarP(&cfg.AdminUser, "user", "u", cfg.AdminUser, "admin username created on first run")

	return cmd
}

func runServe(ctx context.Context) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	logger.Info("database ready", zap.String("path", cfg.DBPath), zap.String("photos", cfg.PhotoDir))

	password, err := ensureAdmin(ctx, a.db, cfg.AdminUser)
	if err != nil {
		return err
	}
	if password != "" {
		printAdminCredentials(cfg.AdminUser, password)
	}

	jwtSecret, err := store.GetJWTSecret(ctx, a.db)
	if err != nil {
		return err
	}

	handler := api.LoggingMiddleware(logger)(api.NewRouter(a.db, a.svc, jwtSecret, logger))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	logger.Info("server stopped, closing database")
	return nil
}

// ensureAdmin creates an admin account with a random password when the
// database has no active users. It returns the password it generated, or ""
// when nothing was created.
func ensureAdmin(ctx context.Context, database *sql.DB, username string) (string, error) {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

func printAdminCredentials(username, password string) {
	fmt.Fprintln(os.Stdout, "Admin account created:")
	fmt.Fprintf(os.Stdout, "  Username: %s\n", username)
	fmt.Fprintf(os.Stdout, "  Password: %s\n", password)
	fmt.Fprintln(os.Stdout, "Save this password, it cannot be recovered.")
	fmt.Fprintln(os.Stdout)
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
