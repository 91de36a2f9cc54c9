package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"group-chat/internal/chat"
	"group-chat/internal/config"
	"group-chat/internal/contact"
	"group-chat/internal/db"
	"group-chat/internal/member"
	myMiddleware "group-chat/internal/middleware"
	"group-chat/internal/notify"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "http service address")
	cmd.Flags().StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.AutoMigrate(ctx); err != nil {
		return err
	}
	log.Info("✅ Database Schema Initialized")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info("✅ Connected to Redis", "addr", cfg.RedisAddr)

	hub := notify.NewHub(redisClient, cfg.NotifyChannel)
	go hub.Run(ctx)
	if err := hub.SubscribeToRedis(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.NotifyChannel, err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, database, redisClient, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 Server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server exited properly")
	return nil
}

// newRouter wires every feature onto one chi router. Everything but
// registration sits behind the JWT middleware.
func newRouter(cfg *config.Config, database *db.Database, redisClient *redis.Client, hub *notify.Hub) http.Handler {
	members := member.NewRepository(database)
	notifications := notify.NewService(
		notify.NewTokenRepository(database),
		notify.NewRedisDispatcher(redisClient, cfg.NotifyChannel),
		cfg.NotifyTimeout,
	)
	ledger := contact.NewRepository(database)

	memberHandler := member.NewHandler(member.NewService(members))
	contactHandler := contact.NewHandler(contact.NewService(ledger, members, notifications))
	chatHandler := chat.NewHandler(chat.NewService(chat.NewRepository(database), members, ledger, notifications))
	notifyHandler := notify.NewHandler(hub, notifications)

	authMiddleware := myMiddleware.NewAuthMiddleware(myMiddleware.NewHMACValidator(cfg.JWTSecret))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/register", memberHandler.Register)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/ws", notifyHandler.ServeWs)
		r.Put("/api/push-token", notifyHandler.RegisterToken)
		r.Get("/api/members/search", memberHandler.Search)
		r.Route("/api/contacts", contactHandler.Routes)
		r.Route("/api/chats", chatHandler.Routes)
	})
	return r
}
