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

	"github.com/micahela/debug-the-graduate/internal/bank"
	"github.com/micahela/debug-the-graduate/internal/config"
	"github.com/micahela/debug-the-graduate/internal/domain"
	"github.com/micahela/debug-the-graduate/internal/infra/memory"
	pgloader "github.com/micahela/debug-the-graduate/internal/infra/postgres"
	redisinfra "github.com/micahela/debug-the-graduate/internal/infra/redis"
	"github.com/micahela/debug-the-graduate/internal/store"
	transport "github.com/micahela/debug-the-graduate/internal/transport/http"
)

// NewStartCmd serves the host and player websocket endpoints over whichever
// store and bank source the config selects.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
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
	storeTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader bank.Loader = bank.NewStaticLoader(sampleBanks())
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks transport.BankRepository
	if redisClient != nil {
		banks = redisinfra.NewBankCache(redisClient, loader, bankTTL)
	} else {
		banks = bank.NewRepository(loader, bankTTL)
	}

	var st store.Store
	if redisClient != nil {
		st = redisinfra.NewStore(redisClient, storeTTL)
	} else {
		st = memory.NewStore()
	}

	bankID := cfg.Bank.ID
	if bankID == "" {
		bankID = "default"
	}
	wsHandler := transport.NewWSHandler(st, banks, bankID)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/host", wsHandler.ServeHost)
	mux.HandleFunc("/ws/play", wsHandler.ServePlay)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
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

// sampleBanks provides a demo question set; production deployments load
// banks from Postgres instead.
func sampleBanks() map[string]domain.Bank {
	return map[string]domain.Bank{
		"default": {
			ID: "default",
			Questions: []domain.Question{
				{
					Text:             "What is Micahela's grad major?",
					Options:          []string{"Big Data", "Computer Engineering", "Accounting", "Computer Science"},
					CorrectIndices:   []int{3},
					TimeLimitSeconds: 20,
				},
				{
					Text:             "What year did Micahela graduate from her undergrad?",
					Options:          []string{"2019", "2021", "2020", "2023"},
					CorrectIndices:   []int{1},
					TimeLimitSeconds: 20,
				},
				{
					Text:             "Multi-select: what's most likely to distract Micahela mid-coding session?",
					Options:          []string{"Mum & Nikko", "TikTok", "Food", "Nothing, she's locked in"},
					CorrectIndices:   []int{0, 3},
					TimeLimitSeconds: 20,
				},
				{
					Text:             "Describe Micahela in one word",
					Type:             domain.QuestionWordcloud,
					TimeLimitSeconds: 30,
				},
			},
		},
	}
}
