package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizbot/internal/app"
	"quizbot/internal/config"
	"quizbot/internal/domain"
	"quizbot/internal/infra/memory"
	pgloader "quizbot/internal/infra/postgres"
	redissession "quizbot/internal/infra/redis"
	"quizbot/internal/logger"
	transport "quizbot/internal/transport/http"
	"quizbot/internal/transport/telegram"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot (webhook when a public URL is set, long polling otherwise)",
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
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	bankDef, err := loadBank(ctx, cfg, log)
	if err != nil {
		return err
	}
	bank := app.NewBank(bankDef)

	store, closeStore, err := newSessionStore(ctx, cfg, bank, log)
	if err != nil {
		return err
	}
	defer closeStore()

	bot, webhook, err := telegram.NewBot(cfg, log)
	if err != nil {
		return err
	}

	feed := app.NewResultFeed()
	service := app.NewQuizService(store, bank, telegram.NewMessenger(bot), app.Settings{
		AdminChatID: cfg.Quiz.AdminChatID,
		Greeting:    cfg.Quiz.Greeting,
	}, log, app.WithResultPublisher(feed))
	telegram.NewHandlers(ctx, service, log).Register(bot)

	var webhookHandler http.Handler
	if webhook != nil {
		if err := telegram.RegisterWebhook(bot, webhook); err != nil {
			return err
		}
		webhookHandler = telegram.WebhookHandler(bot, cfg.Telegram.SecretToken, log)
		log.Info().Str("url", cfg.WebhookURL()).Msg("webhook registered")
	} else {
		if err := bot.RemoveWebhook(); err != nil {
			log.Warn().Err(err).Msg("could not remove webhook before polling")
		}
		log.Info().Msg("running in long polling mode")
	}

	go bot.Start()
	defer bot.Stop()

	log.Info().
		Int("questions", bank.Total()).
		Dur("time_limit", bank.TimeLimit()).
		Bool("shuffle_questions", bankDef.ShuffleQuestions).
		Bool("shuffle_answers", bankDef.ShuffleAnswers).
		Msg("quiz bot started")

	var server *http.Server
	if webhookHandler != nil || cfg.Monitor.Token != "" {
		server = &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      transport.NewRouter(cfg.Telegram.WebhookPath, webhookHandler, transport.NewMonitorHandler(feed, cfg.Monitor.Token, log)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			log.Info().Str("port", cfg.Server.Port).Msg("starting http server")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server failed")
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down...")
	}

	if server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadBank reads the question bank from Postgres when configured, else from the YAML config.
func loadBank(ctx context.Context, cfg config.Config, log zerolog.Logger) (domain.QuestionBank, error) {
	var loader app.BankLoader = memory.NewStaticBankLoader(map[string]domain.QuestionBank{
		cfg.Quiz.BankID: cfg.Quiz.QuestionBank,
	})
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return domain.QuestionBank{}, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return domain.QuestionBank{}, fmt.Errorf("connect postgres: %w", err)
		}
		// the bank is read once; nothing else needs the pool
		defer pool.Close()
		loader = pgloader.NewBankLoader(pool)
	}

	bank, err := loader.LoadBank(ctx, cfg.Quiz.BankID)
	if err != nil {
		return domain.QuestionBank{}, err
	}
	if err := bank.Validate(); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("bank %q: %w", cfg.Quiz.BankID, err)
	}
	return bank, nil
}

func newSessionStore(ctx context.Context, cfg config.Config, bank *app.Bank, log zerolog.Logger) (app.SessionRepository, func(), error) {
	if cfg.Redis.Addr == "" {
		return memory.NewSessionStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("redis connected")

	// a marker outlives its attempt by a grace period, never less than the test itself
	ttl := config.DurationOr(cfg.Redis.TTL, bank.TimeLimit()+5*time.Minute)
	if ttl < bank.TimeLimit() {
		ttl = bank.TimeLimit()
	}
	return redissession.NewSessionStore(client, ttl, log), func() { client.Close() }, nil
}
