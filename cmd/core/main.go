package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	audit_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/redis"
	rest_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/rest"
	memory_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/notify"
	postgres_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/postgres"
	stream_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/redis"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/token"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/postgres"
	"github.com/JoeShih716/go-bank-ledger/pkg/redis"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithConfig(cfg.Logger).With().Str("version", version).Logger()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server exited")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 儲存引擎
	store, checkers, cleanup, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// 3. 餘額異動通知
	publisher, redisCleanup, err := openPublisher(ctx, cfg, log, checkers)
	if err != nil {
		return err
	}
	defer redisCleanup()

	dispatcher := notify.NewDispatcher(publisher, cfg.Ledger.NotifyBuffer, log)
	dispatcher.Start(ctx)

	// 4. UseCase
	issuer, err := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}
	core := usecase.NewCoreUseCase(store, dispatcher, issuer, log)

	// 5. gRPC
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc_adapter.LoggingInterceptor(log)))
	grpc_adapter.RegisterLedgerServiceServer(grpcServer, grpc_adapter.NewGrpcServer(core))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	// ServiceDesc 為手寫 (JSON codec)，沒有註冊 file descriptor，因此不開 server reflection

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	// 6. HTTP
	if cfg.Server.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := rest_adapter.NewRouter(
		rest_adapter.NewHandlerFromCore(core),
		rest_adapter.NewHealthHandler(version, checkers),
		issuer,
		log,
	)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.Server.GRPCAddr).Msg("starting grpc server")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("server failed, shutting down")
	}

	// Graceful Shutdown: 先停止收請求，再等通知佇列送完
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	grpcServer.GracefulStop()

	stop()
	select {
	case <-dispatcher.Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("notification dispatcher did not drain before timeout")
	}
	if dropped := dispatcher.Dropped(); dropped > 0 {
		log.Warn().Uint64("dropped", dropped).Msg("balance notifications dropped")
	}
	return serveErr
}

// openStore 依設定建立儲存引擎，並回傳 /ready 使用的檢查項目
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (usecase.Store, map[string]rest_adapter.Checker, func(), error) {
	checkers := map[string]rest_adapter.Checker{}
	log = log.With().Str("engine", cfg.Ledger.Engine).Logger()

	switch cfg.Ledger.Engine {
	case config.EngineMutex, config.EngineLMAX:
		w, err := wal.NewWAL(cfg.Ledger.WALPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open wal: %w", err)
		}
		closeWAL := func() {
			if err := w.Close(); err != nil {
				log.Error().Err(err).Msg("close wal")
			}
		}

		if cfg.Ledger.Engine == config.EngineMutex {
			store, err := memory_adapter.NewStore(w)
			if err != nil {
				closeWAL()
				return nil, nil, nil, fmt.Errorf("init memory store: %w", err)
			}
			log.Info().Str("wal", cfg.Ledger.WALPath).Msg("memory store ready")
			return store, checkers, closeWAL, nil
		}

		store, err := memory_adapter.NewSequencedStore(w, cfg.Ledger.SequencerBuffer)
		if err != nil {
			closeWAL()
			return nil, nil, nil, fmt.Errorf("init sequenced store: %w", err)
		}
		seqCtx, cancel := context.WithCancel(context.Background())
		store.Start(seqCtx)
		log.Info().Str("wal", cfg.Ledger.WALPath).Int("buffer", cfg.Ledger.SequencerBuffer).Msg("sequenced store ready")
		return store, checkers, func() {
			cancel()
			<-store.Done()
			closeWAL()
		}, nil

	case config.EngineMySQL:
		client, err := mysql.NewClient(cfg.MySQL, log)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		store := mysql_adapter.NewStore(client)
		if err := store.Migrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("migrate mysql: %w", err)
		}
		checkers["mysql"] = func(ctx context.Context) error {
			sqlDB, err := client.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		log.Info().Msg("mysql store ready")
		return store, checkers, func() {
			if err := client.Close(); err != nil {
				log.Error().Err(err).Msg("close mysql")
			}
		}, nil

	case config.EnginePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := postgres_adapter.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		checkers["postgres"] = pool.Ping
		log.Info().Msg("postgres store ready")
		return store, checkers, pool.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown ledger engine %q", cfg.Ledger.Engine)
}

// openPublisher Redis 啟用時發佈到 Stream 並啟動稽核 Consumer，否則只寫 Log
func openPublisher(ctx context.Context, cfg *config.Config, log zerolog.Logger, checkers map[string]rest_adapter.Checker) (notify.Publisher, func(), error) {
	if !cfg.Redis.Enabled {
		return notify.NewLogPublisher(log), func() {}, nil
	}

	client, err := redis.NewClient(ctx, cfg.Redis.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	checkers["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}

	subscriber := audit_adapter.NewAuditSubscriber(client.Client, audit_adapter.SubscriberConfig{
		Stream:   cfg.Redis.Stream,
		Group:    cfg.Redis.Group,
		Consumer: cfg.Redis.Consumer,
	}, audit_adapter.LogHandler(log), log)

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := subscriber.Start(subCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("audit subscriber stopped")
		}
	}()

	log.Info().Str("stream", cfg.Redis.Stream).Msg("redis event stream ready")
	return stream_adapter.NewEventPublisher(client.Client, cfg.Redis.Stream, cfg.Redis.MaxLen), func() {
		cancel()
		<-done
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("close redis")
		}
	}, nil
}
