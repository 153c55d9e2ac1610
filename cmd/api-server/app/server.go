package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"fluidmeter-api-server/cmd/api-server/app/options"
	"fluidmeter-api-server/internal/api/alert"
	"fluidmeter-api-server/internal/api/common/response"
	"fluidmeter-api-server/internal/api/fluidmeter"
	"fluidmeter-api-server/internal/api/measurement"
	"fluidmeter-api-server/internal/auth"
	cache2 "fluidmeter-api-server/internal/cache"
	db "fluidmeter-api-server/internal/database"
	"fluidmeter-api-server/internal/mail"
	"fluidmeter-api-server/internal/metrics"
	"fluidmeter-api-server/internal/notifier"
	"fluidmeter-api-server/internal/worker"
)

const markerInitTimeout = 10 * time.Second

type Server struct {
	app    *fiber.App
	db     *gorm.DB
	redis  *redis.Client
	cache  *cache2.Cache
	worker *worker.Worker
	logger *zap.Logger
}

type services struct {
	alerts       alert.AlertService
	meters       fluidmeter.FluidMeterService
	measurements measurement.MeasurementService
}

func NewServer(opts *options.Options, logger *zap.Logger, errCh chan<- error) (*Server, error) {
	debug := *opts.Mode == "debug"

	// connect postgres
	db, err := db.Connect(debug)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to postgres: %w", err)
	}
	if *opts.AutoMigrate {
		if err := migrate(db); err != nil {
			return nil, fmt.Errorf("unable to migrate: %w", err)
		}
	}

	cache, err := cache2.NewCache()
	if err != nil {
		return nil, fmt.Errorf("unable to init cache: %w", err)
	}

	// worker
	if err := worker.SetupTaskLogger(taskLogFile(*opts.LogFile), debug); err != nil {
		return nil, fmt.Errorf("unable to setup task logger: %w", err)
	}
	w, err := worker.NewWorker(cache, logger.Named("worker"), errCh)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize worker: %w", err)
	}
	mailCfg, err := mail.NewConfig()
	if err != nil {
		return nil, err
	}
	deliverer := notifier.NewDeliverer(
		notifier.NewOwnerDirectory(db),
		mail.NewSMTPSender(*mailCfg),
		logger.Named("delivery"))
	if err := w.RegisterTask(notifier.AlertEmailTask, deliverer.Deliver); err != nil {
		return nil, fmt.Errorf("unable to register %s: %w", notifier.AlertEmailTask, err)
	}
	w.Launch()

	// fluid meter
	meterLogger := logger.Named("fluidmeter")
	meterRepository := fluidmeter.NewFluidMeterRepository(db, cache)
	meterService := fluidmeter.NewFluidMeterService(meterRepository, meterLogger)
	// measurement
	measurementCfg, err := measurement.NewConfig()
	if err != nil {
		return nil, err
	}
	measurementLogger := logger.Named("measurement")
	measurementRepository := measurement.NewMeasurementRepository(db)
	measurementService := measurement.NewMeasurementService(*measurementCfg, measurementRepository, meterRepository, measurementLogger)
	// alert
	alertCfg, err := alert.NewConfig()
	if err != nil {
		return nil, err
	}
	markers, redisClient, err := newMarkerStore(*alertCfg, db)
	if err != nil {
		return nil, fmt.Errorf("unable to init run marker store: %w", err)
	}
	alertLogger := logger.Named("alert")
	alertService := alert.NewAlertService(
		*alertCfg,
		meterRepository,
		measurementRepository,
		notifier.NewQueueNotifier(w, logger.Named("notifier")),
		markers,
		alertLogger)

	authCfg, err := auth.NewConfig()
	if err != nil {
		return nil, err
	}

	app := newApp(*opts.Mode, authCfg, services{
		alerts:       alertService,
		meters:       meterService,
		measurements: measurementService,
	}, logger)

	return &Server{
		app:    app,
		db:     db,
		redis:  redisClient,
		cache:  cache,
		worker: w,
		logger: logger,
	}, nil
}

func migrate(gdb *gorm.DB) error {
	return db.Migrate(gdb)
}

func taskLogFile(logFile string) string {
	if logFile == "" {
		return "/var/log/fluidmeter/worker.log"
	}
	return logFile + ".worker"
}

func newMarkerStore(cfg alert.Config, db *gorm.DB) (alert.MarkerStore, *redis.Client, error) {
	switch cfg.MarkerBackend {
	case alert.MarkerBackendMemory:
		return alert.NewMemoryMarkerStore(), nil, nil
	case alert.MarkerBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), markerInitTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return alert.NewRedisMarkerStore(client, cfg.RedisKey), client, nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), markerInitTimeout)
		defer cancel()
		store, err := alert.NewPostgresMarkerStore(ctx, db)
		return store, nil, err
	}
}

func newApp(mode string, authCfg *auth.Config, svc services, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Fluid Meter API Server",
		Prefork:      false,
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(compress.New())
	app.Use(etag.New())
	app.Use(requestid.New())
	app.Use(metrics.Middleware())
	if mode != "release" {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format:     "[${time}] [${ip}:${port}] ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}
	if mode == "debug" {
		app.Use(pprof.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(auth.New(authCfg, app))

	app.Get("/dashboard", monitor.New())

	v1 := app.Group("/v1")
	alert.AlertRouter(v1, svc.alerts, logger.Named("alert"))
	fluidmeter.FluidMeterRouter(v1, svc.meters, logger.Named("fluidmeter"))
	measurement.MeasurementRouter(v1, svc.measurements, logger.Named("measurement"))

	app.All("*", func(c *fiber.Ctx) error {
		errorMessage := fmt.Sprintf("Route '%s' does not exist in this API!", c.OriginalURL())
		return response.Error(c, fiber.StatusNotFound, response.CodeNotFound, errorMessage)
	})

	return app
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := response.CodeBadRequest
			switch fe.Code {
			case fiber.StatusNotFound:
				code = response.CodeNotFound
			case fiber.StatusUnauthorized:
				code = response.CodeUnauthorized
			case fiber.StatusInternalServerError:
				code = response.CodeInternalError
			}
			return response.Error(c, fe.Code, code, fe.Message)
		}
		logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return response.Error(c, fiber.StatusInternalServerError, response.CodeInternalError, "internal error")
	}
}

func (app *Server) Listen(port int, certFile, keyFile *string) error {
	app.logger.Info("Starting Fluid Meter api-server ...", zap.Int("port", port))

	address := fmt.Sprintf(":%d", port)
	if certFile != nil && keyFile != nil {
		if *certFile != "" && *keyFile != "" {
			return app.app.ListenTLS(address, *certFile, *keyFile)
		}
	}
	return app.app.Listen(address)
}

func (app *Server) Shutdown(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, time.Minute)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.app.ShutdownWithContext(ctx)
	})
	g.Go(func() error {
		app.worker.Stop(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// stores close only after in-flight requests and tasks are done
	app.cache.Close()
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			return err
		}
	}
	return db.Close(app.db)
}

func Run(opts *options.Options, logger *zap.Logger) error {
	apiServerError := make(chan error, 1)

	server, err := NewServer(opts, logger, apiServerError)
	if err != nil {
		return err
	}

	go func() {
		if err := server.Listen(*opts.Port, opts.CertFile, opts.KeyFile); err != nil && err != http.ErrServerClosed {
			logger.Error("listen for api-server failed", zap.Error(err))
			apiServerError <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown server ...")

		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("close api-server failed", zap.Error(err))
			return err
		}
	case err := <-apiServerError:
		return err
	}

	return nil
}
