package worker

import (
	"context"
	"os"
	"time"

	"github.com/RichardKnop/machinery/v1"
	"github.com/RichardKnop/machinery/v1/config"
	"github.com/RichardKnop/machinery/v1/tasks"
	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"

	"fluidmeter-api-server/internal/cache"
)

const (
	cnfPath     = "/var/redis-config.yaml"
	consumerTag = "alert_worker"
	concurrency = 2

	// a queued batch is remembered this long, repeated sends return its state
	taskNameTTL = time.Minute * 10
)

type envConfig struct {
	Broker  string `env:"BROKER" envDefault:"redis://localhost:6379"`
	Backend string `env:"RESULT_BACKEND" envDefault:"redis://localhost:6379"`
}

type Worker struct {
	cache  *cache.Cache
	server *machinery.Server
	worker *machinery.Worker
	logger *zap.Logger
	errCh  chan<- error
}

// NewWorker connects to the broker. Tasks must be registered before Launch.
func NewWorker(cache *cache.Cache, logger *zap.Logger, errCh chan<- error) (*Worker, error) {
	cnf, err := loadConfig()
	if err != nil {
		return nil, err
	}

	server, err := machinery.NewServer(cnf)
	if err != nil {
		return nil, err
	}

	worker := server.NewWorker(consumerTag, concurrency)

	w := &Worker{
		cache:  cache,
		server: server,
		worker: worker,
		logger: logger,
		errCh:  errCh,
	}

	worker.SetPreTaskHandler(w.preHandler)
	worker.SetErrorHandler(w.errorHandler)
	worker.SetPostTaskHandler(w.postHandler)
	return w, nil
}

func (w *Worker) Launch() {
	go func() {
		if err := w.worker.Launch(); err != nil {
			w.errCh <- err
		}
	}()
}

func loadConfig() (*config.Config, error) {
	var cnf *config.Config

	if _, err := os.Stat(cnfPath); err != nil {
		envConfig := &envConfig{}
		opts := env.Options{}
		if err := env.Parse(envConfig, opts); err != nil {
			return nil, err
		}

		cnf = &config.Config{
			DefaultQueue:    "fluidmeter_tasks",
			ResultsExpireIn: 3600, // 1 hour
			Broker:          envConfig.Broker,
			ResultBackend:   envConfig.Backend,
			Redis: &config.RedisConfig{
				MaxIdle:                3,
				IdleTimeout:            240,
				ReadTimeout:            15,
				WriteTimeout:           15,
				ConnectTimeout:         15,
				NormalTasksPollPeriod:  1000,
				DelayedTasksPollPeriod: 500,
			},
			NoUnixSignals: true,
		}
	} else {
		cnf, err = config.NewFromYaml(cnfPath, true)
		if err != nil {
			return nil, err
		}
	}

	return cnf, nil
}

func (w *Worker) preHandler(sig *tasks.Signature) {
	w.logger.Info("start task",
		zap.String("uuid", sig.UUID),
		zap.String("task", sig.Name),
		zap.Time("startAt", time.Now()),
		zap.Int("retry", sig.RetryCount))
}

func (w *Worker) errorHandler(err error) {
	w.logger.Error("error task", zap.Error(err))
}

func (w *Worker) postHandler(sig *tasks.Signature) {
	w.logger.Info("finish task",
		zap.String("uuid", sig.UUID),
		zap.String("task", sig.Name),
		zap.Time("finishAt", time.Now()))
}

// SendTaskWithContext queues task unless a task with the same name was
// queued from this process recently. Names are not shared across replicas.
func (w *Worker) SendTaskWithContext(ctx context.Context, task *tasks.Signature, name string) (*tasks.TaskState, error) {
	if uuid, exist := w.cache.Get(name); exist {
		return w.getTask(uuid.(string))
	}

	result, err := w.server.SendTaskWithContext(ctx, task)
	if err != nil {
		return nil, err
	}
	taskState := result.GetState()

	w.cache.SetWithTTL(name, taskState.TaskUUID, taskNameTTL)

	return taskState, nil
}

func (w *Worker) getTask(uuid string) (*tasks.TaskState, error) {
	backend := w.server.GetBackend()
	return backend.GetState(uuid)
}

func (w *Worker) RegisterTask(name string, task interface{}) error {
	return w.server.RegisterTask(name, task)
}

func (w *Worker) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		w.worker.Quit()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker did not stop in time", zap.Error(ctx.Err()))
	}
}
