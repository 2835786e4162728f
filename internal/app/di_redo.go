package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	redoHTTP "github.com/allisson/redo/internal/redo/http"
	redoRepository "github.com/allisson/redo/internal/redo/repository"
	"github.com/allisson/redo/internal/redo/service"
	redoUseCase "github.com/allisson/redo/internal/redo/usecase"
)

// DiagnosticsComponentName is the target name of the built-in Diagnostics component.
const DiagnosticsComponentName = "redo.Diagnostics"

// Diagnostics is a replay target registered by every container. Operators capture calls
// against it to check the pipeline end to end without touching business components.
type Diagnostics struct {
	logger *slog.Logger
}

// Ping logs the message and succeeds.
func (d *Diagnostics) Ping(ctx context.Context, message string) error {
	d.logger.InfoContext(ctx, "redo diagnostics ping", slog.String("message", message))
	return nil
}

// Fail always returns an error, so the record follows the retry path.
func (d *Diagnostics) Fail(ctx context.Context, message string) error {
	return errors.New(message)
}

// TypeRegistry returns the registry of type names accepted in recorded signatures.
// Applications embedding the engine register their own types here before the first replay.
func (c *Container) TypeRegistry() *service.TypeRegistry {
	c.typeRegistryInit.Do(func() {
		c.typeRegistry = service.NewTypeRegistry()
	})
	return c.typeRegistry
}

// ComponentRegistry returns the registry of live replay targets.
func (c *Container) ComponentRegistry() (*service.ComponentRegistry, error) {
	var err error
	c.componentRegistryInit.Do(func() {
		c.componentRegistry, err = c.initComponentRegistry()
		if err != nil {
			c.initErrors["componentRegistry"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["componentRegistry"]; exists {
		return nil, storedErr
	}
	return c.componentRegistry, nil
}

// Dispatcher returns the invocation dispatcher.
func (c *Container) Dispatcher() (*service.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// RecordRepository returns the redo record repository based on database driver.
func (c *Container) RecordRepository() (redoUseCase.RecordRepository, error) {
	var err error
	c.recordRepositoryInit.Do(func() {
		c.recordRepository, err = c.initRecordRepository()
		if err != nil {
			c.initErrors["recordRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordRepository"]; exists {
		return nil, storedErr
	}
	return c.recordRepository, nil
}

// RedoUseCase returns the redo use case.
func (c *Container) RedoUseCase() (redoUseCase.RedoUseCase, error) {
	var err error
	c.redoUseCaseInit.Do(func() {
		c.redoUseCase, err = c.initRedoUseCase()
		if err != nil {
			c.initErrors["redoUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["redoUseCase"]; exists {
		return nil, storedErr
	}
	return c.redoUseCase, nil
}

// RedoWorker returns the background scheduler that replays due records.
func (c *Container) RedoWorker() (*redoUseCase.Worker, error) {
	var err error
	c.redoWorkerInit.Do(func() {
		c.redoWorker, err = c.initRedoWorker()
		if err != nil {
			c.initErrors["redoWorker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["redoWorker"]; exists {
		return nil, storedErr
	}
	return c.redoWorker, nil
}

// RecordHandler returns the HTTP handler for redo record operations.
func (c *Container) RecordHandler() (*redoHTTP.RecordHandler, error) {
	var err error
	c.recordHandlerInit.Do(func() {
		c.recordHandler, err = c.initRecordHandler()
		if err != nil {
			c.initErrors["recordHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordHandler"]; exists {
		return nil, storedErr
	}
	return c.recordHandler, nil
}

// initComponentRegistry creates the component registry holding the Diagnostics component.
func (c *Container) initComponentRegistry() (*service.ComponentRegistry, error) {
	registry := service.NewComponentRegistry()
	if err := registry.Register(DiagnosticsComponentName, &Diagnostics{logger: c.Logger()}); err != nil {
		return nil, fmt.Errorf("failed to register diagnostics component: %w", err)
	}
	return registry, nil
}

func (c *Container) initDispatcher() (*service.Dispatcher, error) {
	components, err := c.ComponentRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get component registry for dispatcher: %w", err)
	}
	return service.NewDispatcher(components, c.TypeRegistry()), nil
}

// initRecordRepository creates the redo record repository based on the database driver.
func (c *Container) initRecordRepository() (redoUseCase.RecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for record repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return redoRepository.NewPostgreSQLRecordRepository(db), nil
	case "mysql":
		return redoRepository.NewMySQLRecordRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRedoUseCase creates the redo use case with all its dependencies.
func (c *Container) initRedoUseCase() (redoUseCase.RedoUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for redo use case: %w", err)
	}

	recordRepository, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for redo use case: %w", err)
	}

	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for redo use case: %w", err)
	}

	useCaseConfig := redoUseCase.Config{
		BatchSize:      c.config.RedoBatchSize,
		Concurrency:    c.config.RedoConcurrency,
		MaxAttempts:    c.config.RedoMaxAttempts,
		RetryInterval:  c.config.RedoRetryInterval,
		MaxBackoff:     c.config.RedoMaxBackoff,
		ClaimLease:     c.config.RedoClaimLease,
		RateLimit:      c.config.RedoRateLimitPerSec,
		RateLimitBurst: c.config.RedoRateLimitBurst,
	}

	baseUseCase := redoUseCase.NewRedoUseCase(
		useCaseConfig,
		txManager,
		recordRepository,
		dispatcher,
		c.TypeRegistry(),
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for redo use case: %w", err)
		}
		return redoUseCase.NewRedoUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initRedoWorker() (*redoUseCase.Worker, error) {
	useCase, err := c.RedoUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get redo use case for worker: %w", err)
	}
	return redoUseCase.NewWorker(useCase, c.config.RedoWorkerInterval, c.Logger()), nil
}

// initRecordHandler creates the redo record HTTP handler.
func (c *Container) initRecordHandler() (*redoHTTP.RecordHandler, error) {
	useCase, err := c.RedoUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get redo use case for record handler: %w", err)
	}
	return redoHTTP.NewRecordHandler(useCase, c.Logger()), nil
}
