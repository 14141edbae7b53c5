package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/open-teleop/console/domain/diagnostic"
	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/api"
	"github.com/open-teleop/console/pkg/config"
	"github.com/open-teleop/console/pkg/gamepad"
	"github.com/open-teleop/console/pkg/link"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/zeromq"
	"github.com/open-teleop/console/services"
)

const shutdownTimeout = 5 * time.Second

// vehicleLink is what both transports provide.
type vehicleLink interface {
	teleop.CommandSender
	Run(ctx context.Context)
	Close()
}

func main() {
	configDir := flag.String("config-dir", "./config", "directory containing "+config.BootstrapFileName)
	flag.Parse()

	boot, err := config.LoadBootstrapConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load bootstrap config: %v\n", err)
		os.Exit(1)
	}

	logger, err := customlog.NewLogrusLogger(customlog.Options{
		Level:      boot.Logging.Level,
		Dir:        boot.Logging.LogPath,
		MaxSizeMB:  boot.Logging.MaxSizeMB,
		MaxBackups: boot.Logging.MaxBackups,
		MaxAgeDays: boot.Logging.MaxAgeDays,
		Compress:   boot.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("Starting console %s (transport %s)", boot.ConsoleID, boot.Link.Transport)

	configService, err := services.NewTeleopConfigService(boot.BindingsPath(), logger)
	if err != nil {
		logger.Fatalf("Failed to initialise bindings configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	linkState := diagnostic.NewLinkState(boot.Link.Transport)
	vehicle, err := newVehicleLink(boot, linkState, configService, logger)
	if err != nil {
		logger.Fatalf("Failed to create vehicle link: %v", err)
	}
	// The link outlives the signal context so the final zero can still go out.
	linkCtx, cancelLink := context.WithCancel(context.Background())
	defer cancelLink()
	go vehicle.Run(linkCtx)

	source, remote := newGamepadSource(ctx, boot.Gamepad, logger)

	tx := teleop.NewTransmitter(vehicle, teleop.TransmitterOptions{
		Workers:        boot.Control.SendWorkers,
		QueueSize:      boot.Control.SendQueueSize,
		SendTimeout:    config.Millis(boot.Control.SendTimeoutMs),
		ReportInterval: config.Millis(boot.Control.ErrorReportIntervalMs),
	}, logger)

	keyboard := teleop.NewKeyboardSampler()
	teleopService := teleop.NewTeleopService(
		configService,
		keyboard,
		teleop.NewGamepadSampler(source),
		tx,
		boot.Control.TickInterval(),
		logger,
	)
	tx.OnFailure(teleopService.ReportTransmitFailure)
	configService.SetObserver(teleopService)

	diagnosticService := diagnostic.NewDiagnosticService(linkState, func() interface{} { return tx.Stats() })

	app := fiber.New(fiber.Config{
		AppName:               "Open-Teleop Console",
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "online",
			"service":    "open-teleop console",
			"console_id": boot.ConsoleID,
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	teleopService.RegisterRoutes(app)
	diagnosticService.RegisterRoutes(app)
	api.RegisterConfigRoutes(app, configService, logger)
	api.RegisterWebSocketRoutes(app,
		api.NewInputHandler(keyboard, remote, logger),
		api.NewStateStreamer(teleopService, linkState, logger),
	)

	if err := teleopService.Start(); err != nil {
		logger.Fatalf("Failed to start control loop: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", boot.Server.HTTPPort)
		logger.Infof("Server starting on %s", addr)
		serverErr <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Infof("Shutting down console...")
	case err := <-serverErr:
		logger.Errorf("Server stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop first so the vehicle's last command is zero.
	if err := teleopService.Stop(shutdownCtx); err != nil {
		logger.Warnf("Final zero command failed: %v", err)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	tx.Close()
	cancelLink()
	vehicle.Close()

	logger.Infof("Console exited properly")
}

func newVehicleLink(boot *config.BootstrapConfig, state *diagnostic.LinkState, bindings zeromq.BindingsProvider, logger customlog.Logger) (vehicleLink, error) {
	switch boot.Link.Transport {
	case config.TransportZeroMQ:
		return zeromq.NewLink(zeromq.LinkOptions{
			ZeroMQ:           boot.ZeroMQ,
			ConsoleID:        boot.ConsoleID,
			HeartbeatTimeout: config.Millis(boot.Link.HeartbeatTimeoutMs),
		}, state, bindings, logger)
	case config.TransportWebSocket:
		return link.NewWebSocketLink(link.OptionsFromConfig(boot.Link), state, logger), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", boot.Link.Transport)
	}
}

// newGamepadSource picks the controller input. The remote source is returned
// separately so the input socket can feed it; it is nil for other sources.
func newGamepadSource(ctx context.Context, cfg config.GamepadConfig, logger customlog.Logger) (gamepad.Source, api.RemoteGamepad) {
	switch cfg.Source {
	case config.GamepadSourceJoystick:
		js := gamepad.NewJoystickSource(gamepad.JoystickOptions{
			Index:             cfg.JoystickIndex,
			DeadZone:          cfg.DeadZone,
			ReconnectInterval: config.Millis(cfg.ReconnectIntervalMs),
		}, logger)
		go js.Run(ctx)
		return js, nil
	case config.GamepadSourceNone:
		return gamepad.NoSource{}, nil
	default:
		remote := gamepad.NewRemoteSource(config.Millis(cfg.StaleAfterMs))
		return remote, remote
	}
}

// Custom error handler
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
