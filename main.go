package main

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yourusername/exifsnap/handlers"
	"github.com/yourusername/exifsnap/middleware"
	"github.com/yourusername/exifsnap/models"
	"github.com/yourusername/exifsnap/services"
)

const defaultConfigPath = "config.yaml"

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "exifsnap",
		Short:         "Rewrite photo dates and rotation, then export JPEGs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the YAML config file")
	root.AddCommand(newServeCommand(), newExportCommand(), newInspectCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log := services.NewLogger(services.LogConfig{}, os.Stderr)
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadRuntime reads the config and builds the logger every command shares.
func loadRuntime() (*services.Config, zerolog.Logger, error) {
	config, err := services.LoadConfig(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return config, services.NewLogger(config.Log, os.Stderr), nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, log, err := loadRuntime()
			if err != nil {
				return err
			}
			storage, err := services.NewStorageFromConfig(config.Storage, config.Export.OutputDir)
			if err != nil {
				return err
			}
			session := models.NewSession(models.RoundToQuarterHour(time.Now()))
			app := newApp(*config, session, storage, log)

			log.Info().Str("listen", config.Server.Listen).Str("storage", config.Storage.Provider).Bool("local_storage", storage.IsLocal()).Msg("server starting")
			return app.Listen(config.Server.Listen)
		},
	}
}

func newApp(config services.Config, session models.SessionInterface, storage services.Storage, log zerolog.Logger) *fiber.App {
	compositor := services.NewCompositor(config.Export.Quality, log)
	exporter := services.NewExporter(compositor, config.Export.Workers, log)
	imageHandler := handlers.NewImageHandler(session, exporter, storage, config, log)

	app := fiber.New(fiber.Config{
		BodyLimit:             config.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: log}))
	app.Use(middleware.LocalOnly())
	app.Use(middleware.SecurityHeaders(middleware.DefaultSecurityConfig()))
	app.Use(middleware.SameOrigin())
	app.Use(compress.New())

	if dir := config.Server.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			app.Static("/", dir, fiber.Static{Compress: true})
		}
	}

	api := app.Group("/api", middleware.ExposeHeaders("Content-Disposition", "X-Export-Failures"))
	imageHandler.Register(api)

	app.Use(func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api") {
			return fiber.ErrNotFound
		}
		return c.SendStatus(fiber.StatusNotFound)
	})
	return app
}
