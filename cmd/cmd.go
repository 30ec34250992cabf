package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/db"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/events"
	"github.com/roamline/roamline-server/internal/guestbook"
	"github.com/roamline/roamline-server/internal/maps"
	"github.com/roamline/roamline-server/internal/media"
	"github.com/roamline/roamline-server/internal/metrics"
	"github.com/roamline/roamline-server/internal/playlists"
	"github.com/roamline/roamline-server/internal/render"
	"github.com/roamline/roamline-server/internal/server"
	"github.com/roamline/roamline-server/internal/storage"
	routesync "github.com/roamline/roamline-server/internal/sync"
	"github.com/roamline/roamline-server/internal/trips"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "roamline-server",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	slog.Info("roamline-server", "version", cmd.Annotations["version"], "commit", cmd.Annotations["commit"])

	config, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Address,
			Username: config.Redis.Username,
			Password: config.Redis.Password,
			DB:       config.Redis.Database,
		})
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if config.NATS.Enabled {
		natsConn, err = nats.Connect(config.NATS.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsConn.Close()
	}

	database, err := db.MakeDB(config)
	if err != nil {
		return fmt.Errorf("failed to make database: %w", err)
	}
	slog.Info("Database connection established")

	if err := seed(database, config); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	store, err := storage.NewStorage(cmd.Context(), config)
	if err != nil {
		return fmt.Errorf("failed to open uploads storage: %w", err)
	}
	defer store.Close()

	serverMetrics := metrics.NewMetrics()
	bus := events.NewBus(natsConn)
	mapsClient := maps.NewClient(config, redisClient)
	renderer := render.NewRenderer(mapsClient, serverMetrics)
	synchronizer := routesync.NewSynchronizer(database, bus, serverMetrics)

	services := &server.Services{
		Trips:        trips.NewService(database, config, mapsClient, bus),
		Media:        media.NewService(database, config, store, bus, serverMetrics),
		Guestbook:    guestbook.NewService(database, config),
		Playlists:    playlists.NewService(database),
		Maps:         mapsClient,
		Synchronizer: synchronizer,
		Renderer:     renderer,
		Storage:      store,
		Metrics:      serverMetrics,
	}

	slog.Info("Starting HTTP server")
	httpServer := server.NewServer(config, database, redisClient, services)
	err = httpServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	stop := func(_ os.Signal) {
		slog.Info("Shutting down")

		errGrp := errgroup.Group{}

		errGrp.Go(func() error {
			return httpServer.Stop()
		})

		err := errGrp.Wait()
		if err != nil {
			slog.Error("Shutdown error", "error", err.Error())
		}
		slog.Info("Shutdown complete")
	}

	if cmd.Annotations["version"] == "testing" {
		doneChannel := make(chan struct{})
		go func() {
			slog.Info("Sleeping for 5 seconds")
			time.Sleep(5 * time.Second)
			slog.Info("Sending SIGTERM")
			stop(syscall.SIGTERM)
			doneChannel <- struct{}{}
		}()
		<-doneChannel
	} else {
		shutdown.AddWithParam(stop)
		shutdown.Listen(syscall.SIGINT, syscall.SIGKILL, syscall.SIGTERM, syscall.SIGQUIT)
	}

	return nil
}

// seed makes sure the default route exists and, when configured, the
// initial admin account.
func seed(database *gorm.DB, config *config.Config) error {
	if config.Trip.DefaultRoute != "" {
		_, err := models.FindRouteByName(database, config.Trip.DefaultRoute)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = database.Create(&models.Route{Name: config.Trip.DefaultRoute}).Error
		}
		if err != nil {
			return err
		}
	}

	if config.Admin.Email == "" || config.Admin.Password == "" {
		return nil
	}
	_, err := models.FindUserByEmail(database, config.Admin.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(config.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	slog.Info("Creating admin user", "email", config.Admin.Email)
	return database.Create(&models.User{
		Email:        config.Admin.Email,
		PasswordHash: string(hash),
		Admin:        true,
	}).Error
}
