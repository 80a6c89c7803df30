package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/speedystriders/tracker/internal/config"
	"github.com/speedystriders/tracker/internal/db"
	"github.com/speedystriders/tracker/internal/docstore"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/repository"
	"github.com/speedystriders/tracker/internal/service"
	"github.com/speedystriders/tracker/internal/session"
	"github.com/speedystriders/tracker/internal/storage"
)

type App struct {
	Cfg             *config.Config
	DB              *sqlx.DB
	Store           *docstore.Store
	Sessions        *session.Manager
	RacerService    *service.RacerService
	RecordService   *service.RecordService
	TrainingService *service.TrainingService
	CourseService   *service.CourseService
	AvatarService   *service.AvatarService
	AdminService    *service.AdminService
	TimerService    *service.TimerService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Document store
	store, err := openStore(cfg, database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	// Repositories
	racerRepository := repository.NewRacerRepository(store)
	recordRepository := repository.NewRecordRepository(store)
	trainingRepository := repository.NewTrainingRepository(store)

	// Storage (optional)
	var avatarStorage storage.Storage
	if cfg.AvatarUploadsEnabled() {
		s3, err := storage.New(context.Background(), cfg)
		if err != nil {
			store.Close()
			database.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		avatarStorage = s3
	}

	// Services
	loc := cfg.Location()
	recordService := service.NewRecordService(recordRepository, racerRepository, loc)
	trainingService := service.NewTrainingService(trainingRepository, racerRepository, loc)

	var avatarService *service.AvatarService
	cascade := func(ctx context.Context, racer *model.Racer) error {
		err := recordService.DeleteByRacer(ctx, racer.ID)
		if err != nil {
			return err
		}
		err = trainingService.DeleteByRacer(ctx, racer.ID)
		if err != nil {
			return err
		}
		avatarService.Remove(ctx, racer.Avatar)
		return nil
	}

	racerService := service.NewRacerService(racerRepository, service.NewGate(cfg.AdminPassword), cascade)
	avatarService = service.NewAvatarService(avatarStorage, racerService)
	adminService := service.NewAdminService(cfg.AdminPassword, racerService, recordService)
	timerService := service.NewTimerService(recordService, trainingService)

	courseService := service.NewCourseService(cfg.ContentPath)
	err = courseService.Load()
	if err != nil {
		store.Close()
		database.Close()
		return nil, fmt.Errorf("failed to load courses: %w", err)
	}

	return &App{
		Cfg:             cfg,
		DB:              database,
		Store:           store,
		Sessions:        session.NewManager(cfg.SessionSecret, cfg.IsProduction()),
		RacerService:    racerService,
		RecordService:   recordService,
		TrainingService: trainingService,
		CourseService:   courseService,
		AvatarService:   avatarService,
		AdminService:    adminService,
		TimerService:    timerService,
	}, nil
}

// openStore picks the document backend and, on Postgres, a LISTEN/NOTIFY
// change feed so every instance sees writes of the others.
func openStore(cfg *config.Config, database *sqlx.DB) (*docstore.Store, error) {
	var notifier docstore.Notifier = docstore.NewLocalNotifier()
	if cfg.DBDriver == db.DriverPostgres && cfg.StoreBackend == config.StoreBackendSQL {
		notifier = docstore.NewPGNotifier(database, cfg.DBConnection)
	}

	switch cfg.StoreBackend {
	case config.StoreBackendSQL:
		slog.Info("document store ready", "backend", cfg.StoreBackend, "driver", cfg.DBDriver)
		return docstore.New(docstore.NewSQLBackend(database), notifier), nil
	case config.StoreBackendBadger:
		backend, err := docstore.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		slog.Info("document store ready", "backend", cfg.StoreBackend, "path", cfg.BadgerPath)
		return docstore.New(backend, notifier), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (a *App) Close() error {
	if a.Store != nil {
		err := a.Store.Close()
		if err != nil {
			slog.Error("failed to close document store", "error", err)
		}
	}
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
