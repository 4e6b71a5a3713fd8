package di

import (
	"context"
	"fmt"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/handler"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/notify"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/repository"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/service"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/worker"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/config"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/database"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/logger"
	pkgredis "github.com/NathanDrake2406/QueueDrop-sub002/pkg/redis"
	"go.uber.org/zap"
)

// Container holds all dependencies for the waitlist service
type Container struct {
	Config *config.Config

	// Infrastructure
	DB    *database.PostgresDB
	Redis *pkgredis.Client

	// Repositories
	QueueRepo repository.QueueRepository

	// Publishers
	Publisher *notify.MultiPublisher

	// Services
	QueueService service.QueueService

	// Workers
	Sweeper *worker.NoShowSweeper

	// Handlers
	HealthHandler   *handler.HealthHandler
	CustomerHandler *handler.CustomerHandler
	StaffHandler    *handler.StaffHandler
	AdminHandler    *handler.AdminHandler
}

// ContainerConfig allows callers to inject pre-built dependencies.
// Anything left nil is built from Config.
type ContainerConfig struct {
	Config    *config.Config
	DB        *database.PostgresDB
	Redis     *pkgredis.Client
	QueueRepo repository.QueueRepository
	Publisher *notify.MultiPublisher
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cc *ContainerConfig) (*Container, error) {
	if cc == nil || cc.Config == nil {
		return nil, fmt.Errorf("container config is required")
	}
	cfg := cc.Config
	log := logger.Get()

	c := &Container{
		Config:    cfg,
		DB:        cc.DB,
		Redis:     cc.Redis,
		QueueRepo: cc.QueueRepo,
		Publisher: cc.Publisher,
	}

	if c.QueueRepo == nil {
		if err := c.buildRepository(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	if c.Publisher == nil {
		c.Publisher = c.buildPublisher(ctx)
	}
	log.Info("Notification channels configured", zap.Strings("channels", c.Publisher.Channels()))

	defaults := domain.QueueSettings{
		EstimatedServiceMinutes: cfg.Waitlist.DefaultServiceMinutes,
		NoShowTimeoutMinutes:    cfg.Waitlist.DefaultNoShowMinutes,
	}
	if err := defaults.Validate(); err != nil {
		c.Close()
		return nil, fmt.Errorf("default queue settings: %w", err)
	}

	// Initialize services
	c.QueueService = service.NewQueueService(c.QueueRepo, &service.QueueServiceConfig{
		Publisher: c.Publisher,
		NearFront: notify.Options{
			NearFrontThreshold: cfg.Waitlist.NearFrontThreshold,
			NearFrontMode:      notify.NearFrontMode(cfg.Waitlist.NearFrontMode),
		},
		ConflictRetries: cfg.Waitlist.ConflictRetries,
		DefaultSettings: &defaults,
	})

	// Initialize workers
	c.Sweeper = worker.NewNoShowSweeper(c.QueueService, &worker.NoShowSweeperConfig{
		ScanInterval: cfg.Waitlist.SweepInterval,
	})

	// Initialize handlers
	checks := map[string]handler.HealthCheck{
		"storage": c.QueueRepo.Ping,
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.Ping
	}
	c.HealthHandler = handler.NewHealthHandler(checks)
	c.CustomerHandler = handler.NewCustomerHandler(c.QueueService)
	c.StaffHandler = handler.NewStaffHandler(c.QueueService)
	c.AdminHandler = handler.NewAdminHandler(c.Sweeper)

	return c, nil
}

func (c *Container) buildRepository(ctx context.Context) error {
	cfg := c.Config
	log := logger.Get()

	switch cfg.Waitlist.StorageDriver {
	case config.StorageDriverMemory:
		c.QueueRepo = repository.NewMemoryQueueRepository()

	case config.StorageDriverRedis:
		if err := c.connectRedis(ctx); err != nil {
			return err
		}
		repo := repository.NewRedisQueueRepository(c.Redis)
		if err := repo.LoadScripts(ctx); err != nil {
			log.Warn("Failed to pre-load Lua scripts", zap.Error(err))
		}
		c.QueueRepo = repo

	case config.StorageDriverPostgres:
		db, err := database.NewPostgres(ctx, &database.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnectTimeout:  5 * time.Second,
			MaxRetries:      3,
			RetryInterval:   time.Second,
			EnableTracing:   cfg.Database.EnableTracing,
		})
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		c.DB = db
		c.QueueRepo = repository.NewPostgresQueueRepository(db.Pool())
		log.Info("Database connected",
			zap.Int("min_conns", cfg.Database.MinConns),
			zap.Int("max_conns", cfg.Database.MaxConns),
		)

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Waitlist.StorageDriver)
	}

	log.Info("Queue storage ready", zap.String("driver", cfg.Waitlist.StorageDriver))
	return nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	if c.Redis != nil {
		return nil
	}
	cfg := c.Config.Redis
	client, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Password:      cfg.Password,
		DB:            cfg.DB,
		PoolSize:      cfg.PoolSize,
		MinIdleConns:  cfg.MinIdleConns,
		DialTimeout:   cfg.DialTimeout,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		PoolTimeout:   4 * time.Second,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	c.Redis = client
	return nil
}

// buildPublisher assembles the enabled channels. A channel that cannot
// connect is skipped with a warning; notifications are best effort.
func (c *Container) buildPublisher(ctx context.Context) *notify.MultiPublisher {
	cfg := c.Config
	log := logger.Get()
	var publishers []notify.Publisher

	if cfg.Notify.RedisEnabled {
		if err := c.connectRedis(ctx); err != nil {
			log.Warn("Redis notifications disabled", zap.Error(err))
		} else {
			publishers = append(publishers, notify.NewRedisPublisher(c.Redis.Client(), cfg.Notify.RedisChannelPrefix))
		}
	}

	if cfg.Notify.KafkaEnabled {
		p, err := notify.NewKafkaPublisher(ctx, &notify.KafkaPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Notify.KafkaTopic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			log.Warn("Kafka notifications disabled", zap.Error(err))
		} else {
			publishers = append(publishers, p)
		}
	}

	if cfg.Notify.PubNubEnabled {
		p, err := notify.NewPubNubPublisher(&notify.PubNubConfig{
			PublishKey:   cfg.PubNub.PublishKey,
			SubscribeKey: cfg.PubNub.SubscribeKey,
			SecretKey:    cfg.PubNub.SecretKey,
		})
		if err != nil {
			log.Warn("PubNub notifications disabled", zap.Error(err))
		} else {
			publishers = append(publishers, p)
		}
	}

	return notify.NewMultiPublisher(publishers...)
}

// Close releases publishers and connections
func (c *Container) Close() {
	log := logger.Get()
	if c.Sweeper != nil {
		c.Sweeper.Stop()
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			log.Warn("Failed to close publishers", zap.Error(err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
