// Package app builds the shared service graph for the api and worker binaries.
package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"attendtrack/internal/analytics"
	"attendtrack/internal/archive"
	"attendtrack/internal/attendance"
	"attendtrack/internal/config"
	"attendtrack/internal/notify"
	"attendtrack/internal/queue"
	"attendtrack/internal/retention"
	"attendtrack/internal/store"
)

// App is the wired set of services.
type App struct {
	DB        *store.DB
	Redis     *store.Redis
	Repo      *attendance.Repository
	Students  *attendance.Service
	Analytics *analytics.Service
	Notify    *notify.Service
	Queue     queue.Queue
	Sweeper   *retention.Sweeper
}

// New connects to the database, applies the schema and wires every service.
func New(ctx context.Context, cfg config.App, log zerolog.Logger) (*App, error) {
	db, err := store.NewDB(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db.Client); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{DB: db}
	a.Repo = attendance.NewRepository(db.Client)
	a.Students = attendance.NewService(a.Repo)
	a.Analytics = analytics.NewService(a.Repo)

	switch cfg.QueueBackend {
	case "memory":
		a.Queue = queue.NewInMemory(64)
	case "redis":
		a.Redis = store.NewRedis(cfg.RedisAddr)
		a.Queue = queue.NewRedisQueue(a.Redis.Client, queue.DefaultKey, log.With().Str("component", "queue").Logger())
	default:
		log.Warn().Str("backend", cfg.QueueBackend).Msg("queue disabled")
	}

	dispatcher := notify.NewDispatcher(Senders(cfg.Notify, log), a.Repo, notify.Options{
		CountryCode: cfg.Notify.CountryCode,
		Concurrency: cfg.Notify.Concurrency,
		SchoolName:  cfg.Notify.SchoolName,
	}, log.With().Str("component", "notify").Logger())
	a.Notify = notify.NewService(a.Repo, a.Analytics, dispatcher)

	a.Sweeper = retention.NewSweeper(a.Repo, log.With().Str("component", "retention").Logger(),
		cfg.Retention.Period, cfg.Retention.Interval)
	if cfg.Retention.Schedule != "" {
		if err := a.Sweeper.Schedule(cfg.Retention.Schedule); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

// StartConsumer dispatches queued jobs in a background goroutine until ctx
// is done. The api binary uses it for the memory backend, whose queue lives
// only in that process.
func (a *App) StartConsumer(ctx context.Context, log zerolog.Logger) error {
	if a.Queue == nil {
		return nil
	}
	messages, err := a.Queue.Consume(ctx)
	if err != nil {
		return err
	}
	go Drain(ctx, messages, a.Notify, log)
	return nil
}

// Drain handles notification jobs until messages is closed.
func Drain(ctx context.Context, messages <-chan queue.Message, svc *notify.Service, log zerolog.Logger) {
	for msg := range messages {
		out, err := svc.HandleJob(ctx, msg)
		if err != nil {
			log.Error().Err(err).Str("type", msg.Type).Msg("job failed")
			continue
		}
		log.Info().Str("type", msg.Type).
			Int("total", out.Total).
			Int("succeeded", out.Succeeded).
			Int("failed", out.Failed).
			Int("no_contact", out.NoContact).
			Msg("job processed")
	}
}

// Close releases the database and redis pools.
func (a *App) Close() error {
	rerr := a.Redis.Close()
	if err := a.DB.Close(); err != nil {
		return err
	}
	return rerr
}

// Senders uses Twilio and SendGrid when credentials are present and logs
// messages to the console otherwise.
func Senders(cfg config.Notify, log zerolog.Logger) notify.Senders {
	console := notify.NewConsoleSender(log.With().Str("component", "console_sender").Logger())
	senders := notify.Senders{
		notify.ChannelSMS:      console,
		notify.ChannelWhatsApp: console,
		notify.ChannelEmail:    console,
	}
	if cfg.TwilioSID != "" && cfg.TwilioToken != "" {
		tw := notify.NewTwilioSender(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioSMSFrom, cfg.TwilioWAFrom)
		senders[notify.ChannelSMS] = tw
		senders[notify.ChannelWhatsApp] = tw
	} else {
		log.Warn().Msg("twilio not configured, sms and whatsapp go to console")
	}
	if cfg.SendGridKey != "" {
		senders[notify.ChannelEmail] = notify.NewSendGridSender(cfg.SendGridKey, cfg.MailFromName, cfg.MailFrom)
	} else {
		log.Warn().Msg("sendgrid not configured, email goes to console")
	}
	return senders
}

// Archive returns the configured roster archive, or nil when archiving is off.
func Archive(cfg config.Archive) (archive.Storage, error) {
	switch cfg.Backend {
	case "s3":
		s, err := archive.NewS3Storage(archive.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "cloudinary":
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, errors.New("cloudinary archive needs CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
		return archive.NewCloudinaryStorage(archive.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}), nil
	case "", "none":
		return nil, nil
	default:
		return nil, errors.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
