package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	"github.com/cinematiq/authd"
	"github.com/cinematiq/authd/activitymap"
	"github.com/cinematiq/authd/config"
	"github.com/cinematiq/authd/middleware/jwtware"
	"github.com/cinematiq/authd/notify"
)

//go:embed data/fixtures/*.yml
var fixturesFS embed.FS

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	bunDB    *bun.DB
	auth     authd.Authenticator
	auther   authd.HTTPAuthenticator
	repo     authd.RepositoryManager
	activity authd.ActivitySink
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("authd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	var db *sql.DB
	var dialect schema.Dialect
	var err error

	switch pcfg.GetDriver() {
	case "postgres":
		db = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(pcfg.GetDSN())))
		dialect = pgdialect.New()
	default:
		db, err = sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
		if err != nil {
			return err
		}
		dialect = sqlitedialect.New()
	}

	persistence.RegisterModel((*authd.User)(nil))

	client, err := persistence.New(pcfg, db, dialect)
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(authd.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	if pcfg.GetDebug() {
		client.RegisterFixtures(fixturesFS).AddOptions(persistence.WithTrucateTables())

		if err := client.Seed(ctx); err != nil {
			return err
		}
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		fmt.Printf("report: %s\n", report.String())
	}

	activityLogger := app.GetLogger("activity")
	sink := authd.ActivitySinkFunc(func(ctx context.Context, event authd.ActivityEvent) error {
		record := activitymap.Normalize(event)
		activityLogger.Info("activity",
			"actor_id", record.ActorID,
			"verb", record.Verb,
			"object_id", record.ObjectID,
			"channel", record.Channel,
		)
		return nil
	})

	app.bunDB = client.DB()
	app.activity = sink
	app.repo = authd.NewRepositoryManager(client.DB(),
		authd.WithUsersStateMachineOptions(authd.WithStateMachineActivitySink(sink)),
	)

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	origin := app.Config().GetServer().GetAllowedOrigin()

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		fa := router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))

		// the client sends the session cookie cross-origin
		fa.Use(cors.New(cors.Config{
			AllowOrigins:     origin,
			AllowCredentials: true,
		}))

		return fa
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Status(http.StatusOK).SendString("API WORKING")
	})

	app.srv = srv

	return nil
}

// userTrackerAdapter narrows the repository surface to what the user
// provider needs; Users.GetByIdentifier is variadic so the repository does
// not satisfy authd.UserTracker directly.
type userTrackerAdapter struct {
	users authd.Users
}

func (a userTrackerAdapter) GetByIdentifier(ctx context.Context, identifier string) (*authd.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a userTrackerAdapter) TrackAttemptedLogin(ctx context.Context, user *authd.User) error {
	return a.users.TrackAttemptedLogin(ctx, user)
}

func (a userTrackerAdapter) TrackSucccessfulLogin(ctx context.Context, user *authd.User) error {
	return a.users.TrackSucccessfulLogin(ctx, user)
}

func WithHTTPAuth(ctx context.Context, app *App) error {
	cfg := app.Config().GetAuth()

	if err := app.repo.Validate(); err != nil {
		return err
	}

	userProvider := authd.NewUserProvider(userTrackerAdapter{users: app.repo.Users()})
	userProvider.WithLogger(app.GetLogger("auth:prv"))

	authenticator := authd.NewAuthenticator(userProvider, cfg)
	authenticator.WithLogger(app.GetLogger("auth:authn"))
	authenticator.WithActivitySink(app.activity)

	app.auth = authenticator

	httpAuth, err := authd.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}

	httpAuth.WithLogger(app.GetLogger("auth:http"))
	httpAuth.WithValidationListeners(func(ctx router.Context, claims jwtware.AuthClaims) error {
		app.GetLogger("auth:listener").Debug("validated token", "user_id", claims.UserID())
		return nil
	})

	app.auther = httpAuth

	ecfg := app.Config().GetEmail()
	mailer := notify.NewMailer(notify.Config{
		Host:     ecfg.GetHost(),
		Port:     ecfg.GetPort(),
		Username: ecfg.GetUsername(),
		Password: ecfg.GetPassword(),
		From:     ecfg.GetFrom(),
	}).WithLogger(app.GetLogger("notify"))

	notifier := authd.NewAsyncNotifier(mailer, app.GetLogger("notify:async"))

	authd.RegisterAuthRoutes(app.srv.Router().Group("/api/auth"),
		func(ac *authd.AuthController) *authd.AuthController {
			ac.Debug = app.Config().GetPersistence().GetDebug()
			ac.Auther = httpAuth
			ac.Repo = app.repo
			ac.Config = cfg
			ac.Notifier = notifier
			ac.ActivitySink = app.activity
			ac.ClientURL = app.Config().GetClient().GetURL()
			ac.WithLogger(app.GetLogger("auth:ctrl"))
			return ac
		})

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 2)
	signal.Notify(
		ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
