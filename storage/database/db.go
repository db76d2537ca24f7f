// Package database opens the configured storage engine and builds the repositories on top of it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
	appfs "github.com/PalomaresAndrea/gestion-planeacion-sub000/fs"
	inmemdb "github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database/inmem"
	mongorepos "github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database/mongo"
	sqlxrepos "github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database/sqlx"
)

// Engines
const (
	EngineMemory   = "memory"
	EnginePostgres = "postgres"
	EngineMongo    = "mongodb"
)

// Store groups the repositories of one engine.
type Store struct {
	Users    user.Repository
	Plans    plan.Repository
	Progress progress.Repository
	Evidence evidence.Repository

	close func(ctx context.Context) error
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// NewMemoryStore returns a Store backed by in-memory tables.
func NewMemoryStore() *Store {
	db := inmemdb.Open()
	return &Store{
		Users:    inmemdb.NewUserRepository(db),
		Plans:    inmemdb.NewPlanRepository(db),
		Progress: inmemdb.NewProgressRepository(db),
		Evidence: inmemdb.NewEvidenceRepository(db),
	}
}

// NewStore opens the engine named by `database.engine`.
// PostgreSQL is migrated up and MongoDB gets its indexes before the Store is returned.
func NewStore(ctx context.Context, conf *core.Config) (*Store, error) {
	switch conf.Database.Engine {
	case EngineMemory, "":
		return NewMemoryStore(), nil

	case EnginePostgres:
		db, err := Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		if err = ping(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "pinging database")
		}
		if err = Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Store{
			Users:    sqlxrepos.NewUserRepository(db),
			Plans:    sqlxrepos.NewPlanRepository(db),
			Progress: sqlxrepos.NewProgressRepository(db),
			Evidence: sqlxrepos.NewEvidenceRepository(db),
			close:    func(context.Context) error { return db.Close() },
		}, nil

	case EngineMongo:
		client, err := OpenMongo(ctx, conf)
		if err != nil {
			return nil, err
		}
		mdb := client.Database(conf.Database.Name)
		if err = mongorepos.EnsureIndexes(ctx, mdb); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &Store{
			Users:    mongorepos.NewUserRepository(mdb),
			Plans:    mongorepos.NewPlanRepository(mdb),
			Progress: mongorepos.NewProgressRepository(mdb),
			Evidence: mongorepos.NewEvidenceRepository(mdb),
			close:    client.Disconnect,
		}, nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func dsn(dbName string, admin bool, conf *core.Config) string {
	usr := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		usr = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     usr,
		Host:     net.JoinHostPort(conf.Database.Host, conf.Database.Port),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the application database as the application user.
func Open(conf *core.Config) (*sqlx.DB, error) {
	return sqlx.Open("postgres", dsn(conf.Database.Name, false, conf))
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.GetContext(ctx, &found, db.Rebind("SELECT EXISTS ("+query+")"), name)
	return found, err
}

// CreateIfNotExist creates the application user (as admin) and database (as the application user).
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	admin, err := sqlx.Open("postgres", dsn("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()
	if err = ping(ctx, admin.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	if conf.Database.User != "" {
		found, err := exists(ctx, admin, "SELECT 1 FROM pg_roles WHERE rolname = ?", conf.Database.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !found {
			q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
				pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password))
			if _, err = admin.ExecContext(ctx, q); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	app, err := sqlx.Open("postgres", dsn("postgres", false, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = app.Close() }()

	found, err := exists(ctx, app, "SELECT 1 FROM pg_database WHERE datname = ?", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if !found {
		if _, err = app.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// Migrate runs a goose command (up, down, status, ...) with the embedded migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Run(command, db, appfs.MigrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}

// OpenMongo connects to `database.mongoURI` and pings the primary.
func OpenMongo(ctx context.Context, conf *core.Config) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(conf.Database.MongoURI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongodb")
	}
	return client, nil
}
