package database

import (
	"context"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
)

const driverName = "postgres"

// DSN returns the database URL of conf with UTC timestamps and TLS required unless set.
func DSN(conf *core.Config) (string, error) {
	u, err := url.Parse(conf.Remote.DatabaseURL)
	if err != nil {
		return "", errors.Wrap(err, "parsing database URL")
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", errors.Errorf("unsupported database scheme %q", u.Scheme)
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "require")
	}
	q.Set("timezone", "utc")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open connects to the store's database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	dsn, err := DSN(conf)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}
