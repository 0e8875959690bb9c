package main

import (
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/fee"
	"github.com/developer0000009-hue/schoolportal/core/sharecode"
	logsvc "github.com/developer0000009-hue/schoolportal/services/logger"
	"github.com/developer0000009-hue/schoolportal/storage/database"
	dummydb "github.com/developer0000009-hue/schoolportal/storage/database/dummy"
	"github.com/developer0000009-hue/schoolportal/storage/database/postgrest"
	rpcrepos "github.com/developer0000009-hue/schoolportal/storage/database/rpc"
	sqlxdb "github.com/developer0000009-hue/schoolportal/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger, err := logsvc.New(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}

	remote, closeRemote, err := openRemote(conf)
	if err != nil {
		logger.Fatal("setting up remote", err)
	}

	cli := commandLine{
		onboarding: rpcrepos.NewOnboardingRepository(remote),
		codes:      sharecode.NewService(rpcrepos.NewShareCodeRepository(remote)),
		fees:       fee.NewService(rpcrepos.NewFeeRepository(remote), nil, logger),
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	closeRemote()
	logger.Sync()
	if err != nil {
		if err != errHelp {
			log.Printf("\nerror: %s\n", core.ErrorMessage(err))
		}
		os.Exit(1)
	}
}

// openRemote connects with the service role: row policies do not apply.
func openRemote(conf *core.Config) (core.Remote, func(), error) {
	switch conf.Remote.Transport {
	case core.TransportPostgREST:
		key, err := serviceKey(conf, os.Stdout)
		if err != nil {
			return nil, nil, err
		}
		return postgrest.New(conf.Remote.URL, key, conf.Remote.Timeout), func() {}, nil
	case core.TransportSQL:
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		sdb := sqlxdb.New(db)
		return sdb, func() { _ = sdb.Close() }, nil
	case core.TransportDummy:
		db, err := dummydb.Open()
		return db, func() {}, err
	}
	return nil, nil, errors.Errorf("unknown remote transport %q", conf.Remote.Transport)
}
