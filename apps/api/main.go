package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/developer0000009-hue/schoolportal/apps/api/echo"
	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/branch"
	"github.com/developer0000009-hue/schoolportal/core/dashboard"
	"github.com/developer0000009-hue/schoolportal/core/expense"
	"github.com/developer0000009-hue/schoolportal/core/fee"
	"github.com/developer0000009-hue/schoolportal/core/onboarding"
	"github.com/developer0000009-hue/schoolportal/core/profile"
	"github.com/developer0000009-hue/schoolportal/core/role"
	"github.com/developer0000009-hue/schoolportal/core/sharecode"
	emailsvc "github.com/developer0000009-hue/schoolportal/services/email"
	geosvc "github.com/developer0000009-hue/schoolportal/services/geo"
	logsvc "github.com/developer0000009-hue/schoolportal/services/logger"
	"github.com/developer0000009-hue/schoolportal/services/metrics"
	"github.com/developer0000009-hue/schoolportal/storage/database"
	dummydb "github.com/developer0000009-hue/schoolportal/storage/database/dummy"
	"github.com/developer0000009-hue/schoolportal/storage/database/postgrest"
	rpcrepos "github.com/developer0000009-hue/schoolportal/storage/database/rpc"
	sqlxdb "github.com/developer0000009-hue/schoolportal/storage/database/sqlx"
	"github.com/developer0000009-hue/schoolportal/storage/lock"
	objstore "github.com/developer0000009-hue/schoolportal/storage/objects"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger, err := logsvc.New(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	defer logger.Sync()

	// set up the store
	remote, closeRemote, err := setUpRemote(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s remote: %v", conf.Remote.Transport, err), err)
	}
	defer func() {
		if err = closeRemote.Close(); err != nil {
			logger.Error("closing remote", err)
		}
	}()

	mtr := metrics.New()
	instrumented := mtr.Remote(remote)

	var locker core.Locker = lock.NewMemoryLocker()
	if conf.Redis.Addr != "" {
		rl, err := lock.NewRedisLocker(conf, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis locker: %v", err), err)
		}
		defer rl.Close()
		locker = rl
	}

	var invoices core.Bucket
	if conf.Remote.Transport == core.TransportDummy {
		invoices = objstore.NewMemoryBucket(conf.Storage.InvoicesBucket, "http://localhost"+conf.Server.Host)
	} else {
		storageURL := conf.Storage.URL
		if storageURL == "" {
			storageURL = conf.Remote.URL
		}
		invoices = objstore.NewBucket(storageURL, conf.Remote.AnonKey, conf.Storage.InvoicesBucket, conf.Remote.Timeout)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var resolver branch.AddressResolver
	if conf.OpenAI.APIKey != "" {
		resolver = geosvc.NewResolver(geosvc.NewOpenAICompleter(conf))
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	role.InitValidators(validate, translator)
	branch.InitValidators(validate, translator)
	fee.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	roleSvc := role.NewService(rpcrepos.NewRoleRepository(instrumented), validate)
	profileSvc := profile.NewService(rpcrepos.NewProfileRepository(instrumented), validate)
	ctrl := onboarding.NewController(
		rpcrepos.NewOnboardingRepository(instrumented), roleSvc, profileSvc,
		locker, conf.Onboarding.LockTTL, validate, logger,
	)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("transport").Set(conf.Remote.Transport)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			Metrics:      mtr,
			Onboarding:   ctrl,
			ProfileSvc:   profileSvc,
			BranchSvc:    branch.NewService(rpcrepos.NewBranchRepository(instrumented), resolver, mailSvc, validate, logger),
			FeeSvc:       fee.NewService(rpcrepos.NewFeeRepository(instrumented), validate, logger),
			ExpenseSvc:   expense.NewService(rpcrepos.NewExpenseRepository(instrumented), invoices, validate),
			ShareCodeSvc: sharecode.NewService(rpcrepos.NewShareCodeRepository(instrumented)),
			DashboardSvc: dashboard.NewService(rpcrepos.NewDashboardRepository(instrumented), logger),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setUpRemote returns the remote of the configured transport and its closer.
func setUpRemote(conf *core.Config) (core.Remote, io.Closer, error) {
	switch conf.Remote.Transport {
	case core.TransportPostgREST:
		if conf.Remote.URL == "" {
			return nil, nil, errors.New("PORTAL_REMOTE_URL is not set")
		}
		return postgrest.New(conf.Remote.URL, conf.Remote.AnonKey, conf.Remote.Timeout), nopCloser{}, nil
	case core.TransportSQL:
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		sdb := sqlxdb.New(db)
		return sdb, sdb, nil
	case core.TransportDummy:
		db, err := dummydb.Open()
		if err != nil {
			return nil, nil, err
		}
		return db, nopCloser{}, nil
	}
	return nil, nil, errors.Errorf("unknown remote transport %q", conf.Remote.Transport)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
