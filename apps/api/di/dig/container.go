package dig_container

import (
	"context"
	"log"
	"math/rand"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/studygroups/apps/api/echo"
	"github.com/trezcool/studygroups/core"
	"github.com/trezcool/studygroups/core/study"
	emailsvc "github.com/trezcool/studygroups/services/email"
	logsvc "github.com/trezcool/studygroups/services/logger"
	"github.com/trezcool/studygroups/services/sweeper"
	"github.com/trezcool/studygroups/storage/database"
	inmemdb "github.com/trezcool/studygroups/storage/database/inmem"
	sqlxrepos "github.com/trezcool/studygroups/storage/database/sqlx"
)

const setupTimeout = time.Minute

// DB is the SQL connection of the configured engine; nil for the memory engine.
type DB struct {
	*sqlx.DB
}

func (db DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

func newLogger(conf *core.Config) (*logsvc.Logger, error) {
	return logsvc.New(conf)
}

func asCoreLogger(logger *logsvc.Logger) core.Logger {
	return logger
}

func newDB(conf *core.Config) (DB, error) {
	if conf.Database.Engine == database.EngineMemory {
		return DB{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return DB{}, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return DB{}, errors.Wrap(err, "opening database")
	}
	if err = database.Ping(ctx, db, 10); err != nil {
		_ = db.Close()
		return DB{}, err
	}
	return DB{db}, nil
}

// newRepository migrates SQL databases up before handing out their repository.
func newRepository(conf *core.Config, db DB) (study.Repository, error) {
	if db.DB == nil {
		return inmemdb.NewSnapshotRepository(), nil
	}
	if err := database.Migrate(db.DB, conf.Database.Engine); err != nil {
		return nil, err
	}
	return sqlxrepos.NewSnapshotRepository(db.DB), nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	study.InitValidators(validate, translator)
	return validate
}

// NewPolicy builds the grouping rules from the study config.
func NewPolicy(conf *core.Config) study.Policy {
	sc := conf.Study
	return study.Policy{
		MidCutoff:    sc.MidCutoff,
		HighCutoff:   sc.HighCutoff,
		Quota:        study.Composition{Low: sc.QuotaLow, Mid: sc.QuotaMid, High: sc.QuotaHigh},
		MinAvgRating: sc.MinAvgRating,
		MaxRating:    sc.MaxRating,
	}
}

func newStudyService(
	conf *core.Config,
	policy study.Policy,
	repo study.Repository,
	mailSvc core.EmailService,
	logger core.Logger,
) (*study.Service, error) {
	opts := study.Options{AppName: conf.AppName, Policy: policy}
	if conf.Study.RandomSeed != 0 {
		opts.Rand = rand.New(rand.NewSource(conf.Study.RandomSeed))
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	return study.NewService(ctx, repo, mailSvc, logger, opts)
}

func newServerOptions(conf *core.Config) *echoapi.Options {
	return &echoapi.Options{
		Address:        conf.Server.Addr,
		AppName:        conf.AppName,
		SecretKey:      conf.SecretKey,
		Debug:          conf.Debug,
		TestMode:       conf.TestMode,
		DisableReqLogs: conf.Server.DisableReqLogs,
	}
}

func newSweeper(conf *core.Config, svc *study.Service, logger core.Logger) *sweeper.Runner {
	return sweeper.New(svc, conf.Study.SweepInterval, logger)
}

// New returns a new dependency injection dig.Container.
// Constructors run lazily: commands that never ask for the study service never touch the repository.
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(asCoreLogger))
	must(c.Provide(newDB))
	must(c.Provide(newRepository))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(NewPolicy))
	must(c.Provide(newStudyService))
	must(c.Provide(newServerOptions))
	must(c.Provide(echoapi.NewServer))
	must(c.Provide(newSweeper))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
