package main

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/studygroups/apps/api/echo"
	"github.com/trezcool/studygroups/core"
	"github.com/trezcool/studygroups/core/study"
	emailsvc "github.com/trezcool/studygroups/services/email"
	logsvc "github.com/trezcool/studygroups/services/logger"
	"github.com/trezcool/studygroups/storage/database"
	inmemdb "github.com/trezcool/studygroups/storage/database/inmem"
	sqlxrepos "github.com/trezcool/studygroups/storage/database/sqlx"
	"github.com/trezcool/studygroups/storage/snapshotfile"
)

const testSecret = "test-secret"

func newService(t *testing.T, conf *core.Config, repo study.Repository) *study.Service {
	t.Helper()
	logger := logsvc.NewNop()
	svc, err := study.NewService(context.Background(), repo, emailsvc.NewConsoleServiceMock(conf, logger), logger, study.Options{
		AppName: conf.AppName,
		Policy:  study.DefaultPolicy,
		Rand:    rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	return svc
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	conf := &core.Config{
		AppName:   "Study Groups",
		TestMode:  true,
		SecretKey: testSecret,
		Database:  core.DatabaseConfig{Engine: database.EngineSQLite, Path: ":memory:"},
	}

	db, err := database.OpenSQLite(conf.Database.Path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, conf.Database.Engine))

	var svc *study.Service
	out := new(bytes.Buffer)
	cli := &commandLine{
		conf:   conf,
		logger: logsvc.NewNop(),
		db:     db,
		out:    out,
		studySvc: func() (*study.Service, error) {
			if svc == nil {
				svc = newService(t, conf, sqlxrepos.NewSnapshotRepository(db))
			}
			return svc, nil
		},
	}
	return cli, out
}

// sampleSnapshot returns the state of a pool with one group and one waiting student.
func sampleSnapshot(t *testing.T) study.Snapshot {
	t.Helper()
	ctx := context.Background()
	svc := newService(t, &core.Config{AppName: "Study Groups"}, inmemdb.NewSnapshotRepository())

	_, err := svc.AddSubject(ctx, study.NewSubject{Code: "CS101"})
	require.NoError(t, err)
	_, err = svc.AddLanguage(ctx, "CS101", study.NewLanguage{Language: "English"})
	require.NoError(t, err)
	for i, m := range []float64{90, 80, 60, 55, 45, 50, 20, 10} {
		m := m
		_, err = svc.Enqueue(ctx, "CS101", "English", study.NewStudent{ID: i + 1, Name: fmt.Sprintf("Student %d", i+1), Marks: &m})
		require.NoError(t, err)
	}
	_, err = svc.CreateGroup(ctx, "CS101", "English")
	require.NoError(t, err)
	return svc.Export(ctx)
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sqlx.DB, engine string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = database.Run })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		memCli := &commandLine{conf: &core.Config{Database: core.DatabaseConfig{Engine: database.EngineMemory}}, out: new(bytes.Buffer)}
		err := memCli.run([]string{"admin", "migrate", "up"})
		require.Error(t, err)
		assert.Equal(t, `engine "memory" has no migrations`, err.Error())
	})
}

func Test_commandLine_seedExportSweep(t *testing.T) {
	cli, out := setup(t)
	snap := sampleSnapshot(t)

	dir := t.TempDir()
	seedFile := filepath.Join(dir, "seed.yaml")
	require.NoError(t, snapshotfile.Write(seedFile, snap))
	exportFile := filepath.Join(dir, "export.yaml")

	tests := []cliTest{
		{name: "seed without file", args: []string{"seed"}, wantErrStr: `required flag(s) "file" not set`},
		{name: "seed missing file", args: []string{"seed", "-f", filepath.Join(dir, "nope.yaml")}, wantErrStr: "opening snapshot file"},
		{name: "seed", args: []string{"seed", "-f", seedFile}, extra: "seeded 1 subjects, 8 students\n"},
		{name: "export", args: []string{"export", "--file", exportFile}, extra: ""},
		{name: "sweep", args: []string{"sweep"}, extra: "CS101/English: unchanged\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
			if wantOut, ok := tt.extra.(string); ok {
				assert.Equal(t, wantOut, out.String())
			}
		})
	}

	t.Run("exported state", func(t *testing.T) {
		got, err := snapshotfile.Read(exportFile)
		require.NoError(t, err)
		if diff := cmp.Diff(snap, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("exported snapshot mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("export to stdout", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "export"}))
		got, err := snapshotfile.Decode(out)
		require.NoError(t, err)
		if diff := cmp.Diff(snap, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("exported snapshot mismatch (-want +got):\n%s", diff)
		}
	})
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	type extra struct {
		secret  string
		isAdmin bool
	}
	tests := []cliTest{
		{name: "no subject", args: []string{"token"}, wantErrStr: `required flag(s) "subject" not set`},
		{name: "no secret", args: []string{"token", "-s", "alice"}, wantErr: errHelp},
		{name: "wrong secret", args: []string{"token", "-s", "alice"}, extra: extra{secret: "lol"}, wantErr: errWrongSecret},
		{name: "user token", args: []string{"token", "-s", "alice"}, extra: extra{secret: testSecret}},
		{name: "admin token", args: []string{"token", "-s", "bob", "--admin", "--ttl", "1h"}, extra: extra{secret: testSecret, isAdmin: true}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.secret), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(append([]string{"admin"}, tt.args...))
			checkErr(t, tt, err)
			if err != nil {
				return
			}

			fields := strings.Fields(out.String())
			require.NotEmpty(t, fields)
			claims := new(echoapi.Claims)
			_, err = jwt.ParseWithClaims(fields[len(fields)-1], claims, func(*jwt.Token) (interface{}, error) {
				return []byte(testSecret), nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.args[2], claims.Subject)
			assert.Equal(t, tt.extra.(extra).isAdmin, claims.IsAdmin)
			assert.Equal(t, "Study Groups", claims.Issuer)
		})
	}
}
