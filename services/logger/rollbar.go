package logsvc

import (
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/studygroups/core"
)

func setupRollbar(conf *core.Config) {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	if host, err := os.Hostname(); err == nil {
		rollbar.SetServerHost(host)
	}
	rollbar.SetEnabled(true)
}

// expected fmt: msg | error, map[string]interface{}, core.Actor
func prepare(msg string, args []interface{}) []interface{} {
	var actorSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Actor:
			if !actorSet { // only one person per item
				rollbar.SetPerson(a.ID, a.Name, "")
				actorSet = true
			}
		case error, map[string]interface{}:
			newArgs = append(newArgs, a)
		}
	}
	if !actorSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func reportInfo(msg string, args []interface{})     { rollbar.Info(prepare(msg, args)...) }
func reportWarning(msg string, args []interface{})  { rollbar.Warning(prepare(msg, args)...) }
func reportError(msg string, args []interface{})    { rollbar.Error(prepare(msg, args)...) }
func reportCritical(msg string, args []interface{}) { rollbar.Critical(prepare(msg, args)...) }

func waitRollbar() { rollbar.Wait() }
