package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studygroups/core"
	"github.com/trezcool/studygroups/core/study"
	emailsvc "github.com/trezcool/studygroups/services/email"
	logsvc "github.com/trezcool/studygroups/services/logger"
	inmemdb "github.com/trezcool/studygroups/storage/database/inmem"
)

const testSecret = "test-secret"

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testApp struct {
	server     *Server
	svc        *study.Service
	mailSvc    *emailsvc.ConsoleService
	adminToken string
	userToken  string
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := &core.Config{AppName: "Study Groups", TestMode: true}
	logger := logsvc.NewNop()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	study.InitValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	svc, err := study.NewService(context.Background(), inmemdb.NewSnapshotRepository(), mailSvc, logger, study.Options{
		AppName: conf.AppName,
		Policy:  study.DefaultPolicy,
		Rand:    rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)

	server := NewServer(
		&Options{AppName: conf.AppName, SecretKey: testSecret, TestMode: true, DisableReqLogs: true},
		logger, svc, validate, translator,
	)
	return &testApp{
		server:     server,
		svc:        svc,
		mailSvc:    mailSvc,
		adminToken: getToken(t, "admin", true),
		userToken:  getToken(t, "student", false),
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func getToken(t *testing.T, subject string, isAdmin bool) string {
	t.Helper()
	token, err := GenerateToken(testSecret, NewClaims("Study Groups", subject, isAdmin, time.Hour))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func (app *testApp) do(method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

// seedPool registers CS101/English with a full group worth of waiting students.
func (app *testApp) seedPool(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := app.svc.AddSubject(ctx, study.NewSubject{Code: "CS101"})
	require.NoError(t, err)
	_, err = app.svc.AddLanguage(ctx, "CS101", study.NewLanguage{Language: "English"})
	require.NoError(t, err)
	marks := []float64{90, 80, 60, 55, 45, 20, 10}
	for i, m := range marks {
		m := m
		_, err := app.svc.Enqueue(ctx, "CS101", "English", study.NewStudent{ID: i + 1, Name: names[i], Marks: &m})
		require.NoError(t, err)
	}
}

var names = []string{"Amanda", "Bethany", "Amandine", "Carl", "Dmitri", "Esther", "Farouk"}

func TestHome(t *testing.T) {
	app := setup(t)
	rec := app.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Study Groups API!", rec.Body.String())
}
