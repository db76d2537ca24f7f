package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/PalomaresAndrea/gestion-planeacion-sub000/apps/api/echo"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/authz"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/notify"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/report"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
	appfs "github.com/PalomaresAndrea/gestion-planeacion-sub000/fs"
	emailsvc "github.com/PalomaresAndrea/gestion-planeacion-sub000/services/email"
	inmemdb "github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database/inmem"
	filestore "github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/files"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/testutil"
)

const pdfContent = "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\n%%EOF"

var errMissingToken = httpErr{Message: "token de autenticación requerido"}

type httpErr struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type testEnv struct {
	app      echoapi.Server
	conf     *core.Config
	users    user.Repository
	plans    plan.Repository
	progress progress.Repository
	evidence evidence.Repository
	files    *filestore.MemoryStore
	mail     *emailsvc.ConsoleServiceMock
	logger   *testutil.Logger
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := core.NewTestConfig()
	db := inmemdb.Open()
	env := &testEnv{
		conf:     conf,
		users:    inmemdb.NewUserRepository(db),
		plans:    inmemdb.NewPlanRepository(db),
		progress: inmemdb.NewProgressRepository(db),
		evidence: inmemdb.NewEvidenceRepository(db),
		files:    filestore.NewMemoryStore(),
		mail:     emailsvc.NewConsoleServiceMock(conf),
		logger:   testutil.NewLogger(),
	}

	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	validate, translator := testutil.NewValidator()

	planSvc := plan.NewService(env.plans, env.files, env.logger, conf)
	progressSvc := progress.NewService(env.progress)
	evidenceSvc := evidence.NewService(env.evidence, env.files, env.logger, conf)
	env.app = echoapi.NewServer(nil, &echoapi.Deps{
		Conf:        conf,
		Logger:      env.logger,
		Validate:    validate,
		Translator:  translator,
		Policy:      authz.DefaultPolicy(),
		Notifier:    notify.NewNotifier(env.mail, tmpls, env.logger, conf),
		UserSvc:     user.NewService(env.users, conf),
		PlanSvc:     planSvc,
		ProgressSvc: progressSvc,
		EvidenceSvc: evidenceSvc,
		ReportSvc:   report.NewService(planSvc, progressSvc, evidenceSvc, conf),
	})
	return env
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(env.conf, echoapi.GetUserClaims(env.conf, usr))
	require.NoError(t, err)
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

type uploadFile struct {
	name        string
	contentType string
	content     string
}

// newUploadRequest builds a multipart request carrying `fields` and the given files under `archivo`.
func newUploadRequest(t *testing.T, path, token string, fields map[string]string, files ...uploadFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="archivo"; filename=%q`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func checkErr(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, want httpErr) {
	t.Helper()
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	var got httpErr
	decode(t, rec, &got)
	assert.Equal(t, want, got)
}

func (env *testEnv) createPlan(t *testing.T, owner user.User, subject, cycle, status string) plan.Plan {
	t.Helper()
	now := time.Now().UTC()
	key := uuid.New().String() + ".pdf"
	require.NoError(t, env.files.Save(context.Background(), key, bytes.NewBufferString(pdfContent)))
	p, err := env.plans.CreatePlan(context.Background(), plan.Plan{
		ID:            uuid.New().String(),
		ProfessorID:   owner.ID,
		ProfessorName: owner.Name,
		Subject:       subject,
		Period:        1,
		SchoolCycle:   cycle,
		FileKey:       key,
		OriginalName:  "planeacion.pdf",
		FileSize:      int64(len(pdfContent)),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)
	return p
}

func (env *testEnv) createProgress(t *testing.T, owner user.User, subject, cycle, compliance string, period int) progress.Progress {
	t.Helper()
	now := time.Now().UTC()
	p, err := env.progress.CreateProgress(context.Background(), progress.Progress{
		ID:            uuid.New().String(),
		ProfessorID:   owner.ID,
		ProfessorName: owner.Name,
		Subject:       subject,
		Period:        period,
		SchoolCycle:   cycle,
		PlannedTopics: []string{"a", "b"},
		CoveredTopics: []string{"a"},
		Percentage:    50,
		Compliance:    compliance,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)
	return p
}

func (env *testEnv) createEvidence(t *testing.T, owner user.User, course, status string, hours float64) evidence.Evidence {
	t.Helper()
	now := time.Now().UTC()
	e, err := env.evidence.CreateEvidence(context.Background(), evidence.Evidence{
		ID:            uuid.New().String(),
		ProfessorID:   owner.ID,
		ProfessorName: owner.Name,
		CourseName:    course,
		Institution:   "UNAM",
		StartDate:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		Hours:         hours,
		TrainingType:  evidence.TypeCourse,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)
	return e
}
