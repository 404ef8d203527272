package tests

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	echoweb "github.com/trezcool/cace/apps/web/echo"
	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/auth"
	"github.com/trezcool/cace/core/school"
	"github.com/trezcool/cace/core/session"
	"github.com/trezcool/cace/services/backend"
	"github.com/trezcool/cace/storage/session/inmem"
	"github.com/trezcool/cace/tests"
)

const (
	cookieName = "cace_session"
	csrfToken  = "test-csrf-token"
)

var (
	professor = school.User{ID: 7, Name: "Ana Ruiz", Email: "ana@school.edu", Role: school.RoleProfessor}
	admin     = school.User{ID: 1, Name: "Root", Email: "root@school.edu", Role: school.RoleAdmin}
)

// portal is a server wired to a fake backend, browsed by a single session.
type portal struct {
	t       *testing.T
	srv     *echoweb.Server
	api     *testutil.FakeBackend
	store   *inmem.Store
	manager *auth.Manager
	sid     string
}

func newPortal(t *testing.T, opts ...func(*core.Config)) *portal {
	t.Helper()

	api := testutil.NewFakeBackend(t)

	conf := &core.Config{AppName: "cace", TestMode: true}
	conf.Server.DisableReqLogs = true
	conf.Auth.GuardWait = 2 * time.Second
	conf.Session.CookieName = cookieName
	for _, opt := range opts {
		opt(conf)
	}

	logger := testutil.NopLogger{}
	store := inmem.New(time.Hour)
	backends, err := backend.NewFactory(backend.Options{BaseURL: api.URL, Timeout: 5 * time.Second, Logger: logger})
	require.NoError(t, err)
	manager := auth.NewManager(store, func(tokens session.Tokens) auth.ProfileFetcher {
		return backends.Client(tokens, nil)
	}, logger, time.Hour)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)

	srv := echoweb.NewServer(echoweb.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Store:      store,
		Manager:    manager,
		Backends:   backends,
		Validate:   validate,
		Translator: translator,
	})

	return &portal{t: t, srv: srv, api: api, store: store, manager: manager, sid: session.NewID()}
}

// signIn stores a valid credential for usr in the portal's session, as a past login would have.
func (p *portal) signIn(usr school.User) string {
	p.t.Helper()

	token := testutil.MintToken(p.t, time.Now().Add(time.Hour))
	require.NoError(p.t, p.store.Save(context.Background(), p.sid, token))
	p.api.JSON(http.MethodGet, "/users/me", http.StatusOK, usr)
	return token
}

func (p *portal) get(target string) *httptest.ResponseRecorder {
	return p.do(http.MethodGet, target, nil)
}

func (p *portal) post(target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return p.do(http.MethodPost, target, form)
}

func (p *portal) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		form.Set("_csrf", csrfToken)
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	return p.send(req)
}

// send adds the session and CSRF cookies to req and serves it.
func (p *portal) send(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: cookieName, Value: p.sid})
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: csrfToken})
	return p.serve(req)
}

func (p *portal) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	p.srv.ServeHTTP(rec, req)
	return rec
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, location, rec.Header().Get(echo.HeaderLocation))
}

func flashCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "cace_flash" && c.Value != "" {
			return c
		}
	}
	return nil
}
