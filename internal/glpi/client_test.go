package glpi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"glpinv/internal/glpi"
)

const (
	appToken     = "app-123"
	userToken    = "user-456"
	sessionToken = "session-789"
)

// fakeGLPI serves the subset of apirest.php the client uses.
type fakeGLPI struct {
	searches []url.Values
	killed   bool
	search   func(w http.ResponseWriter, r *http.Request)
}

func newFakeGLPI(t *testing.T) (*fakeGLPI, *httptest.Server) {
	f := &fakeGLPI{}
	r := mux.NewRouter()
	api := r.PathPrefix("/apirest.php").Subrouter()
	api.HandleFunc("/initSession", f.initSession).Methods(http.MethodGet)
	api.HandleFunc("/killSession", f.withSession(f.killSession)).Methods(http.MethodGet)
	api.HandleFunc("/search/{itemtype}", f.withSession(f.handleSearch)).Methods(http.MethodGet)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeGLPI) initSession(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("App-Token") != appToken {
		writeJSON(w, http.StatusBadRequest, []string{"ERROR_WRONG_APP_TOKEN_PARAMETER", "parameter app_token seems wrong"})
		return
	}
	if r.Header.Get("Authorization") != "user_token "+userToken {
		writeJSON(w, http.StatusUnauthorized, []string{"ERROR_GLPI_LOGIN_USER_TOKEN", "parameter user_token seems invalid"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_token": sessionToken})
}

func (f *fakeGLPI) withSession(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Session-Token") != sessionToken {
			writeJSON(w, http.StatusUnauthorized, []string{"ERROR_SESSION_TOKEN_INVALID", "session_token seems invalid"})
			return
		}
		h(w, r)
	}
}

func (f *fakeGLPI) killSession(w http.ResponseWriter, r *http.Request) {
	f.killed = true
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (f *fakeGLPI) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	q.Set("itemtype", mux.Vars(r)["itemtype"])
	f.searches = append(f.searches, q)
	if f.search != nil {
		f.search(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalcount": 2,
		"count":      2,
		"data": []map[string]any{
			{"1": "HOST01", "2": 17, "5": "web-tier"},
			{"1": "HOST02", "2": 18, "5": nil},
		},
	})
}

func newClient(t *testing.T, srv *httptest.Server, tokens ...string) *glpi.Client {
	t.Helper()
	cfg := glpi.Config{URL: srv.URL + "/apirest.php", AppToken: appToken, UserToken: userToken}
	if len(tokens) == 2 {
		cfg.AppToken, cfg.UserToken = tokens[0], tokens[1]
	}
	c, err := glpi.New(cfg, glpi.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return c
}

func TestSessionAndSearch(t *testing.T) {
	f, srv := newFakeGLPI(t)
	c := newClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.InitSession(ctx))
	res, err := c.Search(ctx, "Computer", glpi.SearchOptions{
		Criteria: []map[string]any{
			{"field": 5, "searchtype": "contains", "value": "web"},
		},
		MetaCriteria: []map[string]any{
			{"link": "AND", "itemtype": "Software", "field": 1, "searchtype": "contains", "value": "nginx"},
		},
		ForceDisplay: []string{"1", "5"},
		Range:        "0-9999",
	})
	require.NoError(t, err)
	require.NoError(t, c.KillSession(ctx))

	assert.True(t, f.killed)
	require.Len(t, f.searches, 1)
	q := f.searches[0]
	assert.Equal(t, "Computer", q.Get("itemtype"))
	assert.Equal(t, "5", q.Get("criteria[0][field]"))
	assert.Equal(t, "contains", q.Get("criteria[0][searchtype]"))
	assert.Equal(t, "web", q.Get("criteria[0][value]"))
	assert.Equal(t, "Software", q.Get("metacriteria[0][itemtype]"))
	assert.Equal(t, "AND", q.Get("metacriteria[0][link]"))
	assert.Equal(t, "1", q.Get("forcedisplay[0]"))
	assert.Equal(t, "5", q.Get("forcedisplay[1]"))
	assert.Equal(t, "0-9999", q.Get("range"))

	assert.Equal(t, 2, res.TotalCount)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "HOST01", res.Data[0]["1"])
	assert.Equal(t, json.Number("17"), res.Data[0]["2"])
	assert.Nil(t, res.Data[1]["5"])
}

func TestSearchWithoutSession(t *testing.T) {
	_, srv := newFakeGLPI(t)
	c := newClient(t, srv)
	_, err := c.Search(context.Background(), "Computer", glpi.SearchOptions{})
	assert.Error(t, err)
}

func TestSearchEmptyAndPartialResults(t *testing.T) {
	f, srv := newFakeGLPI(t)
	c := newClient(t, srv)
	ctx := context.Background()
	require.NoError(t, c.InitSession(ctx))

	f.search = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"totalcount": 0, "count": 0})
	}
	res, err := c.Search(ctx, "Computer", glpi.SearchOptions{Range: "0-9999"})
	require.NoError(t, err)
	assert.Empty(t, res.Data)

	f.search = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusPartialContent, map[string]any{
			"totalcount": 3, "count": 1,
			"data": []map[string]any{{"1": "only"}},
		})
	}
	res, err = c.Search(ctx, "Computer", glpi.SearchOptions{Range: "0-0"})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 3, res.TotalCount)
}

func TestInitSessionErrors(t *testing.T) {
	_, srv := newFakeGLPI(t)
	tests := []struct {
		name   string
		app    string
		user   string
		status int
		code   string
	}{
		{"bad app token", "wrong", userToken, http.StatusBadRequest, "ERROR_WRONG_APP_TOKEN_PARAMETER"},
		{"bad user token", appToken, "wrong", http.StatusUnauthorized, "ERROR_GLPI_LOGIN_USER_TOKEN"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, srv, tc.app, tc.user)
			err := c.InitSession(context.Background())

			var apiErr *glpi.Error
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.code, apiErr.Code)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestNonJSONError(t *testing.T) {
	f, srv := newFakeGLPI(t)
	c := newClient(t, srv)
	ctx := context.Background()
	require.NoError(t, c.InitSession(ctx))

	f.search = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}
	_, err := c.Search(ctx, "Computer", glpi.SearchOptions{})

	var apiErr *glpi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream exploded")
}

func TestKillSessionWithoutSessionIsNoop(t *testing.T) {
	f, srv := newFakeGLPI(t)
	c := newClient(t, srv)
	require.NoError(t, c.KillSession(context.Background()))
	assert.False(t, f.killed)
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := glpi.New(glpi.Config{URL: srv.URL})
	require.NoError(t, err)
	err = c.InitSession(context.Background())
	require.Error(t, err)

	var apiErr *glpi.Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestNewValidatesURL(t *testing.T) {
	for _, u := range []string{"", "ftp://glpi", "://bad"} {
		_, err := glpi.New(glpi.Config{URL: u})
		assert.Error(t, err, "url %q", u)
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "HTTP 401: ERROR_X: nope", (&glpi.Error{StatusCode: 401, Code: "ERROR_X", Message: "nope"}).Error())
	assert.Equal(t, "HTTP 401: ERROR_X", (&glpi.Error{StatusCode: 401, Code: "ERROR_X"}).Error())
	assert.Equal(t, "invalid HTTP code 500", (&glpi.Error{StatusCode: 500}).Error())
}
