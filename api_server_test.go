package main

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kcz17/ticktock/countdown"
	"github.com/kcz17/ticktock/dashboard"
	"github.com/kcz17/ticktock/display"
	"github.com/kcz17/ticktock/timeservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type advancingClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type apiFixture struct {
	clock   advancingClock
	service *timeservice.Service
	api     *APIServer
}

func newAPIFixture(withDashboard bool) *apiFixture {
	clock := clockwork.NewFakeClockAt(time.Date(2020, 1, 1, 10, 20, 30, 400000000, time.UTC))
	service := timeservice.New(&timeservice.Options{Clock: clock})
	api := &APIServer{
		Service:   service,
		Countdown: countdown.New(&countdown.Options{Name: "main", Start: 5, Registrar: service, Clock: clock}),
		Display:   display.NewClockDisplay("clock", service, service, io.Discard),
	}
	if withDashboard {
		api.Dashboard = dashboard.New(&dashboard.Options{Reader: service, Registrar: service, Clock: clock})
	}
	return &apiFixture{clock: clock, service: service, api: api}
}

func (f *apiFixture) do(method, uri, body string) (int, []byte) {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBodyString(body)
	}

	f.api.router().HandleRequest(ctx)
	return ctx.Response.StatusCode(), ctx.Response.Body()
}

func (f *apiFixture) tick(t *testing.T, seconds int) {
	for i := 0; i < seconds; i++ {
		f.clock.Advance(time.Second)
		require.NoError(t, f.service.Sample())
	}
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	var response map[string]interface{}
	require.NoErrorf(t, json.Unmarshal(body, &response), "expected JSON body; got %s", body)
	return response
}

func TestAPIServer_Time(t *testing.T) {
	f := newAPIFixture(false)

	status, body := f.do(http.MethodGet, "/time", "")

	require.Equal(t, http.StatusOK, status)
	response := decode(t, body)
	assert.Equal(t, 10.0, response["hours"])
	assert.Equal(t, 20.0, response["minutes"])
	assert.Equal(t, 30.0, response["seconds"])
	assert.Equal(t, 4.0, response["tenths"])
}

func TestAPIServer_SetServiceActive(t *testing.T) {
	f := newAPIFixture(false)

	status, body := f.do(http.MethodPost, "/service/active", `{"active": false}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, decode(t, body)["active"])
	assert.False(t, f.service.IsActive())

	f.tick(t, 2)
	assert.Equal(t, 5, f.api.Countdown.Remaining())

	status, _ = f.do(http.MethodPost, "/service/active", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(http.MethodPost, "/service/active", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIServer_Countdown(t *testing.T) {
	f := newAPIFixture(false)
	f.tick(t, 2)

	status, body := f.do(http.MethodGet, "/countdown", "")
	require.Equal(t, http.StatusOK, status)
	response := decode(t, body)
	assert.Equal(t, "main", response["name"])
	assert.Equal(t, 3.0, response["remaining"])
	assert.Equal(t, "running", response["state"])

	status, body = f.do(http.MethodPost, "/countdown/reset", `{"value": 0}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "finished", decode(t, body)["state"])

	status, _ = f.do(http.MethodPost, "/countdown/reset", `{"count": 3}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIServer_Display(t *testing.T) {
	f := newAPIFixture(false)
	f.tick(t, 1)

	status, body := f.do(http.MethodPost, "/display/enabled", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, status)
	response := decode(t, body)
	assert.Equal(t, false, response["enabled"])
	assert.Equal(t, 1.0, response["displayCount"])
	assert.False(t, f.api.Display.IsEnabled())
}

func TestAPIServer_Dashboard(t *testing.T) {
	f := newAPIFixture(true)

	status, body := f.do(http.MethodPost, "/dashboard/start", `{"hours": 0, "minutes": 1, "seconds": 0}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "00:01:00", decode(t, body)["countdown"])

	f.tick(t, 3)
	status, body = f.do(http.MethodPost, "/dashboard/pause", "")
	require.Equal(t, http.StatusOK, status)
	response := decode(t, body)
	assert.Equal(t, "paused", response["state"])
	assert.Equal(t, "00:00:57", response["countdown"])

	status, body = f.do(http.MethodPost, "/dashboard/stop", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "idle", decode(t, body)["state"])

	status, body = f.do(http.MethodPost, "/dashboard/start?hours=0&minutes=0&seconds=15", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "00:00:15", decode(t, body)["countdown"])
}

func TestAPIServer_DashboardInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		body string
	}{
		{"zero duration", "/dashboard/start", `{"hours": 0, "minutes": 0, "seconds": 0}`},
		{"negative duration", "/dashboard/start", `{"hours": 0, "minutes": -5, "seconds": 0}`},
		{"text input", "/dashboard/start?hours=one&minutes=0&seconds=0", ""},
	}

	for _, test := range tests {
		f := newAPIFixture(true)
		status, body := f.do(http.MethodPost, test.uri, test.body)

		assert.Equalf(t, http.StatusBadRequest, status, "test case %s: body %s", test.name, body)
		assert.Equalf(t, dashboard.Idle, f.api.Dashboard.State(), "test case %s", test.name)
	}
}

func TestAPIServer_DashboardDisabled(t *testing.T) {
	f := newAPIFixture(false)

	status, _ := f.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIServer_Stats(t *testing.T) {
	f := newAPIFixture(false)
	require.NoError(t, f.service.Sample())

	status, body := f.do(http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, decode(t, body)["count"])
}
