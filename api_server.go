package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/jackwhelpton/fasthttp-routing/v2"
	"github.com/kcz17/ticktock/countdown"
	"github.com/kcz17/ticktock/dashboard"
	"github.com/kcz17/ticktock/display"
	"github.com/kcz17/ticktock/ticklatency"
	"github.com/kcz17/ticktock/timeservice"
	"github.com/valyala/fasthttp"
	"net/http"
	"time"
)

// APIServer exposes the time service and its subscribers for control and
// inspection. Dashboard may be nil if the dashboard is disabled.
type APIServer struct {
	Service   *timeservice.Service
	Countdown *countdown.Countdown
	Display   *display.ClockDisplay
	Dashboard *dashboard.Dashboard
}

func (a *APIServer) ListenAndServe(addr string) error {
	return fasthttp.ListenAndServe(addr, a.router().HandleRequest)
}

func (a *APIServer) router() *routing.Router {
	router := routing.New()

	router.Get("/time", a.timeHandler())
	router.Get("/stats", a.statsHandler())

	router.Get("/service", a.serviceHandler())
	router.Post("/service/active", a.setServiceActiveHandler())

	router.Get("/countdown", a.countdownHandler())
	router.Post("/countdown/reset", a.resetCountdownHandler())

	router.Get("/display", a.displayHandler())
	router.Post("/display/enabled", a.setDisplayEnabledHandler())

	board := router.Group("/dashboard", a.requireDashboard)
	board.Get("", a.dashboardHandler())
	board.Post("/start", a.startDashboardHandler())
	board.Post("/pause", a.dashboardActionHandler((*dashboard.Dashboard).Pause))
	board.Post("/resume", a.dashboardActionHandler((*dashboard.Dashboard).Resume))
	board.Post("/toggle", a.dashboardActionHandler((*dashboard.Dashboard).TogglePause))
	board.Post("/stop", a.dashboardActionHandler((*dashboard.Dashboard).Stop))

	return router
}

func writeJSON(c *routing.Context, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not marshal response: err = %w", err)
	}
	c.SetContentType("application/json")
	return c.Write(b)
}

func readJSON(c *routing.Context, v interface{}) error {
	if err := json.Unmarshal(c.PostBody(), v); err != nil {
		return routing.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("could not parse body: %s", err))
	}
	return nil
}

func badRequest(message string) error {
	return routing.NewHTTPError(http.StatusBadRequest, message)
}

func (a *APIServer) timeHandler() routing.Handler {
	return func(c *routing.Context) error {
		return writeJSON(c, &struct {
			Hours      int       `json:"hours"`
			Minutes    int       `json:"minutes"`
			Seconds    int       `json:"seconds"`
			Tenths     int       `json:"tenths"`
			LastUpdate time.Time `json:"lastUpdate"`
		}{
			Hours:      a.Service.Hours(),
			Minutes:    a.Service.Minutes(),
			Seconds:    a.Service.Seconds(),
			Tenths:     a.Service.Tenths(),
			LastUpdate: a.Service.LastUpdate(),
		})
	}
}

func (a *APIServer) statsHandler() routing.Handler {
	return func(c *routing.Context) error {
		aggregation := a.Service.Latency()
		return writeJSON(c, &struct {
			P50    float64 `json:"p50"`
			P75    float64 `json:"p75"`
			P95    float64 `json:"p95"`
			StdDev float64 `json:"stdDev"`
			Count  int     `json:"count"`
		}{
			P50:    ticklatency.Seconds(aggregation.P50),
			P75:    ticklatency.Seconds(aggregation.P75),
			P95:    ticklatency.Seconds(aggregation.P95),
			StdDev: ticklatency.Seconds(aggregation.StdDev),
			Count:  aggregation.Count,
		})
	}
}

type serviceResponse struct {
	Active      bool    `json:"active"`
	Started     bool    `json:"started"`
	Interval    float64 `json:"interval"`
	Subscribers int     `json:"subscribers"`
}

func (a *APIServer) serviceResponse() *serviceResponse {
	return &serviceResponse{
		Active:      a.Service.IsActive(),
		Started:     a.Service.IsStarted(),
		Interval:    ticklatency.Seconds(a.Service.Interval()),
		Subscribers: a.Service.Subscribers(),
	}
}

func (a *APIServer) serviceHandler() routing.Handler {
	return func(c *routing.Context) error {
		return writeJSON(c, a.serviceResponse())
	}
}

func (a *APIServer) setServiceActiveHandler() routing.Handler {
	return func(c *routing.Context) error {
		request := &struct {
			Active *bool `json:"active"`
		}{}
		if err := readJSON(c, request); err != nil {
			return err
		}
		if request.Active == nil {
			return badRequest("active must be set")
		}

		a.Service.SetActive(*request.Active)
		return writeJSON(c, a.serviceResponse())
	}
}

type countdownResponse struct {
	Name      string  `json:"name"`
	Remaining int     `json:"remaining"`
	State     string  `json:"state"`
	Elapsed   float64 `json:"elapsed"`
}

func (a *APIServer) countdownResponse() *countdownResponse {
	return &countdownResponse{
		Name:      a.Countdown.Name(),
		Remaining: a.Countdown.Remaining(),
		State:     a.Countdown.State().String(),
		Elapsed:   ticklatency.Seconds(a.Countdown.Elapsed()),
	}
}

func (a *APIServer) countdownHandler() routing.Handler {
	return func(c *routing.Context) error {
		return writeJSON(c, a.countdownResponse())
	}
}

func (a *APIServer) resetCountdownHandler() routing.Handler {
	return func(c *routing.Context) error {
		request := &struct {
			Value *int `json:"value"`
		}{}
		if err := readJSON(c, request); err != nil {
			return err
		}
		if request.Value == nil {
			return badRequest("value must be set")
		}

		a.Countdown.Reset(*request.Value)
		return writeJSON(c, a.countdownResponse())
	}
}

type displayResponse struct {
	Name         string `json:"name"`
	Enabled      bool   `json:"enabled"`
	DisplayCount int    `json:"displayCount"`
}

func (a *APIServer) displayResponse() *displayResponse {
	return &displayResponse{
		Name:         a.Display.Name(),
		Enabled:      a.Display.IsEnabled(),
		DisplayCount: a.Display.DisplayCount(),
	}
}

func (a *APIServer) displayHandler() routing.Handler {
	return func(c *routing.Context) error {
		return writeJSON(c, a.displayResponse())
	}
}

func (a *APIServer) setDisplayEnabledHandler() routing.Handler {
	return func(c *routing.Context) error {
		request := &struct {
			Enabled *bool `json:"enabled"`
		}{}
		if err := readJSON(c, request); err != nil {
			return err
		}
		if request.Enabled == nil {
			return badRequest("enabled must be set")
		}

		if *request.Enabled {
			a.Display.Enable()
		} else {
			a.Display.Disable()
		}
		return writeJSON(c, a.displayResponse())
	}
}

func (a *APIServer) requireDashboard(c *routing.Context) error {
	if a.Dashboard == nil {
		return routing.NewHTTPError(http.StatusNotFound, "dashboard is disabled")
	}
	return nil
}

func (a *APIServer) dashboardHandler() routing.Handler {
	return func(c *routing.Context) error {
		return writeJSON(c, a.Dashboard.View())
	}
}

// startDashboardHandler accepts either a JSON duration or, as the form on the
// dashboard submits it, hours, minutes and seconds query arguments.
func (a *APIServer) startDashboardHandler() routing.Handler {
	return func(c *routing.Context) error {
		var err error
		if len(c.PostBody()) == 0 {
			args := c.QueryArgs()
			err = a.Dashboard.StartFromInput(
				string(args.Peek("hours")),
				string(args.Peek("minutes")),
				string(args.Peek("seconds")),
			)
		} else {
			var duration dashboard.Duration
			if err := readJSON(c, &duration); err != nil {
				return err
			}
			err = a.Dashboard.Start(duration)
		}

		if errors.Is(err, dashboard.ErrInvalidNumber) ||
			errors.Is(err, dashboard.ErrNegativeDuration) ||
			errors.Is(err, dashboard.ErrZeroDuration) {
			return badRequest(err.Error())
		} else if err != nil {
			return err
		}

		return writeJSON(c, a.Dashboard.View())
	}
}

func (a *APIServer) dashboardActionHandler(action func(*dashboard.Dashboard)) routing.Handler {
	return func(c *routing.Context) error {
		action(a.Dashboard)
		return writeJSON(c, a.Dashboard.View())
	}
}
