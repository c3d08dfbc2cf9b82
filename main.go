package main

import (
	"fmt"
	"github.com/kcz17/ticktock/alerts"
	"github.com/kcz17/ticktock/config"
	"github.com/kcz17/ticktock/countdown"
	"github.com/kcz17/ticktock/dashboard"
	"github.com/kcz17/ticktock/display"
	"github.com/kcz17/ticktock/logging"
	"github.com/kcz17/ticktock/ticklatency"
	"github.com/kcz17/ticktock/timeservice"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	conf := config.ReadConfig()

	var logger logging.Logger
	// closeLogger flushes buffered points. log.Fatalf skips deferred calls, so
	// it is called explicitly on every exit path.
	closeLogger := func() {}
	switch *conf.Logging.Driver {
	case "noop":
		logger = logging.NewNoopLogger()
	case "stdout":
		logger = logging.NewStdoutLogger()
	case "influxdb":
		influxDBLogger := logging.NewInfluxDBLogger(
			*conf.Logging.InfluxDB.Host,
			*conf.Logging.InfluxDB.Token,
			*conf.Logging.InfluxDB.Org,
			*conf.Logging.InfluxDB.Bucket,
		)
		closeLogger = influxDBLogger.Close
		logger = influxDBLogger
	default:
		log.Fatalf("expected logging driver one of {noop, stdout, influxdb}; got %s", *conf.Logging.Driver)
	}

	var collector ticklatency.Collector
	if *conf.Latency.Collector == "array" {
		collector = ticklatency.NewArrayCollector()
	} else {
		collector = ticklatency.NewTachymeterCollector(*conf.Latency.Window)
	}

	service := timeservice.New(&timeservice.Options{
		Interval:  conf.Service.Interval(),
		Logger:    logger,
		Collector: collector,
	})

	var sink alerts.Sink
	closeSink := func() {}
	if *conf.Alerts.Driver == "queue" {
		queueSink, err := alerts.OpenQueueSink(
			*conf.Alerts.Redis.Addr,
			*conf.Alerts.Redis.Password,
			*conf.Alerts.Redis.DB,
			*conf.Alerts.Redis.Queue,
		)
		if err != nil {
			closeLogger()
			log.Fatalf("expected alerts.OpenQueueSink() returns nil err; got err = %v", err)
		}
		// Publishing goes through Redis, so it is moved off the tick goroutine.
		asyncSink := alerts.NewAsyncSink(queueSink, logger, 64)
		closeSink = asyncSink.Close
		sink = asyncSink
	} else {
		sink = alerts.NewLogSink(logger)
	}

	mainCountdown := countdown.New(&countdown.Options{
		Name:      *conf.Countdown.Name,
		Start:     *conf.Countdown.Start,
		Registrar: service,
		Logger:    logger,
		Sink:      sink,
	})

	clockDisplay := display.NewClockDisplay(*conf.Display.Name, service, service, os.Stdout)
	if !*conf.Display.Enabled {
		clockDisplay.Disable()
	}

	var board *dashboard.Dashboard
	if *conf.Dashboard.Enabled {
		board = dashboard.New(&dashboard.Options{
			Reader:    service,
			Registrar: service,
			Logger:    logger,
			Sink:      sink,
		})
	}

	service.Start()

	if *conf.API.Enabled {
		api := &APIServer{
			Service:   service,
			Countdown: mainCountdown,
			Display:   clockDisplay,
			Dashboard: board,
		}
		addr := fmt.Sprintf(":%d", *conf.API.Port)
		go func() {
			if err := api.ListenAndServe(addr); err != nil {
				log.Fatalf("error serving control API: %v", err)
			}
		}()
		log.Printf("control API listening on %s", addr)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-signals:
		log.Printf("received %s, shutting down", sig)
	case err := <-service.Err():
		shutdown(service, closeSink, closeLogger)
		log.Fatalf("time service terminated: err = %v", err)
	}

	shutdown(service, closeSink, closeLogger)
}

// shutdown stops the service, then runs closers in order. Sinks come before
// the logger, as forwarding errors are still logged while a sink drains.
func shutdown(service *timeservice.Service, closers ...func()) {
	service.Close()
	for _, closer := range closers {
		closer()
	}
}
