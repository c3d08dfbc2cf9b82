package logging

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"log"
	"time"
)

// influxDBLogger logs the output to an external InfluxDB instance.
type influxDBLogger struct {
	client      influxdb2.Client
	asyncWriter api.WriteAPI
}

func NewInfluxDBLogger(baseURL, authToken, org, bucket string) *influxDBLogger {
	options := influxdb2.DefaultOptions()
	options.WriteOptions().SetBatchSize(1000)
	options.WriteOptions().SetFlushInterval(250)

	client := influxdb2.NewClientWithOptions(baseURL, authToken, options)
	writeAPI := client.WriteAPI(org, bucket)

	// Create a goroutine for reading and logging async write errors.
	errorsCh := writeAPI.Errors()
	go func() {
		for err := range errorsCh {
			log.Printf("influxdb2 logging async write error: %v\n", err)
		}
	}()

	return &influxDBLogger{
		client:      client,
		asyncWriter: writeAPI,
	}
}

func (l *influxDBLogger) LogFieldChange(field string, oldValue int, newValue int) {
	p := influxdb2.NewPointWithMeasurement("ticktock_field_change").
		AddTag("field", field).
		AddField("old", oldValue).
		AddField("new", newValue).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogListenerFailure(field string, err error) {
	p := influxdb2.NewPointWithMeasurement("ticktock_listener_failure").
		AddTag("field", field).
		AddField("error", err.Error()).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogTickLatency(p50 float64, p75 float64, p95 float64) {
	p := influxdb2.NewPointWithMeasurement("ticktock_tick_latency").
		AddField("p50", p50).
		AddField("p75", p75).
		AddField("p95", p95).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogServiceState(started bool, active bool) {
	p := influxdb2.NewPointWithMeasurement("ticktock_service_state").
		AddField("started", started).
		AddField("active", active).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogCountdown(name string, remaining int, state string) {
	p := influxdb2.NewPointWithMeasurement("ticktock_countdown").
		AddTag("name", name).
		AddField("remaining", remaining).
		AddField("state", state).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogError(source string, err error) {
	p := influxdb2.NewPointWithMeasurement("ticktock_error").
		AddTag("source", source).
		AddField("error", err.Error()).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

// Close flushes pending points and releases the client.
func (l *influxDBLogger) Close() {
	l.asyncWriter.Flush()
	l.client.Close()
}
