package alerts

import (
	"encoding/json"
	"fmt"
	"github.com/adjust/rmq/v3"
	"github.com/go-redis/redis/v7"
	"log"
	"time"
)

const connectionTag = "ticktock"

// redisTimeout bounds every Redis operation made while publishing.
const redisTimeout = 2 * time.Second

// Finished is the payload published for every finished countdown.
type Finished struct {
	Name       string    `json:"name"`
	FinishedAt time.Time `json:"finishedAt"`
}

// QueueSink publishes finished countdowns to a Redis-backed rmq queue, so
// that consumers outside the process can react to them.
type QueueSink struct {
	connection rmq.Connection
	queue      rmq.Queue
}

// OpenQueueSink connects to Redis at addr and opens queueName.
func OpenQueueSink(addr string, password string, db int, queueName string) (*QueueSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  redisTimeout,
		ReadTimeout:  redisTimeout,
		WriteTimeout: redisTimeout,
	})
	return NewQueueSink(client, queueName)
}

// NewQueueSink opens queueName on an existing Redis client.
func NewQueueSink(client *redis.Client, queueName string) (*QueueSink, error) {
	// Create a goroutine for reading and logging connection errors, which rmq
	// reports asynchronously from its heartbeat.
	errChan := make(chan error, 10)
	go func() {
		for err := range errChan {
			log.Printf("rmq alerts connection error: %v\n", err)
		}
	}()

	connection, err := rmq.OpenConnectionWithRedisClient(connectionTag, client, errChan)
	if err != nil {
		return nil, fmt.Errorf("NewQueueSink() could not open rmq connection: %w", err)
	}
	queue, err := connection.OpenQueue(queueName)
	if err != nil {
		return nil, fmt.Errorf("NewQueueSink() could not open queue %s: %w", queueName, err)
	}

	return &QueueSink{
		connection: connection,
		queue:      queue,
	}, nil
}

func (s *QueueSink) CountdownFinished(name string, finishedAt time.Time) error {
	payload, err := json.Marshal(&Finished{Name: name, FinishedAt: finishedAt})
	if err != nil {
		return fmt.Errorf("could not marshal finished countdown %s: %w", name, err)
	}
	if err := s.queue.PublishBytes(payload); err != nil {
		return fmt.Errorf("could not publish finished countdown %s: %w", name, err)
	}
	return nil
}
