package service

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-backoffice/internal/queue"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		_ = ln.Close()
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				<-done
				_ = conn.Close()
			}()
		}
	}()
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestRabbitPublisherGivesUpOnSilentBroker(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	p := NewRabbitPublisher(silentBroker(t), log)
	p.DialTimeout = 200 * time.Millisecond

	start := time.Now()
	err := p.Publish(context.Background(), queue.OrderEvent{Type: queue.EventOrderCreated, OrderID: "1"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRabbitPublisherDialTimeoutFollowsContext(t *testing.T) {
	p := NewRabbitPublisher("amqp://localhost/", nil)
	assert.Equal(t, publishTimeout, p.dialTimeout(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.LessOrEqual(t, p.dialTimeout(ctx), 500*time.Millisecond)
}
