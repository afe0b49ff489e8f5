package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages for one topic and writes them from a single
// goroutine. Publish never waits on the broker, only on a full buffer.
type Producer struct {
	w     writer
	log   *slog.Logger
	inbox chan kafka.Message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int, log *slog.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, buf, log.With("topic", topic))
}

func newProducer(w writer, buf int, log *slog.Logger) *Producer {
	return &Producer{
		w:     w,
		log:   log,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
}

// Start runs the write loop until Close drains the buffer.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
			if err := p.w.WriteMessages(wctx, m); err != nil {
				p.log.Error("kafka write failed", "key", string(m.Key), "err", err)
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.log.Error("kafka writer close", "err", err)
		}
	}()
}

// Publish queues a message. After Close it drops the message.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("publish after close dropped", "key", string(key))
		return
	}
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close stops accepting messages; the loop flushes what is queued and exits.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

// WaitClosed blocks until the write loop has exited.
func (p *Producer) WaitClosed() { <-p.done }
