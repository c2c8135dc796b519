package mq

import (
	"sync"

	zmq "github.com/pebbe/zmq4"
)

// AnalyticsPublisher broadcasts QuoteMetric frames on a ZMQ PUB socket.
type AnalyticsPublisher struct {
	mu     sync.Mutex // zmq sockets are not safe for concurrent use
	socket *zmq.Socket
}

// NewAnalyticsPublisher binds a PUB socket, e.g. "tcp://*:5557".
func NewAnalyticsPublisher(bindAddr string) (*AnalyticsPublisher, error) {
	sock, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, err
	}
	if err := sock.Bind(bindAddr); err != nil {
		sock.Close()
		return nil, err
	}
	return &AnalyticsPublisher{socket: sock}, nil
}

// PublishQuote serializes and emits one priced line.
func (p *AnalyticsPublisher) PublishQuote(m QuoteMetric) error {
	payload := EncodeQuoteMetric(m)

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.socket.SendBytes(payload, 0)
	return err
}

// Close releases underlying publisher socket resources.
func (p *AnalyticsPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.socket.Close()
}
