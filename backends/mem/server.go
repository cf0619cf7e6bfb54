package mem

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	msg "github.com/zerofox-oss/go-msg-wrappers"
)

// Server feeds the Messages published on a channel to a Receiver.
type Server struct {
	C chan *msg.Message

	// Concurrency is the maximum number of Messages that can be processed
	// concurrently by the Server.
	Concurrency int

	logger logr.Logger

	// retries carries failed deliveries back to Serve. It is never closed.
	retries chan *delivery

	// maxConcurrentReceives is a buffered channel which acts as
	// a shared lock that limits the number of concurrent goroutines
	maxConcurrentReceives chan struct{}

	listenerCtx        context.Context
	listenerCancelFunc context.CancelFunc

	receiverCtx        context.Context
	receiverCancelFunc context.CancelFunc
}

// Ensure that Server implements msg.Server
var _ msg.Server = &Server{}

// delivery is a Message read off C, kept so it can be handed out again.
type delivery struct {
	message *msg.Message
	body    []byte
}

// attempt returns a fresh copy of the delivered Message. Receivers may
// drain the body or edit the attributes without affecting a retry.
func (d *delivery) attempt() *msg.Message {
	return msg.WithBody(d.message, bytes.NewReader(d.body))
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger used to report receiver errors.
// Defaults to a standard library logger writing to stderr.
func WithLogger(logger logr.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// Serve always returns a non-nil error.
// After Shutdown, or once C is closed, the returned error is ErrServerClosed.
//
// A Message whose Receive returns an error is delivered again, with the
// attributes and body it was published with, for as long as Serve is
// running. Failures after Serve returned are logged and dropped; C is
// never written to by the Server.
func (s *Server) Serve(r msg.Receiver) error {
	// stop retries once Serve is gone, whatever the reason
	defer s.listenerCancelFunc()

	for {
		var d *delivery

		select {

		// shutdown listener to prevent new messages from being received
		case <-s.listenerCtx.Done():
			s.logger.V(1).Info("listener stopped")
			return msg.ErrServerClosed

		case d = <-s.retries:

		case m, ok := <-s.C:
			if !ok {
				s.logger.V(1).Info("input channel closed")
				return msg.ErrServerClosed
			}
			if m == nil {
				continue
			}

			body, err := readBody(m)
			if err != nil {
				s.logger.Error(err, "dropping message with unreadable body")
				continue
			}
			d = &delivery{message: m, body: body}
		}

		// acquire "lock"
		s.maxConcurrentReceives <- struct{}{}

		go func(ctx context.Context, d *delivery) {
			err := r.Receive(ctx, d.attempt())

			// release before retrying so Serve can take the retry
			<-s.maxConcurrentReceives

			if err != nil {
				s.retry(d, err)
			}
		}(s.receiverCtx, d)
	}
}

func (s *Server) retry(d *delivery, err error) {
	select {
	case s.retries <- d:
		s.logger.V(1).Info("receiver error; retrying", "error", err.Error())
	case <-s.listenerCtx.Done():
		s.logger.Error(err, "receiver error; server closed, dropping message")
	}
}

func readBody(m *msg.Message) ([]byte, error) {
	if m.Body == nil {
		return nil, nil
	}
	return io.ReadAll(m.Body)
}

// shutdownPollInterval is how often we poll for quiescence
// during Server.Shutdown.
var shutdownPollInterval = 50 * time.Millisecond

// Shutdown attempts to gracefully shut down the Server without
// interrupting any messages in flight.
// When Shutdown is signalled, the Server stops polling for new Messages
// and then it waits for all of the active goroutines to complete.
//
// If the provided context expires before the shutdown is complete,
// then the context passed to in-flight receivers is cancelled and the
// context's error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	if ctx == nil {
		panic("invalid context (nil)")
	}
	s.listenerCancelFunc()

	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.receiverCancelFunc()
			return ctx.Err()

		case <-ticker.C:
			if len(s.maxConcurrentReceives) == 0 {
				return msg.ErrServerClosed
			}
		}
	}
}

// NewServer creates and initializes a new Server.
func NewServer(c chan *msg.Message, cc int, opts ...ServerOption) *Server {
	listenerCtx, listenerCancelFunc := context.WithCancel(context.Background())
	receiverCtx, receiverCancelFunc := context.WithCancel(context.Background())

	srv := &Server{
		C:           c,
		Concurrency: cc,

		logger:  stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("mem"),
		retries: make(chan *delivery),

		listenerCtx:           listenerCtx,
		listenerCancelFunc:    listenerCancelFunc,
		receiverCtx:           receiverCtx,
		receiverCancelFunc:    receiverCancelFunc,
		maxConcurrentReceives: make(chan struct{}, cc),
	}

	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
