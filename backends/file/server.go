package file

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	msg "github.com/zerofox-oss/go-msg-wrappers"
)

// DefaultPollInterval is how often the directory is scanned for new files
// unless WithPollInterval is given.
const DefaultPollInterval = 100 * time.Millisecond

// Server processes the message files written to a directory, one Message
// per file. Files whose name starts with a dot are ignored.
type Server struct {
	// Directory that contains the files to process
	DirName string

	// DeleteAfter informs whether to remove the files from the directory
	// after they have been processed successfully. Files which are kept
	// are processed once for as long as they stay in the directory.
	DeleteAfter bool

	pollInterval time.Duration
	logger       logr.Logger

	// claimed holds the names of present files being processed or done with
	mux     sync.Mutex
	claimed map[string]struct{}

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

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger used to report failed files.
func WithLogger(logger logr.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPollInterval sets how often the directory is scanned.
func WithPollInterval(d time.Duration) ServerOption {
	return func(s *Server) {
		s.pollInterval = d
	}
}

// Serve scans the directory until Shutdown is called, which makes it
// return ErrServerClosed. Any other error means the directory could not
// be read.
//
// A file whose Receive returns an error is retried on the next scan. A
// file which is not a valid message is logged and skipped.
func (s *Server) Serve(r msg.Receiver) error {
	for {
		entries, err := os.ReadDir(s.DirName)
		if err != nil {
			return err
		}

		present := make(map[string]struct{}, len(entries))
		for _, entry := range entries {
			name := entry.Name()
			present[name] = struct{}{}
			if entry.IsDir() || strings.HasPrefix(name, ".") || !s.claim(name) {
				continue
			}

			// acquire "lock"
			select {
			case <-s.listenerCtx.Done():
				s.release(name)
				return msg.ErrServerClosed
			case s.maxConcurrentReceives <- struct{}{}:
			}

			go s.receive(s.receiverCtx, r, name)
		}
		s.forgetMissing(present)

		select {
		case <-s.listenerCtx.Done():
			s.logger.V(1).Info("listener stopped")
			return msg.ErrServerClosed
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *Server) receive(ctx context.Context, r msg.Receiver, name string) {
	defer func() {
		<-s.maxConcurrentReceives
	}()

	path := filepath.Join(s.DirName, name)
	logger := s.logger.WithValues("file", path)

	f, err := os.Open(path)
	if err != nil {
		logger.Error(err, "unable to open file")
		s.release(name)
		return
	}
	defer f.Close()

	m, err := ReadMessage(f)
	if err != nil {
		logger.Error(err, "skipping malformed message file")
		return
	}

	if err := r.Receive(ctx, m); err != nil {
		logger.Error(err, "receiver error; retrying")
		s.release(name)
		return
	}

	if s.DeleteAfter {
		f.Close()
		if err := os.Remove(path); err != nil {
			logger.Error(err, "unable to remove processed file")
			return
		}
		s.release(name)
	}
}

func (s *Server) claim(name string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.claimed[name]; ok {
		return false
	}
	s.claimed[name] = struct{}{}
	return true
}

// forgetMissing drops the claims of files no longer in the directory, so
// claimed only grows with the files present and a file recreated under an
// old name is processed again.
func (s *Server) forgetMissing(present map[string]struct{}) {
	s.mux.Lock()
	defer s.mux.Unlock()

	for name := range s.claimed {
		if _, ok := present[name]; !ok {
			delete(s.claimed, name)
		}
	}
}

func (s *Server) release(name string) {
	s.mux.Lock()
	defer s.mux.Unlock()

	delete(s.claimed, name)
}

// shutdownPollInterval is how often we poll for quiescence
// during Server.Shutdown.
const shutdownPollInterval = 50 * time.Millisecond

// Shutdown attempts to gracefully shut down the Server without
// interrupting any messages currently being processed by a Receiver.
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

// NewServer creates and initialized a new Server.
func NewServer(dirName string, deleteAfter bool, cc int, opts ...ServerOption) *Server {
	listenerCtx, listenerCancelFunc := context.WithCancel(context.Background())
	receiverCtx, receiverCancelFunc := context.WithCancel(context.Background())

	srv := &Server{
		DirName:     dirName,
		DeleteAfter: deleteAfter,

		pollInterval: DefaultPollInterval,
		logger:       stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("file"),
		claimed:      map[string]struct{}{},

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
