package server

import (
	"context"
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/transport/link"
	"github.com/VictoriaMetrics/metrics"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/rcrowley/go-metrics/exp"
	"golang.org/x/sync/errgroup"
	"io"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("rpc")

// Server accepts links on one endpoint and serves the commands of one store.
// Every accepted link is driven by its own goroutine in blocking mode.
type Server struct {
	config  common.ServerConfig
	store   store.IStore
	handler *Handler

	listener *link.Link
	links    *xsync.MapOf[uint64, *link.Link]
	nextID   atomic.Uint64

	// mu orders link registration against Close
	mu     sync.Mutex
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewRPCServer creates a new server for st. The store is closed together
// with the server.
//
// Usage:
//
//	s := server.NewRPCServer(*config, st)
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(config common.ServerConfig, st store.IStore) *Server {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &Server{
		config:  config,
		store:   st,
		handler: NewHandler(st),
		links:   xsync.NewMapOf[uint64, *link.Link](),
	}
}

// Listen binds the configured endpoint. Serve calls it when it was not called before.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	host, port, err := link.SplitEndpoint(s.config.Endpoint)
	if err != nil {
		return errors.Mark(err, link.ErrBind)
	}
	l, err := link.Listen(host, port, s.config.Link)
	if err != nil {
		return err
	}
	s.listener = l
	Logger.Infof("listening on %s", l.Addr())
	return nil
}

// Addr returns the bound address, nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts links until ctx is cancelled or Close is called. When a
// metrics endpoint is configured it is served alongside.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// a closed listener ends the run as well
		defer cancel()
		return s.acceptLoop()
	})

	var metricsServer *http.Server
	if s.config.MetricsEndpoint != "" {
		metricsServer = &http.Server{Addr: s.config.MetricsEndpoint, Handler: metricsMux()}
		g.Go(func() error {
			Logger.Infof("serving metrics on %s", s.config.MetricsEndpoint)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics listener")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		return s.Close()
	})

	return g.Wait()
}

// Close stops accepting, disconnects all links, waits for their goroutines
// and closes the store. Calling it more than once is a no-op.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return nil
	}
	s.closed.Store(true)
	s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	// wake every link goroutine; each closes its own link
	s.links.Range(func(_ uint64, l *link.Link) bool {
		_ = l.SetDeadline(time.Now())
		return true
	})
	s.wg.Wait()

	if storeErr := s.store.Close(); storeErr != nil && err == nil {
		err = storeErr
	}
	Logger.Infof("server stopped")
	return err
}

// --------------------------------------------------------------------------
// Link handling
// --------------------------------------------------------------------------

func (s *Server) acceptLoop() error {
	for {
		l, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			Logger.Errorf("accept error: %v", err)
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			continue
		}
		metricAccepted.Inc()

		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			_ = l.Close()
			return nil
		}
		id := s.nextID.Add(1)
		s.wg.Add(1)
		s.links.Store(id, l)
		s.mu.Unlock()

		go s.serveLink(id, l)
	}
}

// serveLink reads, answers every complete request and flushes the replies
// once per read, until the peer leaves or the link fails
func (s *Server) serveLink(id uint64, l *link.Link) {
	defer func() {
		s.links.Delete(id)
		_ = l.Close()
		s.wg.Done()
	}()

	Logger.Debugf("link %d from %s opened", id, l.RemoteAddr())
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	for {
		if timeout > 0 && !s.closed.Load() {
			if err := l.SetDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("failed to set deadline on link %d: %v", id, err)
				return
			}
		}

		if _, err := l.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				Logger.Debugf("link %d closed by peer", id)
			} else if !s.closed.Load() {
				metricDropped.Inc()
				Logger.Infof("dropping link %d from %s: %v", id, l.RemoteAddr(), err)
			}
			return
		}

		for {
			req, err := l.Recv()
			if err != nil {
				// protocol or capacity violation, the stream cannot be resynchronized
				metricDropped.Inc()
				Logger.Warningf("dropping link %d from %s: %v", id, l.RemoteAddr(), err)
				_, _ = l.Flush()
				return
			}
			if req == nil {
				break
			}
			if err := l.Send(s.handler.Handle(req)...); err != nil {
				metricDropped.Inc()
				Logger.Warningf("dropping link %d: reply does not fit: %v", id, err)
				return
			}
		}

		if _, err := l.Flush(); err != nil {
			if !s.closed.Load() {
				metricDropped.Inc()
				Logger.Infof("dropping link %d from %s: %v", id, l.RemoteAddr(), err)
			}
			return
		}
	}
}

// metricsMux serves the VictoriaMetrics counters in Prometheus format and
// the go-metrics registry as JSON
func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	mux.Handle("/debug/metrics", exp.ExpHandler(gometrics.DefaultRegistry))
	return mux
}
