// Package relay serves robot sessions to clients speaking a small JSON command protocol.
//
// Every accepted TCP client gets its own session and, once it sends Connect, its own arm.
// Each message is one JSON command and is answered with one JSON Reply.
package relay

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/roplat/hans/components/arm"
	"github.com/roplat/hans/components/arm/fake"
	"github.com/roplat/hans/components/arm/hans"
	"github.com/roplat/hans/config"
	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/roboterr"
)

// MessageBufferSize bounds one command message.
const MessageBufferSize = 4096

// ArmFactory builds the arm behind one client session.
type ArmFactory func(conf config.ArmConfig, logger logging.Logger) arm.Arm

// NewHansArm builds a Hans robot.
func NewHansArm(conf config.ArmConfig, logger logging.Logger) arm.Arm {
	return hans.New(conf, logger)
}

// NewFakeArm builds an in-memory arm.
func NewFakeArm(conf config.ArmConfig, logger logging.Logger) arm.Arm {
	return fake.NewArm(logger)
}

// Server accepts relay clients.
type Server struct {
	armConf config.ArmConfig
	newArm  ArmFactory
	logger  logging.Logger

	mu        sync.Mutex
	listener  net.Listener
	sessions  map[string]*session
	cancelCtx context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	commands                atomic.Int64
	activeBackgroundWorkers sync.WaitGroup
}

// NewServer returns a server that builds arms with newArm, starting from armConf.
func NewServer(armConf config.ArmConfig, newArm ArmFactory, logger logging.Logger) *Server {
	cancelCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		armConf:   armConf,
		newArm:    newArm,
		logger:    logger,
		sessions:  map[string]*session{},
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}
}

// Start listens on addr and serves clients in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("relay already started")
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WithMessage(err, "failed to listen")
	}
	s.listener = lis

	s.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer s.activeBackgroundWorkers.Done()
		s.logger.Infof("relay listening at %v", lis.Addr())
		s.acceptLoop(lis)
	})
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Commands returns the number of commands handled so far.
func (s *Server) Commands() int64 {
	return s.commands.Load()
}

// Sessions returns the number of connected clients.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) acceptLoop(lis net.Listener) {
	for {
		conn, err := lis.Accept()
		if err != nil {
			if s.cancelCtx.Err() == nil {
				s.logger.Errorw("accept failed", "error", err)
			}
			return
		}
		sess := &session{
			id:     uuid.NewString(),
			conn:   conn,
			server: s,
		}
		sess.logger = s.logger.Sublogger(sess.id)
		if !s.register(sess) {
			return
		}
		s.logger.Infow("client connected", "session", sess.id, "remote", conn.RemoteAddr().String())

		goutils.ManagedGo(func() {
			sess.serve(s.cancelCtx)
		}, func() {
			s.mu.Lock()
			delete(s.sessions, sess.id)
			s.mu.Unlock()
			s.activeBackgroundWorkers.Done()
		})
	}
}

// register adds sess as a running worker. Once Close has started it closes the connection
// instead and returns false.
func (s *Server) register(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelCtx.Err() != nil {
		goutils.UncheckedError(sess.conn.Close())
		return false
	}
	s.sessions[sess.id] = sess
	s.activeBackgroundWorkers.Add(1)
	return true
}

// Close stops accepting, closes every session and waits for them to finish.
func (s *Server) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		if s.listener != nil {
			err = multierr.Combine(err, s.listener.Close())
		}
		for _, sess := range s.sessions {
			goutils.UncheckedError(sess.conn.Close())
		}
		s.mu.Unlock()
		s.activeBackgroundWorkers.Wait()
	})
	return err
}

type session struct {
	id     string
	conn   net.Conn
	server *Server
	logger logging.Logger
	arm    arm.Arm
}

func (sess *session) serve(ctx context.Context) {
	defer func() {
		if sess.arm != nil {
			if err := sess.arm.Close(context.Background()); err != nil {
				sess.logger.Warnw("closing arm", "error", err)
			}
		}
		goutils.UncheckedError(sess.conn.Close())
		sess.logger.Info("client disconnected")
	}()

	buf := make([]byte, MessageBufferSize)
	for {
		n, err := sess.conn.Read(buf)
		if err != nil {
			return
		}
		req, err := ParseRequest(buf[:n])
		if err != nil {
			sess.logger.Warnw("error parsing command", "command", string(buf[:n]), "error", err)
			continue
		}
		reply := sess.handle(ctx, req)
		out, err := json.Marshal(reply)
		if err != nil {
			sess.logger.Errorw("encoding reply", "error", err)
			return
		}
		if _, err := sess.conn.Write(out); err != nil {
			return
		}
	}
}

func (sess *session) handle(ctx context.Context, req Request) Reply {
	sess.server.commands.Inc()
	sess.logger.CDebugw(ctx, "command", "name", req.Name)

	var (
		out string
		err error
	)
	switch {
	case req.Name == CmdConnect:
		err = sess.connect(ctx, req)
	case sess.arm == nil:
		err = roboterr.NewNetworkError(nil, "robot is not connected")
	default:
		out, err = execute(ctx, sess.arm, req)
	}
	if err != nil {
		sess.logger.CWarnw(ctx, "command failed", "name", req.Name, "error", err)
		return ErrReply(err)
	}
	return OkReply(out)
}

// connect replaces the session's arm with one built from the Connect arguments.
func (sess *session) connect(ctx context.Context, req Request) error {
	conf, err := connectConfig(sess.server.armConf, req.Args)
	if err != nil {
		return err
	}
	if sess.arm != nil {
		err := sess.arm.Close(ctx)
		sess.arm = nil
		if err != nil {
			return err
		}
	}
	a := sess.server.newArm(conf, sess.logger)
	if err := a.Connect(ctx, conf.Host, conf.Port); err != nil {
		return multierr.Combine(err, a.Close(ctx))
	}
	sess.arm = a
	return nil
}
