// Package fakecontroller is an in-process TCP server that answers like a Hans controller.
package fakecontroller

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"github.com/roplat/hans/command"
	"github.com/roplat/hans/logging"
)

// FSM values reported by ReadCurFSM.
const (
	StateMoving  uint16 = 25
	StateStandBy uint16 = 33
)

// NeverStandBy keeps the controller moving forever after a motion command.
const NeverStandBy = -1

// Handler answers one request. args are the comma separated payload tokens.
type Handler func(args []string) string

var motionOpcodes = map[command.Opcode]bool{
	command.MoveRelJ:    true,
	command.MoveRelL:    true,
	command.WayPointRel: true,
	command.WayPointEx:  true,
	command.WayPoint:    true,
	command.WayPoint2:   true,
	command.MoveJ:       true,
	command.MoveL:       true,
	command.MoveC:       true,
	command.MovePath:    true,
	command.MovePathL:   true,
}

// Controller records every request and replies with scripted state.
type Controller struct {
	listener net.Listener
	logger   logging.Logger

	mu          sync.Mutex
	requests    []string
	handlers    map[string]Handler
	failures    map[string]uint16
	motionPolls int
	movingPolls int
	pathStates  []uint8

	transactions atomic.Int64
	connections  atomic.Int64
	activeConns  sync.WaitGroup
	closed       atomic.Bool
}

// New listens on an ephemeral localhost port.
func New(logger logging.Logger) (*Controller, error) {
	return NewAt("127.0.0.1:0", logger)
}

// NewAt listens on addr.
func NewAt(addr string, logger logging.Logger) (*Controller, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		listener:   listener,
		logger:     logger,
		handlers:   map[string]Handler{},
		failures:   map[string]uint16{},
		pathStates: []uint8{command.PathStateReady},
	}
	c.activeConns.Add(1)
	goutils.PanicCapturingGo(c.acceptLoop)
	return c, nil
}

// Host returns the listening host.
func (c *Controller) Host() string {
	return c.listener.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening port.
func (c *Controller) Port() uint16 {
	return uint16(c.listener.Addr().(*net.TCPAddr).Port)
}

// SetMotionPolls sets how many ReadCurFSM polls report moving after each motion command.
// NeverStandBy keeps it moving.
func (c *Controller) SetMotionPolls(n int) {
	c.mu.Lock()
	c.motionPolls = n
	c.mu.Unlock()
}

// SetPathStates scripts the replies of ReadMovePathState. The last value repeats.
func (c *Controller) SetPathStates(states ...uint8) {
	c.mu.Lock()
	c.pathStates = append([]uint8{}, states...)
	c.mu.Unlock()
}

// Fail makes every request named name fail with code.
func (c *Controller) Fail(name string, code uint16) {
	c.mu.Lock()
	c.failures[name] = code
	c.mu.Unlock()
}

// Handle overrides the reply of requests named name. The handler returns the payload only
// and must not call back into the Controller.
func (c *Controller) Handle(name string, h Handler) {
	c.mu.Lock()
	c.handlers[name] = h
	c.mu.Unlock()
}

// Requests returns every request received, unframed.
func (c *Controller) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.requests...)
}

// RequestsNamed returns the payloads of the requests named name.
func (c *Controller) RequestsNamed(name string) []string {
	var out []string
	for _, r := range c.Requests() {
		if n, args, _ := strings.Cut(r, ","); n == name {
			out = append(out, args)
		}
	}
	return out
}

// Count returns how many requests named name were received.
func (c *Controller) Count(name string) int {
	return len(c.RequestsNamed(name))
}

// Reset forgets recorded requests.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

// Transactions returns the total number of requests answered.
func (c *Controller) Transactions() int64 {
	return c.transactions.Load()
}

// Connections returns the number of accepted connections.
func (c *Controller) Connections() int64 {
	return c.connections.Load()
}

// Close stops listening and waits for open connections to finish.
func (c *Controller) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	err := c.listener.Close()
	c.activeConns.Wait()
	return err
}

func (c *Controller) acceptLoop() {
	defer c.activeConns.Done()
	var conns []net.Conn
	defer func() {
		for _, conn := range conns {
			goutils.UncheckedError(conn.Close())
		}
	}()
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			if !c.closed.Load() {
				c.logger.Errorw("accept failed", "error", err)
			}
			return
		}
		c.connections.Inc()
		conns = append(conns, conn)
		c.activeConns.Add(1)
		goutils.PanicCapturingGo(func() {
			defer c.activeConns.Done()
			c.serve(conn)
		})
	}
}

func (c *Controller) serve(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		reply := c.answer(string(buf[:n]))
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func (c *Controller) answer(raw string) string {
	c.transactions.Inc()
	body := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(raw), ";"), ",")
	name, payload, _ := strings.Cut(body, ",")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, body)
	c.logger.Debugw("fake controller request", "request", body)

	if code, ok := c.failures[name]; ok {
		return fmt.Sprintf("%s,Fail,%d,;", name, code)
	}
	op, known := command.ParseOpcode(name)
	if !known {
		return fmt.Sprintf("%s,Fail,%d,;", name, 39500)
	}
	if motionOpcodes[op] {
		c.movingPolls = c.motionPolls
	}

	var args []string
	if payload != "" {
		args = strings.Split(payload, ",")
	}
	if h, ok := c.handlers[name]; ok {
		return okReply(name, h(args))
	}
	return okReply(name, c.defaultPayload(op))
}

// defaultPayload must be called with mu held.
func (c *Controller) defaultPayload(op command.Opcode) string {
	switch op {
	case command.ReadCurFSM:
		if c.movingPolls == NeverStandBy {
			return strconv.Itoa(int(StateMoving))
		}
		if c.movingPolls > 0 {
			c.movingPolls--
			return strconv.Itoa(int(StateMoving))
		}
		return strconv.Itoa(int(StateStandBy))
	case command.ReadMovePathState:
		state := c.pathStates[0]
		if len(c.pathStates) > 1 {
			c.pathStates = c.pathStates[1:]
		}
		return strconv.Itoa(int(state))
	case command.ReadActPos:
		return zeros(24)
	case command.ReadActJointVel, command.ReadActTcpVel:
		return zeros(6)
	case command.ReadSoftMotionProcess:
		return "0,0"
	default:
		return ""
	}
}

func okReply(name, payload string) string {
	if payload == "" {
		return name + ",OK,;"
	}
	return name + ",OK," + payload + ",;"
}

func zeros(n int) string {
	return strings.TrimSuffix(strings.Repeat("0,", n), ",")
}
