package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/shlex"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/roplat/hans/command"
	"github.com/roplat/hans/components/arm/hans"
	"github.com/roplat/hans/config"
	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/network"
	"github.com/roplat/hans/protocol"
	"github.com/roplat/hans/relay"
	"github.com/roplat/hans/roboterr"
)

// FormatError renders err as "<kind>: <message>".
func FormatError(err error) string {
	if roboterr.KindOf(err) == roboterr.KindUnknown {
		return "Error: " + err.Error()
	}
	return err.Error()
}

// PrintError writes err to w in red.
func PrintError(w io.Writer, err error) {
	_, err = color.New(color.FgRed).Fprintln(w, FormatError(err))
	goutils.UncheckedError(err)
}

func printf(w io.Writer, format string, a ...interface{}) {
	_, err := fmt.Fprintf(w, format+"\n", a...)
	goutils.UncheckedError(err)
}

// toolLogger logs warnings and above unless --debug is set.
func toolLogger(c *cli.Context) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("hans")
	}
	logger := logging.NewLogger("hans")
	logger.SetLevel(logging.WARN)
	return logger
}

// dialController opens a session to the controller named by the controller flags.
func dialController(c *cli.Context, logger logging.Logger) (*network.Session, *command.Dispatcher, error) {
	port := c.Uint(flagPort)
	if port == 0 || port > 65535 {
		return nil, nil, errors.Errorf("invalid port %d", port)
	}
	session := network.NewSession(time.Duration(c.Int(flagTimeoutMs))*time.Millisecond, logger)
	if err := session.Connect(c.Context, c.String(flagHost), uint16(port)); err != nil {
		return nil, nil, err
	}
	return session, command.NewDispatcher(session, logger), nil
}

func replyText(out string) string {
	if out == "" {
		return "OK"
	}
	return out
}

// ServeAction runs the relay until the command's context is cancelled.
func ServeAction(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return err
		}
	}
	if c.IsSet(flagPort) {
		port := c.Uint(flagPort)
		if port > 65535 {
			return errors.Errorf("invalid port %d", port)
		}
		cfg.Relay.Port = uint16(port)
	}
	if c.IsSet(flagLogFile) {
		cfg.Log.File = c.String(flagLogFile)
	}
	if c.Bool(flagFake) {
		cfg.Relay.Fake = true
	}
	if c.Bool(flagDebug) {
		cfg.Log.Level = "debug"
	}

	logger, err := cfg.Log.NewLogger("hans")
	if err != nil {
		return err
	}
	factory := relay.NewHansArm
	if cfg.Relay.Fake {
		factory = relay.NewFakeArm
	}
	server := relay.NewServer(cfg.Arm, factory, logger)
	addr := network.Address(c.String(flagListen), cfg.Relay.Port)
	if err := server.Start(addr); err != nil {
		return err
	}
	printf(c.App.Writer, "hans relay %s listening on %s", hans.Version, server.Addr())

	<-c.Context.Done()
	return server.Close(context.Background())
}

// CallAction sends one command given as a name followed by its arguments.
func CallAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return roboterr.NewInvalidInstructionError(nil, "call needs a command name, see hans opcodes")
	}
	session, d, err := dialController(c, toolLogger(c))
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(session.Disconnect)

	out, err := command.Dispatch(c.Context, d, c.Args().First(), strings.Join(c.Args().Tail(), protocol.Delimiter))
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", replyText(out))
	return nil
}

// ConsoleAction reads commands line by line. Words are split like a shell does and joined
// with the wire delimiter, so "WayPointEx 0 '1,2'" and "WayPointEx 0,1,2" send the same text.
// A failed command is reported and the console keeps going.
func ConsoleAction(c *cli.Context) error {
	session, d, err := dialController(c, toolLogger(c))
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(session.Disconnect)

	scanner := bufio.NewScanner(c.App.Reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words, err := shlex.Split(line)
		if err != nil {
			PrintError(c.App.ErrWriter, roboterr.NewInvalidInstructionError(err, "cannot split %q", line))
			continue
		}
		switch words[0] {
		case "quit", "exit":
			return nil
		case "help":
			printf(c.App.Writer, "%s", strings.Join(command.Names(), " "))
			continue
		}
		out, err := command.Dispatch(c.Context, d, words[0], strings.Join(words[1:], protocol.Delimiter))
		if err != nil {
			PrintError(c.App.ErrWriter, err)
			if roboterr.KindOf(err) == roboterr.KindNetwork {
				return err
			}
			continue
		}
		printf(c.App.Writer, "%s", replyText(out))
	}
	return scanner.Err()
}

// OpcodesAction prints every command with its wire tag and argument layout.
func OpcodesAction(c *cli.Context) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Tag", "Command", "Arguments", "Reply"})
	for _, b := range command.Bindings() {
		t.AppendRow(table.Row{
			uint16(b.Opcode),
			b.Opcode.String(),
			command.Describe(b.Request),
			command.Describe(b.Response),
		})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// VersionAction prints the driver version.
func VersionAction(c *cli.Context) error {
	printf(c.App.Writer, "hans %s", hans.Version)
	return nil
}
