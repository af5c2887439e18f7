// Package cli contains the hans command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"github.com/roplat/hans/network"
)

// Flags.
const (
	flagConfig    = "config"
	flagDebug     = "debug"
	flagHost      = "host"
	flagPort      = "port"
	flagTimeoutMs = "timeout-ms"
	flagListen    = "listen"
	flagLogFile   = "log-file"
	flagFake      = "fake"
)

var controllerFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     flagHost,
		Usage:    "controller host or IP address",
		Required: true,
	},
	&cli.UintFlag{
		Name:  flagPort,
		Usage: "controller command port",
		Value: uint(network.PortIF),
	},
	&cli.IntFlag{
		Name:  flagTimeoutMs,
		Usage: "read and write timeout in milliseconds",
		Value: int(network.DefaultTimeout.Milliseconds()),
	},
}

var app = &cli.App{
	Name:            "hans",
	Usage:           "drive Hans robot arms",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "serve",
			Usage:     "run the JSON relay server",
			UsageText: "hans serve [--config FILE] [--port PORT] [--fake]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagConfig,
					Aliases: []string{"c"},
					Usage:   "load configuration from `FILE`",
				},
				&cli.StringFlag{
					Name:  flagListen,
					Usage: "address to listen on",
					Value: "0.0.0.0",
				},
				&cli.UintFlag{
					Name:  flagPort,
					Usage: "port to listen on (default from config, else 10003)",
				},
				&cli.StringFlag{
					Name:  flagLogFile,
					Usage: "also write logs to `FILE`, rotated",
				},
				&cli.BoolFlag{
					Name:  flagFake,
					Usage: "serve in-memory fake arms instead of real controllers",
				},
			},
			Action: ServeAction,
		},
		{
			Name:      "call",
			Usage:     "send one command to a controller",
			ArgsUsage: "<command> [args...]",
			Flags:     controllerFlags,
			Action:    CallAction,
		},
		{
			Name:   "console",
			Usage:  "send commands typed one per line, e.g. GrpEnable 0",
			Flags:  controllerFlags,
			Action: ConsoleAction,
		},
		{
			Name:   "opcodes",
			Usage:  "list the commands the controller understands",
			Action: OpcodesAction,
		},
		{
			Name:   "version",
			Usage:  "print version info for this program",
			Action: VersionAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
