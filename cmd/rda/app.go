package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/zeusync/rda/internal/config"
	"github.com/zeusync/rda/internal/injector"
	"github.com/zeusync/rda/internal/observability/log"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "YAML configuration file",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (debug, info, warn, error, silent); overrides the config file",
	}
	delimsFlag = cli.StringFlag{
		Name:  "delims",
		Usage: "output delimiters, outermost first; defaults to codec.delimiters",
	}
	escapeFlag = cli.StringFlag{
		Name:  "escape",
		Usage: "output escape character; defaults to codec.escape",
	}
	storeFlag = cli.BoolFlag{
		Name:  "store",
		Usage: "also round trip the samples through the configured store, plain and enveloped",
	}
)

// env is shared by every command of one run.
type env struct {
	in  io.Reader
	out io.Writer
	cfg *config.Config
	log log.Log
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	e := &env{in: in, out: out, cfg: config.Default(), log: log.Nop()}

	app := cli.NewApp()
	app.Name = "rda"
	app.Usage = "inspect and check recursive delimited array text"
	app.Version = "0.1.0"
	app.Writer = out
	app.Flags = []cli.Flag{configFlag, logLevelFlag}
	app.Before = e.before
	app.After = e.after
	app.Commands = []cli.Command{
		{
			Name:      "fmt",
			Usage:     "Parse Rda text and print it in canonical form",
			ArgsUsage: "FILE|-",
			Flags:     []cli.Flag{delimsFlag, escapeFlag},
			Action:    e.fmtAction,
		},
		{
			Name:      "inspect",
			Usage:     "Print the tree of Rda text as YAML",
			ArgsUsage: "FILE|-",
			Action:    e.inspectAction,
		},
		{
			Name:      "hash",
			Usage:     "Print the xxhash fingerprint of the canonical form",
			ArgsUsage: "FILE|-",
			Action:    e.hashAction,
		},
		{
			Name:   "check",
			Usage:  "Run the round trip law over the built-in sample types",
			Flags:  []cli.Flag{storeFlag},
			Action: e.checkAction,
		},
		{
			Name:  "store",
			Usage: "Work with the configured store",
			Subcommands: []cli.Command{
				{
					Name:   "keys",
					Usage:  "List stored keys",
					Action: e.keysAction,
				},
				{
					Name:      "cat",
					Usage:     "Print the stored text of a key",
					ArgsUsage: "KEY",
					Action:    e.catAction,
				},
				{
					Name:      "rm",
					Usage:     "Delete a key",
					ArgsUsage: "KEY",
					Action:    e.rmAction,
				},
			},
		},
	}
	return app
}

func (e *env) before(ctx *cli.Context) error {
	if path := ctx.GlobalString("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		e.cfg = cfg
	}
	if level := ctx.GlobalString("log-level"); level != "" {
		if _, err := log.ParseLevel(level); err != nil {
			return err
		}
		e.cfg.Log.Level = level
	}
	e.log = injector.InitializeLogger(e.cfg).Named("cli")
	return nil
}

func (e *env) after(*cli.Context) error {
	_ = e.log.Sync()
	return nil
}

// readInput reads the file named by the first argument, or stdin for "-"
// or no argument. One trailing "\n" or "\r\n" is dropped, since editors
// add it and it is not part of the Rda text.
func (e *env) readInput(ctx *cli.Context) (string, error) {
	var (
		data []byte
		err  error
	)
	switch name := ctx.Args().First(); name {
	case "", "-":
		data, err = io.ReadAll(e.in)
	default:
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	text := string(data)
	if strings.HasSuffix(text, "\r\n") {
		return text[:len(text)-2], nil
	}
	return strings.TrimSuffix(text, "\n"), nil
}
