package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
	"github.com/pkg/profile"

	"github.com/sandrolain/gojexl"
)

// CLI is the top-level command-line interface.
type CLI struct {
	Log     logConfig        `embed:"" group:"log" prefix:"log-"`
	Version kong.VersionFlag `help:"Print the version and exit."`

	Profile    string `enum:",cpu,mem" default:"" help:"Write a CPU or memory profile."`
	ProfileDir string `default:"."                help:"Profile output directory." type:"path"`

	Eval  Eval  `cmd:"" default:"withargs" help:"Evaluate scripts."`
	Check Check `cmd:""                    help:"Parse scripts and report syntax errors."`
}

// Run parses args and executes the selected command. Results are written to
// out; exit is called by kong on --help and usage errors.
func Run(ctx context.Context, out io.Writer, exit func(int), args ...string) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("gojexl"),
		kong.Description("Evaluate GoJEXL scripts against YAML, JSON or TOML data."),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups([]kong.Group{{Key: "log", Title: "Logging options"}}),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}),
		kong.Vars{"version": gojexl.Version()},
	)
	if err != nil {
		return err
	}
	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	slog.SetDefault(cli.Log.logger(os.Stderr))
	defer cli.startProfile()()

	return ktx.Run()
}

func (c *CLI) startProfile() (stop func()) {
	var mode func(*profile.Profile)
	switch c.Profile {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	default:
		return func() {}
	}
	slog.Debug("profile start", slog.String("mode", c.Profile), slog.String("dir", c.ProfileDir))
	p := profile.Start(mode, profile.ProfilePath(c.ProfileDir), profile.Quiet, profile.NoShutdownHook)
	return p.Stop
}

type logConfig struct {
	Level  string `default:"warn" enum:"debug,info,warn,error" help:"Set log level."`
	Format string `default:"auto" enum:"auto,text,json"        help:"Set log format; auto is text on a terminal."`
}

func (l logConfig) logger(w *os.File) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}

	format := l.Format
	if format == "auto" {
		format = "json"
		if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
