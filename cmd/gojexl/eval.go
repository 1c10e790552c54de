package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/sandrolain/gojexl"
	"github.com/sandrolain/gojexl/pkg/evaluator"
	"github.com/sandrolain/gojexl/pkg/types"
)

// Eval evaluates an inline expression or script files.
type Eval struct {
	Expr    string            `short:"e" help:"Expression to evaluate instead of files."`
	Files   []string          `arg:"" optional:"" type:"existingfile" help:"Script files, evaluated concurrently."`
	Context string            `short:"c" type:"existingfile" help:"Context variables (.yaml, .yml, .json or .toml)."`
	Vars    map[string]string `name:"var" short:"v" help:"Context variable as name=value; values are YAML."`
	Options string            `short:"o" help:"Option toggles, e.g. '+safe -strict'."`
	Config  string            `type:"existingfile" help:"Engine configuration file (TOML)."`
	Output  string            `default:"json" enum:"json,yaml" help:"Result format."`
	Jobs    int               `short:"j" default:"4" help:"Files evaluated at once."`
}

// result is what evaluating one script produced.
type result struct {
	name  string
	value interface{}
	err   error
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context, out io.Writer) error {
	if e.Expr == "" && len(e.Files) == 0 {
		return errors.New("nothing to evaluate: pass -e or script files")
	}
	cfg, err := loadConfig(e.Config)
	if err != nil {
		return err
	}
	engine, err := gojexl.New(append(cfg.engineOptions(e.Options), gojexl.WithLogger(slog.Default()))...)
	if err != nil {
		return err
	}
	fileVars, err := loadContext(e.Context)
	if err != nil {
		return err
	}
	flagVars, err := parseVars(e.Vars)
	if err != nil {
		return err
	}
	vars := mergeVars(cfg.Vars, fileVars, flagVars)

	var results []result
	if e.Expr != "" {
		results = []result{e.evalSource(ctx, engine, "", e.Expr, vars)}
	} else {
		results, err = e.evalFiles(ctx, engine, vars)
		if err != nil {
			return err
		}
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			slog.Error("evaluation failed", slog.String("script", r.name), slog.Any("error", r.err))
			continue
		}
		if err := e.write(out, r); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scripts failed", failed, len(results))
	}
	return nil
}

// evalFiles evaluates the files concurrently. Each file runs against its
// own copy of vars; results keep the argument order.
func (e *Eval) evalFiles(ctx context.Context, engine *gojexl.Engine, vars map[string]interface{}) ([]result, error) {
	results := make([]result, len(e.Files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Jobs, 1))
	for i, name := range e.Files {
		g.Go(func() error {
			src, err := os.ReadFile(name)
			if err != nil {
				return err
			}
			results[i] = e.evalSource(ctx, engine, name, string(src), maps.Clone(vars))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Eval) evalSource(ctx context.Context, engine *gojexl.Engine, name, src string, vars map[string]interface{}) result {
	script, err := engine.CreateNamedScript(name, src)
	if err != nil {
		return result{name: name, err: err}
	}
	slog.Debug("evaluating", slog.String("script", name), slog.Int("locals", script.Locals()))
	v, err := engine.Execute(ctx, script, evaluator.NewMapContext(vars))
	if err != nil {
		if snippet := script.Snippet(err); snippet != "" {
			err = fmt.Errorf("%w\n%s", err, snippet)
		}
	}
	return result{name: name, value: v, err: err}
}

func (e *Eval) write(out io.Writer, r result) error {
	v := printable(r.value)
	if e.Output == "yaml" {
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		if len(e.Files) > 1 {
			if _, err := fmt.Fprintf(out, "# %s\n", r.name); err != nil {
				return err
			}
		}
		_, err = out.Write(data)
		return err
	}

	enc := json.NewEncoder(out)
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// printable converts values without a data representation, such as
// closures, to their description.
func printable(v interface{}) interface{} {
	switch x := v.(type) {
	case *evaluator.Closure:
		return fmt.Sprintf("closure(%s)", x.Name())
	case *types.Script:
		return x.String()
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, e := range x {
			m[fmt.Sprint(k)] = printable(e)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, e := range x {
			m[k] = printable(e)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(x))
		for i, e := range x {
			s[i] = printable(e)
		}
		return s
	}
	return v
}
