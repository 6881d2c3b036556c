package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zephyrtronium/formula"
	"github.com/zephyrtronium/formula/internal/config"
)

type options struct {
	in, verb, config string
	dec, arg, thou   string
	level            string
	given, bulk      [][2]string
	nl, echo, multi  bool
	version          bool
	prec             uint
}

// run is the whole command. It returns the exit status: 0 if every
// expression evaluated, 1 if any failed, and 2 for usage errors.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var o options
	pair := func(dst *[][2]string, what string) func(string) error {
		return func(s string) error {
			name, val, ok := strings.Cut(s, "=")
			if !ok {
				return fmt.Errorf(`%s definitions must be "name=value", not %q`, what, s)
			}
			*dst = append(*dst, [2]string{strings.TrimSpace(name), strings.TrimSpace(val)})
			return nil
		}
	}
	fs := flag.NewFlagSet("formula", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "input file (default stdin if no expressions are given otherwise)")
	fs.StringVar(&o.verb, "fmt", "%g", "result formatting string")
	fs.Func("given", "name=expr variable definition (any number of times)", pair(&o.given, "variable"))
	fs.Func("bulk", "name=v1,v2,... array variable for bulk evaluation (any number of times)", pair(&o.bulk, "array"))
	fs.StringVar(&o.config, "config", "", "YAML or TOML definitions file")
	fs.BoolVar(&o.nl, "n", false, "treat separate input lines as separate expressions")
	fs.BoolVar(&o.echo, "echo", false, "print parsed expressions")
	fs.BoolVar(&o.multi, "multi", false, "print the value of every subexpression")
	fs.UintVar(&o.prec, "prec", 0, "bits of precision for arbitrary-precision evaluation (0 for float64)")
	fs.StringVar(&o.dec, "dec", "", "decimal separator")
	fs.StringVar(&o.arg, "arg", "", "argument separator")
	fs.StringVar(&o.thou, "thousands", "", "thousands separator")
	fs.StringVar(&o.level, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.BoolVar(&o.version, "version", false, "print the expression language version and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level, err := zerolog.ParseLevel(o.level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).
		With().Timestamp().Str("service", "formula").Logger().Level(level)

	p := formula.New(formula.WithLogger(log))
	if o.version {
		fmt.Fprintln(stdout, p.Version())
		return 0
	}

	// size is the bulk size, the length of the shortest array, or -1 if
	// there are no arrays.
	size := -1
	shortest := func(n int) {
		if size < 0 || n < size {
			size = n
		}
	}
	var exprs []string
	if o.config != "" {
		cfg, err := config.Load(o.config)
		if err != nil {
			log.Error().Err(err).Msg("loading definitions")
			return 1
		}
		b, err := cfg.Apply(p)
		if err != nil {
			log.Error().Err(err).Str("path", o.config).Msg("applying definitions")
			return 1
		}
		for _, arr := range b.Arrays {
			shortest(len(arr))
		}
		exprs = append(exprs, cfg.Expressions...)
		log.Info().Str("path", o.config).Int("expressions", len(cfg.Expressions)).Msg("loaded definitions")
	}
	if err := setLocale(p, &o); err != nil {
		log.Error().Err(err).Msg("bad separator")
		return 2
	}
	for _, d := range o.given {
		v, err := value(p, d[1])
		if err != nil {
			log.Error().Err(err).Str("name", d[0]).Msg("setting variable")
			return 1
		}
		if err := p.DefineVar(d[0], &v); err != nil {
			log.Error().Err(err).Str("name", d[0]).Msg("setting variable")
			return 1
		}
	}
	for _, d := range o.bulk {
		arr, err := parseArray(d[1])
		if err == nil {
			err = p.DefineVarArray(d[0], arr)
		}
		if err != nil {
			log.Error().Err(err).Str("name", d[0]).Msg("setting array")
			return 1
		}
		shortest(len(arr))
	}

	srcs, err := inputs(o.in, o.nl, fs.Args(), len(exprs) == 0, stdin)
	if err != nil {
		log.Error().Err(err).Msg("reading input")
		return 1
	}
	exprs = append(exprs, srcs...)

	o.verb += "\n"
	status := 0
	for _, src := range exprs {
		if err := evaluate(p, src, &o, size, stdout); err != nil {
			fmt.Fprintln(stdout, err)
			status = 1
		}
	}
	return status
}

func setLocale(p *formula.Parser, o *options) error {
	seps := []struct {
		s   string
		set func(rune) error
	}{
		{o.arg, p.SetArgSep},
		{o.dec, p.SetDecSep},
		{o.thou, p.SetThousandsSep},
	}
	for _, sep := range seps {
		if sep.s == "" {
			continue
		}
		r, err := config.Sep(sep.s)
		if err != nil {
			return err
		}
		if err := sep.set(r); err != nil {
			return err
		}
	}
	return nil
}

// value evaluates the definition of a -given variable. It can use anything
// defined before it.
func value(p *formula.Parser, src string) (float64, error) {
	pl, err := p.Compile(src)
	if err != nil {
		return 0, err
	}
	return pl.Eval()
}

func parseArray(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	r := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		r[i] = v
	}
	return r, nil
}

// inputs collects expression sources. The file named by in comes first,
// then args. Standard input is read for "-", or when std is set and there
// are neither args nor a file.
func inputs(in string, lines bool, args []string, std bool, stdin io.Reader) ([]string, error) {
	var texts []string
	switch {
	case in != "" && in != "-":
		b, err := os.ReadFile(in)
		if err != nil {
			return nil, err
		}
		texts = append(texts, string(b))
	case in == "-", std && len(args) == 0:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		texts = append(texts, string(b))
	}
	// Whole inputs are allowed to be blank, e.g. an empty file.
	var r []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			r = append(r, t)
		}
	}
	r = append(r, args...)
	if !lines {
		return r, nil
	}
	var split []string
	for _, t := range r {
		for _, l := range strings.Split(t, "\n") {
			if strings.TrimSpace(l) != "" {
				split = append(split, l)
			}
		}
	}
	return split, nil
}

func evaluate(p *formula.Parser, src string, o *options, size int, w io.Writer) error {
	if err := p.SetExpr(src); err != nil {
		return err
	}
	if o.echo {
		pl, err := p.Plan()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%v : ", pl)
	}
	switch {
	case o.prec > 0:
		r, err := p.EvalBig(o.prec)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, o.verb, r)
	case size >= 0:
		out := make([]float64, size)
		if err := p.EvalBulk(out); err != nil {
			return err
		}
		for _, r := range out {
			fmt.Fprintf(w, o.verb, r)
		}
	case o.multi:
		r, err := p.EvalMulti()
		if err != nil {
			return err
		}
		verb := strings.TrimSuffix(o.verb, "\n")
		vals := make([]string, len(r))
		for i, v := range r {
			vals[i] = fmt.Sprintf(verb, v)
		}
		fmt.Fprintln(w, strings.Join(vals, " "))
	default:
		r, err := p.Eval()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, o.verb, r)
	}
	return nil
}
