package formula

import (
	"strconv"

	"github.com/rs/zerolog"
)

// Option is an option for creating a Parser.
type Option interface {
	option(config) config
}

// DefaultCacheSize is the number of compiled plans a Parser keeps by default.
const DefaultCacheSize = 64

type (
	loggeropt     struct{ log zerolog.Logger }
	cacheopt      int
	workersopt    int
	thresholdopt  int
	nodefaultsopt struct{}
)

// config holds the settings of a new Parser.
type config struct {
	log        zerolog.Logger
	cache      int
	bulk       bulkConfig
	nodefaults bool
}

func defaultConfig() config {
	return config{
		log:   zerolog.Nop(),
		cache: DefaultCacheSize,
		bulk:  defaultBulk,
	}
}

// WithLogger sets the logger for compilation and bulk evaluation events,
// all of which are logged at debug level. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return loggeropt{log}
}

func (o loggeropt) option(c config) config {
	c.log = o.log
	c.bulk.log = o.log
	return c
}

// WithCacheSize sets the number of compiled plans the parser keeps, keyed by
// expression text. Zero disables caching. Panics if n is negative.
func WithCacheSize(n int) Option {
	if n < 0 {
		panic("formula: negative cache size " + strconv.Itoa(n))
	}
	return cacheopt(n)
}

func (o cacheopt) option(c config) config {
	c.cache = int(o)
	return c
}

// WithBulkWorkers sets the maximum number of goroutines used for bulk
// evaluation. Zero, the default, means runtime.GOMAXPROCS(0). Panics if n is
// negative.
func WithBulkWorkers(n int) Option {
	if n < 0 {
		panic("formula: negative worker count " + strconv.Itoa(n))
	}
	return workersopt(n)
}

func (o workersopt) option(c config) config {
	c.bulk.workers = int(o)
	return c
}

// WithBulkThreshold sets the smallest bulk size evaluated in parallel. The
// default is DefaultBulkThreshold.
func WithBulkThreshold(n int) Option {
	return thresholdopt(n)
}

func (o thresholdopt) option(c config) config {
	c.bulk.threshold = int(o)
	return c
}

// WithoutDefaults creates a parser without the default constants, functions,
// prefix operators, or literal recognizers such as HexIdent. Built-in binary
// operators are unaffected; use EnableBuiltInOprt to disable them.
func WithoutDefaults() Option {
	return nodefaultsopt{}
}

func (nodefaultsopt) option(c config) config {
	c.nodefaults = true
	return c
}
