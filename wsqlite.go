// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wsqlite implements a database/sql driver for SQLite on top of the
// renamed opaque-handle engine surface in the shim subpackage.
package wsqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/wsqlite/go-wsqlite/shim"
)

func init() {
	sql.Register("wsqlite", Driver{})
}

// dsnScheme is the optional URL scheme accepted in DSNs,
// e.g. "wsqlite://app.db?busy_timeout=5000&vfs=unix".
const dsnScheme = "wsqlite"

// defaultBusyTimeoutMillis is how long a connection retries after running
// into a locked database or table before giving up.
const defaultBusyTimeoutMillis = 16 * 1000

type Driver struct{}

func (d Driver) Open(dsn string) (driver.Conn, error) {
	c, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

func (Driver) OpenConnector(dsn string) (driver.Connector, error) {
	return NewConnector(dsn, nil)
}

// NewConnector creates a Connector for a SQLite database. connInitFn, if
// non-nil, runs once on every new connection before it is handed to the
// pool. The user must close the Connector if it is not passed to the
// sql.OpenDB function. Otherwise, sql.DB closes the Connector when calling
// sql.DB.Close().
func NewConnector(dsn string, connInitFn func(execer driver.ExecerContext) error) (*Connector, error) {
	path, options, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	cfg, err := prepareConfig(options)
	if err != nil {
		return nil, err
	}

	return &Connector{
		path:       path,
		cfg:        cfg,
		connInitFn: connInitFn,
	}, nil
}

// Connector holds the parsed DSN. Unlike engines with a process-wide
// database object, every connection is its own engine handle, so Connect
// opens a fresh one each time the pool grows.
type Connector struct {
	path       string
	cfg        config
	connInitFn func(execer driver.ExecerContext) error
}

func (*Connector) Driver() driver.Driver {
	return Driver{}
}

func (c *Connector) Connect(context.Context) (driver.Conn, error) {
	// All connections run in serialized threading mode: strip a
	// caller-supplied no-mutex flag and force the full mutex.
	flags := shim.OpenFlags(c.cfg.Flags)
	if flags&(shim.OpenReadOnly|shim.OpenReadWrite) == 0 {
		flags |= shim.OpenReadWrite | shim.OpenCreate
	}
	flags &^= shim.OpenNoMutex
	flags |= shim.OpenFullMutex | shim.OpenURI

	db, rc := shim.Open(c.path, flags, c.cfg.VFS)
	if rc != shim.ResultOK {
		err := getError(errOpen, engineError(db, rc))
		// A handle can be populated even on failure; release it. A
		// secondary error from that close is ignored.
		if db.Valid() {
			shim.Close(db)
		}
		return nil, err
	}

	if rc := shim.BusyTimeout(db, c.cfg.BusyTimeout); rc != shim.ResultOK {
		err := getError(errSetBusyTimeout, engineError(db, rc))
		shim.Close(db)
		return nil, err
	}

	if rc := shim.ExtendedResultCodes(db, true); rc != shim.ResultOK {
		err := getError(errExtendedCodes, engineError(db, rc))
		shim.Close(db)
		return nil, err
	}

	con := &Conn{db: db}

	if c.connInitFn != nil {
		if err := c.connInitFn(con); err != nil {
			con.Close()
			return nil, err
		}
	}
	return con, nil
}

func (c *Connector) Close() error {
	return nil
}

// config carries the DSN query options. Unknown keys are ignored, matching
// the engine's own tolerance for unrecognized URI parameters.
type config struct {
	Flags       int    `mapstructure:"flags"`
	VFS         string `mapstructure:"vfs"`
	BusyTimeout int    `mapstructure:"busy_timeout"`
}

func prepareConfig(options url.Values) (config, error) {
	cfg := config{
		BusyTimeout: defaultBusyTimeoutMillis,
	}

	if len(options) == 0 {
		return cfg, nil
	}

	flat := make(map[string]string, len(options))
	for k, v := range options {
		if len(v) == 0 {
			continue
		}
		flat[k] = v[0]
	}

	if err := mapstructure.WeakDecode(flat, &cfg); err != nil {
		return cfg, getError(errSetConfig, err)
	}
	return cfg, nil
}

// parseDSN accepts a plain path (":memory:", "app.db", "file:app.db?...")
// or a URL of the form "wsqlite://path?options". Plain paths cannot go
// through url.Parse, since ":memory:" is not a valid URL.
func parseDSN(dsn string) (path string, options url.Values, err error) {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", nil, getError(errParseDSN, err)
		}
		if u.Scheme != dsnScheme {
			return "", nil, getError(errParseDSN, fmt.Errorf("unknown scheme %s, expected %s", u.Scheme, dsnScheme))
		}
		path = u.Host + u.Path
		if path == "" {
			return "", nil, getError(errParseDSN, fmt.Errorf("no path or database name"))
		}
		return path, u.Query(), nil
	}

	path = dsn
	if idx := strings.IndexByte(dsn, '?'); idx >= 0 {
		// file: DSNs keep their query string; the engine interprets it.
		if !strings.HasPrefix(dsn, "file:") {
			path = dsn[:idx]
		}
		options, err = url.ParseQuery(dsn[idx+1:])
		if err != nil {
			return "", nil, getError(errParseDSN, err)
		}
	}
	if path == "" {
		return "", nil, getError(errParseDSN, fmt.Errorf("no path or database name"))
	}
	return path, options, nil
}

// Version reports the wrapped engine's version string, e.g. "3.46.1".
func Version() string {
	return shim.Libversion()
}

// VersionNumber reports the engine version as a single integer,
// e.g. 3046001.
func VersionNumber() int {
	return shim.LibversionNumber()
}

// SourceID reports the engine's build identification string.
func SourceID() string {
	return shim.Sourceid()
}
