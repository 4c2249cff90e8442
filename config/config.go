// Package config implements the process-wide configuration surface
// of SPEC_FULL.md's Configuration section: a Config struct enumerating
// {IOPoolKind, IOPoolCapacity, WaitTimeoutMS, PacemakerMax, CacheMode,
// Schemes}, with CacheMode and PoolKind as pflag.Value +
// json.Unmarshaler enums settable from a cobra/pflag CLI flag or a
// config file, exactly like vfscommon.Options/vfscommon.CacheMode.
//
// There is no service-loader magic and no package-level singleton:
// truevfs.New(cfg) is the one explicit entry point that turns a Config
// into a running Kernel, per spec.md's Design Notes on process-wide
// lifecycle.
package config

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/truevfs/truevfs/pacemaker"
	"github.com/truevfs/truevfs/vfscache"
	"github.com/truevfs/truevfs/vfspath"
)

// CacheMode selects how aggressively a mount reads/writes through the
// vfscache layer, mirroring vfscommon.CacheMode's Off/Minimal/
// Writes/Full ladder.
type CacheMode int

const (
	CacheOff CacheMode = iota
	CacheMinimal
	CacheWrites
	CacheFull
)

var cacheModeNames = [...]string{"off", "minimal", "writes", "full"}

func (m CacheMode) String() string {
	if int(m) < 0 || int(m) >= len(cacheModeNames) {
		return "unknown"
	}
	return cacheModeNames[m]
}

// Set implements pflag.Value.
func (m *CacheMode) Set(s string) error {
	for i, name := range cacheModeNames {
		if name == s {
			*m = CacheMode(i)
			return nil
		}
	}
	return errors.Errorf("config: unknown cache mode %q", s)
}

// Type implements pflag.Value.
func (m CacheMode) Type() string { return "CacheMode" }

// UnmarshalJSON implements json.Unmarshaler, accepting the name form
// or a raw integer.
func (m *CacheMode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return m.Set(s)
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*m = CacheMode(n)
	return nil
}

// PoolKind selects the backing storage for vfscache buffers.
type PoolKind int

const (
	PoolMem PoolKind = iota
	PoolFile
	PoolThreshold
)

var poolKindNames = [...]string{"mem", "file", "threshold"}

func (k PoolKind) String() string {
	if int(k) < 0 || int(k) >= len(poolKindNames) {
		return "unknown"
	}
	return poolKindNames[k]
}

func (k *PoolKind) Set(s string) error {
	for i, name := range poolKindNames {
		if name == s {
			*k = PoolKind(i)
			return nil
		}
	}
	return errors.Errorf("config: unknown io-pool-kind %q", s)
}

func (k PoolKind) Type() string { return "PoolKind" }

func (k *PoolKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return k.Set(s)
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*k = PoolKind(n)
	return nil
}

// Config is the kernel's process-wide configuration.
type Config struct {
	// Schemes restricts which registered archivedriver schemes this
	// kernel instance will mount; empty means "every registered
	// scheme".
	Schemes []vfspath.Scheme

	IOPoolKind     PoolKind
	IOPoolCapacity int64  // byte threshold for PoolThreshold
	IOPoolDir      string // temp-file directory for PoolFile/overflow

	WaitTimeoutMS int
	PacemakerMax  int
	CacheMode     CacheMode

	// PacemakerSweep is how often the pacemaker's background safety
	// net flushes the single oldest touched mount point.
	PacemakerSweep time.Duration

	// DirtyIndexPath, if set, is the bbolt database path backing
	// vfscache's DirtyIndex: the set of unflushed entry names per mount
	// point is persisted there across sync, so a crash between a
	// buffer's flush and the archive's commit can be diagnosed on
	// restart. Empty disables the index; the kernel then runs without
	// crash-recovery bookkeeping, only in-memory dirty tracking.
	DirtyIndexPath string
}

// Default returns the out-of-the-box configuration: an in-memory pool
// below 1MiB overflowing to temp files, a 100ms lock-retry wait
// timeout, a pacemaker bound of 5, full read/write-back caching, and
// every registered scheme enabled.
func Default() Config {
	return Config{
		IOPoolKind:     PoolThreshold,
		IOPoolCapacity: 1 << 20,
		WaitTimeoutMS:  100,
		PacemakerMax:   pacemaker.DefaultCapacity,
		CacheMode:      CacheFull,
		PacemakerSweep: time.Minute,
	}
}

// WaitTimeout is WaitTimeoutMS as a time.Duration. The kernel does not
// pass it to the locking layer, which always waits
// controller.DefaultWaitTimeout.
func (c Config) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutMS) * time.Millisecond
}

// Pool builds the vfscache.Pool this configuration describes.
func (c Config) Pool() vfscache.Pool {
	switch c.IOPoolKind {
	case PoolMem:
		return vfscache.MemPool{}
	case PoolFile:
		return vfscache.FilePool{Dir: c.IOPoolDir}
	default:
		return vfscache.ThresholdPool{
			Threshold: c.IOPoolCapacity,
			Overflow:  vfscache.FilePool{Dir: c.IOPoolDir},
		}
	}
}

// SchemeEnabled reports whether scheme is mountable under this
// configuration.
func (c Config) SchemeEnabled(scheme vfspath.Scheme) bool {
	if len(c.Schemes) == 0 {
		return true
	}
	for _, s := range c.Schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

// RegisterFlags wires Config's fields onto fs as pflag.Value-backed
// flags, for cmd/truevfsctl's cobra command tree.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.Var(&c.IOPoolKind, "io-pool-kind", "cache buffer backing store: mem|file|threshold")
	fs.Int64Var(&c.IOPoolCapacity, "io-pool-capacity", c.IOPoolCapacity, "byte threshold for the threshold pool")
	fs.StringVar(&c.IOPoolDir, "io-pool-dir", c.IOPoolDir, "temp-file directory for file-backed cache buffers")
	fs.IntVar(&c.WaitTimeoutMS, "wait-timeout-ms", c.WaitTimeoutMS, "lock-retry wait timeout in milliseconds (stored only; locking uses controller.DefaultWaitTimeout)")
	fs.IntVar(&c.PacemakerMax, "pacemaker-max", c.PacemakerMax, "bound on touched-but-unsynced mount points")
	fs.Var(&c.CacheMode, "cache-mode", "cache aggressiveness: off|minimal|writes|full")
	fs.DurationVar(&c.PacemakerSweep, "pacemaker-sweep", c.PacemakerSweep, "pacemaker background flush interval")
	fs.StringVar(&c.DirtyIndexPath, "dirty-index-path", c.DirtyIndexPath, "bbolt database path for the dirty-entry crash-recovery index, empty to disable")
	fs.Var(schemesValue{c}, "schemes", "pipe-separated list of enabled schemes, empty for all")
}

// schemesValue adapts Config.Schemes to pflag.Value without exposing
// a second exported type for the slice field itself.
type schemesValue struct{ c *Config }

func (v schemesValue) String() string {
	if v.c == nil || len(v.c.Schemes) == 0 {
		return ""
	}
	names := make([]string, len(v.c.Schemes))
	for i, s := range v.c.Schemes {
		names[i] = s.String()
	}
	return strings.Join(names, "|")
}

func (v schemesValue) Set(s string) error {
	if s == "" {
		v.c.Schemes = nil
		return nil
	}
	parts := strings.Split(s, "|")
	schemes := make([]vfspath.Scheme, len(parts))
	for i, p := range parts {
		schemes[i] = vfspath.Scheme(p)
	}
	v.c.Schemes = schemes
	return nil
}

func (v schemesValue) Type() string { return "Schemes" }
