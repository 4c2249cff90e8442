package vfsmodel

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AccessOption is a single bit of the access-option bit-field taken by
// every controller operation (§4.2).
type AccessOption uint32

const (
	Cache AccessOption = 1 << iota
	Compress
	Store
	Encrypt
	CreateParents
	Exclusive
	Append
	Grow
)

var accessOptionNames = []struct {
	bit  AccessOption
	name string
}{
	{Cache, "cache"},
	{Compress, "compress"},
	{Store, "store"},
	{Encrypt, "encrypt"},
	{CreateParents, "create-parents"},
	{Exclusive, "exclusive"},
	{Append, "append"},
	{Grow, "grow"},
}

// AccessOptions is the bit-field of AccessOption flags passed to every
// controller operation.
type AccessOptions uint32

// Has reports whether opts carries every bit in want.
func (opts AccessOptions) Has(want AccessOption) bool {
	return AccessOption(opts)&want == want
}

// With returns opts with the given option bit set.
func (opts AccessOptions) With(opt AccessOption) AccessOptions {
	return opts | AccessOptions(opt)
}

func (opts AccessOptions) String() string {
	var names []string
	for _, e := range accessOptionNames {
		if opts.Has(e.bit) {
			names = append(names, e.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Set implements pflag.Value so AccessOptions can be set from a CLI
// flag, matching vfscommon.CacheMode's pflag.Value implementation.
func (opts *AccessOptions) Set(s string) error {
	if s == "" || s == "none" {
		*opts = 0
		return nil
	}
	var out AccessOptions
	for _, part := range strings.Split(s, "|") {
		found := false
		for _, e := range accessOptionNames {
			if e.name == part {
				out |= AccessOptions(e.bit)
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("vfsmodel: unknown access option %q", part)
		}
	}
	*opts = out
	return nil
}

// Type implements pflag.Value.
func (opts AccessOptions) Type() string { return "AccessOptions" }

// UnmarshalJSON implements json.Unmarshaler, accepting either the
// pipe-joined string form or a raw integer.
func (opts *AccessOptions) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return opts.Set(s)
	}
	var n uint32
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*opts = AccessOptions(n)
	return nil
}

// SyncOption is a single bit of the §4.7 sync-option bit-field.
type SyncOption uint32

const (
	WaitCloseInput SyncOption = 1 << iota
	WaitCloseOutput
	ForceCloseInput
	ForceCloseOutput
	AbortChanges
	ClearCache
	Umount
)

// SyncOptions is the bit-field passed to Controller.Sync. Umount
// implies ForceCloseInput|ForceCloseOutput|ClearCache (§4.7).
type SyncOptions uint32

// Has reports whether opts carries every bit in want, after expanding
// Umount's implied bits.
func (opts SyncOptions) Has(want SyncOption) bool {
	return SyncOption(opts.expand())&want == want
}

func (opts SyncOptions) expand() SyncOptions {
	if SyncOption(opts)&Umount == Umount {
		opts |= SyncOptions(ForceCloseInput | ForceCloseOutput | ClearCache)
	}
	return opts
}

// ForcesClose reports whether opts forces closing of either direction.
func (opts SyncOptions) ForcesClose() bool {
	return opts.Has(ForceCloseInput) || opts.Has(ForceCloseOutput)
}

func (opts SyncOptions) String() string {
	names := []struct {
		bit  SyncOption
		name string
	}{
		{WaitCloseInput, "wait-close-input"},
		{WaitCloseOutput, "wait-close-output"},
		{ForceCloseInput, "force-close-input"},
		{ForceCloseOutput, "force-close-output"},
		{AbortChanges, "abort-changes"},
		{ClearCache, "clear-cache"},
		{Umount, "umount"},
	}
	var out []string
	for _, e := range names {
		if SyncOption(opts)&e.bit == e.bit {
			out = append(out, e.name)
		}
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, "|")
}

// ParseAccessOption is a small helper used by config flag parsing to
// report unknown numeric overrides with a clear error, mirroring the
// diagnostic style of vfscommon.CacheMode.Set.
func ParseAccessOption(s string) (AccessOption, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "vfsmodel: invalid access option %q", s)
	}
	return AccessOption(n), nil
}
