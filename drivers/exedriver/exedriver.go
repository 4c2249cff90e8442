// Package exedriver registers the "exe" scheme: a self-extracting ZIP
// archive, i.e. a native executable preamble followed by a normal ZIP
// central directory. Read-only: this corpus has no SFX-stub generator,
// so regenerating the executable preamble on write is out of scope —
// Writable reports false and every write-shaped Controller operation
// fails with vfsmodel.ReadOnly, the same non-encoder situation
// tarbz2driver is in.
package exedriver

import (
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/zipfamily"
	"github.com/truevfs/truevfs/vfspath"
)

const Scheme vfspath.Scheme = "exe"

type exeConstraint struct{}

func (exeConstraint) Writable() bool { return false }

// New constructs the "exe" driver.
func New() archivedriver.Driver { return zipfamily.New(Scheme, exeConstraint{}) }

func init() {
	archivedriver.Register(archivedriver.Registration{
		Scheme:   Scheme,
		Suffixes: []string{"exe"},
		Driver:   New(),
	})
}
