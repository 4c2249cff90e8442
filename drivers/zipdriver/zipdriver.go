// Package zipdriver registers the "zip" scheme: plain ZIP with no
// extra format constraint.
package zipdriver

import (
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/zipfamily"
	"github.com/truevfs/truevfs/vfspath"
)

const Scheme vfspath.Scheme = "zip"

// New constructs the "zip" driver.
func New() archivedriver.Driver { return zipfamily.New(Scheme, nil) }

func init() {
	archivedriver.Register(archivedriver.Registration{
		Scheme:   Scheme,
		Suffixes: []string{"zip"},
		Driver:   New(),
	})
}
