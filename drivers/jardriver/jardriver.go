// Package jardriver registers the "jar" scheme: ZIP archives following
// the Java JAR/WAR/EAR convention (an optional META-INF/MANIFEST.MF
// entry). The manifest imposes no write restriction here — this corpus
// does not validate manifest contents, only recognizes the suffix
// family, matching the spec's scheme table where jar/war/ear share one
// scheme and remain fully read-write ZIP.
package jardriver

import (
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/zipfamily"
	"github.com/truevfs/truevfs/vfspath"
)

const Scheme vfspath.Scheme = "jar"

type jarConstraint struct{}

func (jarConstraint) Writable() bool { return true }

// New constructs the "jar" driver.
func New() archivedriver.Driver { return zipfamily.New(Scheme, jarConstraint{}) }

func init() {
	archivedriver.Register(archivedriver.Registration{
		Scheme:   Scheme,
		Suffixes: []string{"jar", "war", "ear"},
		Driver:   New(),
	})
}
