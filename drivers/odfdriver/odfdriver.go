// Package odfdriver registers the "odf" scheme: ZIP archives following
// the OpenDocument convention, whose first entry is an uncompressed
// "mimetype" file. The driver neither checks nor regenerates that
// convention: archivebase's staged commit emits entries in
// lexicographic byte order, so names such as "META-INF/manifest.xml"
// and "content.xml" are written before "mimetype". odf is otherwise a
// read-write ZIP like jar.
package odfdriver

import (
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/zipfamily"
	"github.com/truevfs/truevfs/vfspath"
)

const Scheme vfspath.Scheme = "odf"

type odfConstraint struct{}

func (odfConstraint) Writable() bool { return true }

// New constructs the "odf" driver.
func New() archivedriver.Driver { return zipfamily.New(Scheme, odfConstraint{}) }

func init() {
	archivedriver.Register(archivedriver.Registration{
		Scheme: Scheme,
		Suffixes: []string{
			"odt", "ott", "odg", "otg", "odp", "otp", "ods", "ots",
			"odc", "otc", "odi", "oti", "odf", "otf", "odm", "oth", "odb",
		},
		Driver: New(),
	})
}
