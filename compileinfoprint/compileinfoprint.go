// Package compileinfoprint is imported by the geneexpr tools for the side
// effect of logging their build revision to stderr at startup.
package compileinfoprint

import "github.com/carbocation/geneexpr/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
