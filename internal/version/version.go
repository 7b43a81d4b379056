// Package version contains the build information of the dusseldorf binary.
package version

// Name is the name of the server, used in the Server header of the debug API
// and in startup logs.
const Name = "dusseldorf"

// The build metadata is stamped by the linker.  Linker symbols must be
// variables, so they are kept unexported and read through getters.
var (
	branch     string
	committime string
	revision   string
	version    string
)

// Branch returns the Git branch the binary was built from.
func Branch() (b string) {
	return branch
}

// CommitTime returns the commit time of the build as a string.
func CommitTime() (t string) {
	return committime
}

// Revision returns the Git revision the binary was built from.
func Revision() (r string) {
	return revision
}

// Version returns the version of the binary as a string.
func Version() (v string) {
	return version
}
