package main

import "fmt"

const (
	// appMajor is application major version
	appMajor = 0

	// appMinor is application minor version
	appMinor = 1

	// appPatch is application patch version
	appPatch = 0

	// appName is the name printed with the version
	appName = "qrtransfer"
)

// version returns the version as major.minor.patch
func version() string {
	return fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
}
