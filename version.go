package bibvault

import _ "embed"

// Version is the version of the library and the bibvault binary.
//
//go:embed VERSION
var Version string
