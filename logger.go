package astisdt

import "github.com/asticode/go-astikit"

// newLogger adapts l, a nil l giving a silent logger
func newLogger(l astikit.StdLogger) astikit.CompleteLogger { return astikit.AdaptStdLogger(l) }
