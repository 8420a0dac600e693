package build

import "errors"

// ErrUnsafeClean is the cause when a clean would remove the source tree.
var ErrUnsafeClean = errors.New("sitebuilder: refusing to clean deploy directory")
