package fake

import "github.com/flotilla-dev/flotilla/pkg/runtime"

var _ runtime.Client = (*Client)(nil)
