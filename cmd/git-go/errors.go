package main

import "errors"

// errNotImplemented is returned by commands named in the CLI vocabulary but
// out of scope: no merge engine, no working tree materialization.
var errNotImplemented = errors.New("not implemented")
