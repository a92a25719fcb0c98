package git

// Default supported transports.
import (
	_ "github.com/gitforge/forge/plumbing/transport/file" // file transport
	_ "github.com/gitforge/forge/plumbing/transport/git"  // git transport
	_ "github.com/gitforge/forge/plumbing/transport/http" // http transport
	_ "github.com/gitforge/forge/plumbing/transport/ssh"  // ssh transport
)
