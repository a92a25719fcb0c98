package server

import (
	"io"

	"github.com/gitforge/forge/internal/server/http"
	"github.com/gitforge/forge/plumbing/transport"
)

type GitServer interface {
	Start() (string, error)
	io.Closer
}

func All(l transport.Loader) []GitServer {
	servers := []GitServer{}
	if srv, err := http.FromLoader(l); err == nil {
		servers = append(servers, srv)
	}

	return servers
}
