package server_test

import (
	"github.com/gitforge/forge/internal/transport/test"
	"github.com/gitforge/forge/plumbing/cache"
	"github.com/gitforge/forge/plumbing/server"
	"github.com/gitforge/forge/plumbing/transport"
	"github.com/gitforge/forge/plumbing/transport/file"
	"github.com/gitforge/forge/storage/filesystem"
	"github.com/gitforge/forge/storage/memory"

	fixtures "github.com/go-git/go-git-fixtures/v5"
)

type BaseSuite struct {
	test.ReceivePackSuite

	loader       server.MapLoader
	client       transport.Transport
	clientBackup transport.Transport
	asClient     bool
}

func (s *BaseSuite) SetupSuite() {
	s.loader = server.MapLoader{}
	if s.asClient {
		s.client = server.NewClient(s.loader)
	} else {
		s.client = server.NewServer(s.loader)
	}

	s.clientBackup = file.DefaultClient
	transport.Register("file", s.client)
}

func (s *BaseSuite) TearDownSuite() {
	if s.clientBackup == nil {
		transport.Unregister("file")
	} else {
		transport.Register("file", s.clientBackup)
	}
	fixtures.Clean()
}

func (s *BaseSuite) prepareRepositories() {
	var err error

	fs := fixtures.Basic().One().DotGit()
	s.Endpoint, err = transport.NewEndpoint(fs.Root())
	s.Nil(err)
	s.loader[s.Endpoint.String()] = filesystem.NewStorage(fs, cache.NewObjectLRUDefault())

	s.EmptyEndpoint, err = transport.NewEndpoint("/empty.git")
	s.Nil(err)
	s.loader[s.EmptyEndpoint.String()] = memory.NewStorage()

	s.NonExistentEndpoint, err = transport.NewEndpoint("/non-existent.git")
	s.Nil(err)
}
