package git

import "github.com/gitforge/forge/storage"

// Storer is the interface that a Repository uses to persist objects,
// references and any information related to a particular repository,
// such as the .git directory or an in-memory mock.
type Storer = storage.Storer
