package filesystem

import (
	"github.com/gitforge/forge/config"
	formatcfg "github.com/gitforge/forge/plumbing/format/config"
	"github.com/gitforge/forge/storage/filesystem/dotgit"
	"github.com/gitforge/forge/utils/ioutil"
)

// ConfigStorage is a filesystem-backed implementation of
// config.ConfigStorer, reading and writing the repository's "config"
// file.
type ConfigStorage struct {
	dir *dotgit.DotGit
	// objectFormat is the hash algorithm this storage was opened with,
	// used to seed a freshly created repository's config when none
	// exists on disk yet.
	objectFormat formatcfg.ObjectFormat
}

// Config returns the repository configuration, decoded from the
// on-disk "config" file. A missing file is not an error: it returns a
// fresh Config seeded with this storage's object format.
func (c *ConfigStorage) Config() (cfg *config.Config, err error) {
	f, err := c.dir.Config()
	if err != nil {
		if err == dotgit.ErrConfigNotFound {
			cfg = config.NewConfig()
			if c.objectFormat != formatcfg.UnsetObjectFormat && c.objectFormat != formatcfg.SHA1 {
				cfg.Core.RepositoryFormatVersion = formatcfg.Version1
				cfg.Extensions.ObjectFormat = c.objectFormat
			}
			return cfg, nil
		}
		return nil, err
	}
	defer ioutil.CheckClose(f, &err)

	return config.ReadConfig(f)
}

// SetConfig persists cfg to the on-disk "config" file, overwriting any
// previous content.
func (c *ConfigStorage) SetConfig(cfg *config.Config) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}

	b, err := cfg.Marshal()
	if err != nil {
		return err
	}

	f, err := c.dir.ConfigWriter()
	if err != nil {
		return err
	}
	defer ioutil.CheckClose(f, &err)

	_, err = f.Write(b)
	return err
}
