package dotgit

import (
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// commonPaths are redirected to the shared repository's common .git
// directory when this filesystem belongs to a linked worktree.
var commonPaths = []string{
	objectsPath, refsPath, packedRefsPath, configPath, branchesPath,
	hooksPath, infoPath, remotesPath, logsPath, shallowPath, worktreesPath,
}

// perWorktreePaths fall under a commonPaths prefix but git keeps them
// local to each worktree rather than sharing them.
var perWorktreePaths = []string{
	"logs/HEAD", "refs/bisect", "refs/rewritten", "refs/worktree",
}

// RepositoryFilesystem presents a single billy.Filesystem view over a
// linked worktree's own .git directory and the repository's shared
// common .git directory. Paths git defines as shared (objects, refs,
// config, hooks, ...) are redirected to the common directory; a
// handful of per-worktree exceptions under those same prefixes, and
// everything else, stay local.
type RepositoryFilesystem struct {
	dotGitFs       billy.Filesystem
	commonDotGitFs billy.Filesystem
}

// NewRepositoryFilesystem returns a billy.Filesystem rooted at
// dotGitFs that transparently redirects git's shared metadata paths to
// commonDotGitFs.
func NewRepositoryFilesystem(dotGitFs, commonDotGitFs billy.Filesystem) billy.Filesystem {
	return &RepositoryFilesystem{dotGitFs: dotGitFs, commonDotGitFs: commonDotGitFs}
}

func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func (fs *RepositoryFilesystem) fsFor(path string) billy.Filesystem {
	path = strings.TrimPrefix(path, "./")

	for _, p := range perWorktreePaths {
		if hasPathPrefix(path, p) {
			return fs.dotGitFs
		}
	}

	for _, p := range commonPaths {
		if hasPathPrefix(path, p) {
			return fs.commonDotGitFs
		}
	}

	return fs.dotGitFs
}

func (fs *RepositoryFilesystem) Create(filename string) (billy.File, error) {
	return fs.fsFor(filename).Create(filename)
}

func (fs *RepositoryFilesystem) Open(filename string) (billy.File, error) {
	return fs.fsFor(filename).Open(filename)
}

func (fs *RepositoryFilesystem) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	return fs.fsFor(filename).OpenFile(filename, flag, perm)
}

func (fs *RepositoryFilesystem) Stat(filename string) (os.FileInfo, error) {
	return fs.fsFor(filename).Stat(filename)
}

func (fs *RepositoryFilesystem) Rename(oldpath, newpath string) error {
	return fs.fsFor(oldpath).Rename(oldpath, newpath)
}

func (fs *RepositoryFilesystem) Remove(filename string) error {
	return fs.fsFor(filename).Remove(filename)
}

func (fs *RepositoryFilesystem) Join(elem ...string) string {
	return fs.dotGitFs.Join(elem...)
}

func (fs *RepositoryFilesystem) TempFile(dir, prefix string) (billy.File, error) {
	return fs.fsFor(dir).TempFile(dir, prefix)
}

func (fs *RepositoryFilesystem) ReadDir(path string) ([]os.FileInfo, error) {
	return fs.fsFor(path).ReadDir(path)
}

func (fs *RepositoryFilesystem) MkdirAll(filename string, perm os.FileMode) error {
	return fs.fsFor(filename).MkdirAll(filename, perm)
}

func (fs *RepositoryFilesystem) Lstat(filename string) (os.FileInfo, error) {
	return fs.fsFor(filename).Lstat(filename)
}

func (fs *RepositoryFilesystem) Symlink(target, link string) error {
	return fs.fsFor(link).Symlink(target, link)
}

func (fs *RepositoryFilesystem) Readlink(link string) (string, error) {
	return fs.fsFor(link).Readlink(link)
}

func (fs *RepositoryFilesystem) Chroot(path string) (billy.Filesystem, error) {
	return fs.fsFor(path).Chroot(path)
}

func (fs *RepositoryFilesystem) Root() string {
	return fs.dotGitFs.Root()
}
