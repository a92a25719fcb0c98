package objfile

import "github.com/gitforge/forge/plumbing"

var objfileFixtures = []struct {
	hash    string
	t       plumbing.ObjectType
	content string
	data    string
}{
	{
		"e69de29bb2d1d6434b8b29ae775ad8c2e48c5391",
		plumbing.BlobObject,
		"",
		"eAFLysaalPUjBgAAAJsAHw==",
	},
	{
		"a8a940627d132695a9769df883f85992f0ff4a43",
		plumbing.BlobObject,
		"Hello, world!\n",
		"eAFLysaallLi5XHKzHHOzy9JL9XLKbIKTi0pSgUAp4EKgw==",
	},
}
