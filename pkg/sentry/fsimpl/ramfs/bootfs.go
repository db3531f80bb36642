package ramfs

import (
	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// NewBootFilesystem builds an unlimited tree (spec.md §4.9: "variant of
// tmpfs with a boot-populated set of files; otherwise identical") and
// seeds it with files, keyed by slash-separated path relative to the
// root; missing parent directories are created along the way.
func NewBootFilesystem(files map[string][]byte) (*Dir, error) {
	root := NewTree(nil)
	ctx := context.Background()
	for path, contents := range files {
		if err := seedFile(ctx, root, path, contents); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func seedFile(ctx context.Context, root *Dir, path string, contents []byte) error {
	comps := splitPath(path)
	if len(comps) == 0 {
		return nil
	}
	dir := root
	for _, c := range comps[:len(comps)-1] {
		child, err := dir.Lookup(ctx, c)
		if err != nil {
			next, err := dir.Mkdir(ctx, c, 0o755)
			if err != nil {
				return err
			}
			dir = next.(*Dir)
			continue
		}
		dir = child.(*Dir)
	}
	name := comps[len(comps)-1]
	inode, err := dir.Create(ctx, name, 0o644)
	if err != nil {
		return err
	}
	ops, err := inode.Open(ctx, vfs.OpenFlags{Write: true})
	if err != nil {
		return err
	}
	_, err = ops.Write(ctx, contents, 0)
	return err
}

func splitPath(path string) []string {
	var out []string
	cur := ""
	for _, r := range path {
		if r == '/' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
