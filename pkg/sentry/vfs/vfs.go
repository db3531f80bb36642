// Package vfs implements the virtual-filesystem dispatcher of spec.md §4.7
// (component C8): path routing to a mounted filesystem's operations table,
// the per-process fd table and generic read/write/seek/stat. It plays the
// same role here that gvisor.dev/gvisor/pkg/sentry/vfs plays for the
// teacher: a thin routing layer in front of pluggable filesystem
// implementations, never itself touching storage.
package vfs

import (
	"sort"
	"strings"
	"sync"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
)

// Mount binds a filesystem's root Inode under a path prefix.
type Mount struct {
	Prefix string
	FSName string
	Root   Inode
	Device string
}

// VirtualFilesystem owns the mount table and resolves paths against it.
type VirtualFilesystem struct {
	mu     sync.RWMutex
	mounts []*Mount
}

// New returns an empty VirtualFilesystem.
func New() *VirtualFilesystem {
	return &VirtualFilesystem{}
}

// Mount registers fs rooted at prefix. prefix must be an absolute,
// normalized path; "/" is a legal prefix for the root filesystem.
func (vfs *VirtualFilesystem) Mount(m *Mount) {
	vfs.mu.Lock()
	defer vfs.mu.Unlock()
	vfs.mounts = append(vfs.mounts, m)
	// Longest prefix first so Resolve's linear scan finds the most
	// specific mount without needing a trie.
	sort.Slice(vfs.mounts, func(i, j int) bool {
		return len(vfs.mounts[i].Prefix) > len(vfs.mounts[j].Prefix)
	})
}

// Unmount removes the mount registered at exactly prefix, if any.
func (vfs *VirtualFilesystem) Unmount(prefix string) error {
	vfs.mu.Lock()
	defer vfs.mu.Unlock()
	for i, m := range vfs.mounts {
		if m.Prefix == prefix {
			vfs.mounts = append(vfs.mounts[:i], vfs.mounts[i+1:]...)
			return nil
		}
	}
	return errno.EINVAL
}

// Normalize collapses ".", ".." and repeated "/" in an absolute path.
// ".." past the root stays at "/", per spec.md §9's adopted resolution of
// that ambiguity in the retrieved source.
func Normalize(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	var stack []string
	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, p)
		}
	}
	return "/" + strings.Join(stack, "/")
}

// Resolve finds the mount with the longest prefix matching path and returns
// it alongside the path remainder handed to that filesystem (spec.md §4.7).
func (vfs *VirtualFilesystem) Resolve(path string) (*Mount, string, error) {
	norm := Normalize(path)
	vfs.mu.RLock()
	defer vfs.mu.RUnlock()
	for _, m := range vfs.mounts {
		if m.Prefix == "/" {
			return m, norm, nil
		}
		if norm == m.Prefix || strings.HasPrefix(norm, m.Prefix+"/") {
			rest := strings.TrimPrefix(norm, m.Prefix)
			if rest == "" {
				rest = "/"
			}
			return m, rest, nil
		}
	}
	return nil, "", errno.ENOENT
}

// LookupParent walks path component-by-component from a mount's root,
// returning the final directory inode and the basename, for use by
// Open/Create/Mkdir/Unlink/etc.
func LookupParent(ctx context.Context, root Inode, rest string) (Inode, string, error) {
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return root, "", nil
	}
	comps := strings.Split(rest, "/")
	cur := root
	for _, c := range comps[:len(comps)-1] {
		next, err := cur.Lookup(ctx, c)
		if err != nil {
			return nil, "", err
		}
		cur = next
	}
	return cur, comps[len(comps)-1], nil
}
