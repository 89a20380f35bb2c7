package zk

import "strings"

// path prefixes a root-relative path (e.g. "/history" or "/txid/commit")
// with the backend's chroot, the Go analogue of kazoo's client-side
// chroot emulation that go-zookeeper/zk doesn't provide natively.
func (b *Backend) path(p string) string {
	if b.chroot == "" || b.chroot == "/" {
		return p
	}
	return strings.TrimRight(b.chroot, "/") + p
}

// lockPath is the ephemeral lock node for a transaction id, per §4.F step
// 2b ("/<txid>_lock").
func (b *Backend) lockPath(txid string) string {
	return b.path("/" + txid + "_lock")
}

// txPath and stepPath build the live-node paths under the (unchrooted,
// caller-facing) transaction namespace.
func (b *Backend) txPath(txid string) string {
	return b.path("/" + txid)
}

func (b *Backend) stepPath(txid, step string) string {
	return b.path("/" + txid + "/" + step)
}

func (b *Backend) historyPath() string {
	return b.path("/history")
}

func (b *Backend) historyChildPath(name string) string {
	return b.path("/history/" + name)
}

// splitParents returns every proper ancestor of p, root-most first, e.g.
// splitParents("/a/b/c") -> ["/a", "/a/b"].
func splitParents(p string) []string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) <= 1 {
		return nil
	}
	var out []string
	cur := ""
	for _, part := range parts[:len(parts)-1] {
		cur += "/" + part
		out = append(out, cur)
	}
	return out
}
