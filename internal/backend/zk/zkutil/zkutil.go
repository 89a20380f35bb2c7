// Package zkutil holds the small external-collaborator style helpers the
// coordination backend needs: zkurl parsing and ACL construction. These
// mirror journal/zk/utils.py and the zookeeper_scheme plugin, simplified
// to the single no-auth scheme the original code ships by default
// (journal/zk/client/zookeeper.py).
package zkutil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-zookeeper/zk"
)

// ParsedURL is the result of parsing a "zookeeper://host1,host2/chroot"
// (or "zookeeper+sasl://...#mechanism=gssapi") connection string.
type ParsedURL struct {
	Hosts  []string
	Chroot string
	Extra  map[string]string
}

// Parse splits a zookeeper:// URL into connection hosts, an optional
// chroot path, and any "#key=value&..." fragment forwarded as extra
// connection kwargs, matching zk/utils.py's _parse_zkurl/url_connargs.
func Parse(raw string) (ParsedURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ParsedURL{}, fmt.Errorf("parsing zk url %q: %w", raw, err)
	}
	if !strings.Contains(u.Scheme, "zookeeper") {
		return ParsedURL{}, fmt.Errorf("not a zookeeper url: %q", raw)
	}
	out := ParsedURL{Extra: map[string]string{}}
	host := u.Host
	if u.User != nil {
		// Strip user/pass data from the netloc like url_connargs does.
		if idx := strings.Index(host, "@"); idx >= 0 {
			host = host[idx+1:]
		}
	}
	if host != "" {
		out.Hosts = strings.Split(host, ",")
	}
	out.Chroot = u.Path
	if u.Fragment != "" {
		for _, kv := range strings.Split(u.Fragment, "&") {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) == 2 {
				out.Extra[parts[0]] = parts[1]
			}
		}
	}
	return out, nil
}

// Perm bit names, matching kazoo.security.make_acl's rwcda vocabulary.
const permChars = "rwcda"

func permsFromString(perm string) int32 {
	if perm == "" {
		perm = "r"
	}
	var bits int32
	for _, c := range permChars {
		if strings.ContainsRune(perm, c) {
			switch c {
			case 'r':
				bits |= zk.PermRead
			case 'w':
				bits |= zk.PermWrite
			case 'c':
				bits |= zk.PermCreate
			case 'd':
				bits |= zk.PermDelete
			case 'a':
				bits |= zk.PermAdmin
			}
		}
	}
	return bits
}

// ACLAnonymous builds the "world:anyone" ACL entry with the given
// permission string, the Go analogue of make_anonymous_acl.
func ACLAnonymous(perm string) zk.ACL {
	return zk.ACL{Perms: permsFromString(perm), Scheme: "world", ID: "anyone"}
}

// ACLDigestUser builds an ACL entry scoped to a named admin user under
// the "digest" auth scheme, the analogue of ZkClient.make_user_acl. The
// caller is expected to have already added matching digest credentials
// to the connection via AddAuth; constructing the ACL entry itself
// doesn't require it.
func ACLDigestUser(user, perm string) zk.ACL {
	return zk.ACL{Perms: permsFromString(perm), Scheme: "digest", ID: user}
}

// ACLs builds the standard three-entry ACL list from §4.E: self, world,
// and (if adminUser is set) an admin entry.
//
//	self:  rwc if an admin user is configured, else rwcda (self is the caretaker)
//	world: r
//	admin: rwcda, only present when adminUser != ""
//
// The connection carries no auth credentials, so the self entry is built
// as a world:anyone entry holding the self permissions; any client thus
// gets those permissions, not only r.
func ACLs(adminUser string) []zk.ACL {
	selfPerm := "rwcda"
	if adminUser != "" {
		selfPerm = "rwc"
	}
	acls := []zk.ACL{
		ACLAnonymous(selfPerm),
		ACLAnonymous("r"),
	}
	if adminUser != "" {
		acls = append(acls, ACLDigestUser(adminUser, "rwcda"))
	}
	return acls
}
