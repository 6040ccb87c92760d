package kafkacfg

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// ErrEmptyConnect is returned when a connect string has no hosts.
var ErrEmptyConnect = errors.New("empty ZooKeeper connect string")

// ZKConnect is a parsed legacy coordination-service connect string of the
// form host:port[,host:port...][/chroot].
type ZKConnect struct {
	Hosts  []string
	Chroot string
}

// ParseZKConnect parses and validates a connect string. Every host entry
// must be a host:port pair with a numeric port.
func ParseZKConnect(s string) (ZKConnect, error) {
	var z ZKConnect

	if s == "" {
		return z, ErrEmptyConnect
	}

	// The chroot applies to the ensemble as a whole and follows the final
	// host entry.
	hostsPart := s
	if i := strings.Index(s, "/"); i >= 0 {
		hostsPart = s[:i]
		z.Chroot = s[i:]
	}

	for _, h := range strings.Split(hostsPart, ",") {
		h = strings.TrimSpace(h)

		host, port, err := net.SplitHostPort(h)
		if err != nil {
			return z, fmt.Errorf("invalid ensemble host %q: %s", h, err)
		}

		if _, err := strconv.Atoi(port); err != nil {
			return z, fmt.Errorf("invalid ensemble port in %q", h)
		}

		z.Hosts = append(z.Hosts, fmt.Sprintf("%s:%s", host, port))
	}

	return z, nil
}

// String renders the connect string in its original form.
func (z ZKConnect) String() string {
	return strings.Join(z.Hosts, ",") + z.Chroot
}

// Equal reports whether two connect strings reference the same ensemble:
// the same host set (order insensitive) and the same chroot. Every broker
// in a cluster must agree on this value.
func (z ZKConnect) Equal(o ZKConnect) bool {
	if z.Chroot != o.Chroot || len(z.Hosts) != len(o.Hosts) {
		return false
	}

	a := append([]string{}, z.Hosts...)
	b := append([]string{}, o.Hosts...)
	sort.Strings(a)
	sort.Strings(b)

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
