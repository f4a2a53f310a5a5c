package target

import (
	"fmt"
	"strconv"
	"strings"
)

// Target is the host whose block device is imaged.
// Accepted forms: "host", "user@host", "host:port", "user@[::1]:2222".
type Target struct {
	// Raw is the original input string.
	Raw string
	// User is the ssh login, empty for the ssh default.
	User string
	// Host is the bare hostname; it also names the per-host output directory.
	Host string
	// Port is the ssh port, 0 for the ssh default.
	Port int
	// Local is true when Host is the machine running the backup and no ssh
	// specific parts (user, port) were given.
	Local bool
}

// Parse parses raw relative to the local hostname.
func Parse(raw, localHost string) (Target, error) {
	t := Target{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		return t, fmt.Errorf("target must not be empty")
	}
	if i := strings.Index(s, "@"); i >= 0 {
		t.User = s[:i]
		s = s[i+1:]
		if t.User == "" {
			return t, fmt.Errorf("invalid target %q: empty user before '@'", raw)
		}
	}

	host, port, err := splitHostPort(s)
	if err != nil {
		return t, fmt.Errorf("invalid target %q: %w", raw, err)
	}
	if host == "" {
		return t, fmt.Errorf("invalid target %q: empty host", raw)
	}
	if strings.ContainsAny(host, "/ \t") {
		return t, fmt.Errorf("invalid target %q: host contains illegal characters", raw)
	}
	t.Host = host
	t.Port = port
	t.Local = t.User == "" && t.Port == 0 && IsLocalHost(host, localHost)
	return t, nil
}

// Local returns the target describing the machine itself.
func Local(localHost string) Target {
	return Target{Raw: localHost, Host: localHost, Local: true}
}

// IsLocalHost reports whether host names the local machine.
func IsLocalHost(host, localHost string) bool {
	h := strings.ToLower(host)
	if h == "localhost" || h == "127.0.0.1" || h == "::1" {
		return true
	}
	l := strings.ToLower(localHost)
	if l == "" {
		return false
	}
	if h == l {
		return true
	}
	// A bare name matches the first label of the local name ("pi1" is
	// "pi1.lan"). A dotted name must match the local name exactly, so
	// "pi1.otherdomain" stays remote on a host called "pi1".
	if strings.Contains(h, ".") {
		return false
	}
	short, _, _ := strings.Cut(l, ".")
	return h == short
}

func splitHostPort(s string) (string, int, error) {
	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return "", 0, fmt.Errorf("missing ']'")
		}
		host := s[1:end]
		rest := s[end+1:]
		if rest == "" {
			return host, 0, nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", 0, fmt.Errorf("unexpected %q after ']'", rest)
		}
		p, err := parsePort(rest[1:])
		return host, p, err
	}
	if strings.Count(s, ":") == 1 {
		i := strings.Index(s, ":")
		p, err := parsePort(s[i+1:])
		return s[:i], p, err
	}
	return s, 0, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return p, nil
}

// String returns a canonical string form of the target.
func (t Target) String() string {
	var b strings.Builder
	if t.User != "" {
		b.WriteString(t.User)
		b.WriteString("@")
	}
	if strings.Contains(t.Host, ":") {
		b.WriteString("[" + t.Host + "]")
	} else {
		b.WriteString(t.Host)
	}
	if t.Port > 0 {
		b.WriteString(":" + strconv.Itoa(t.Port))
	}
	return b.String()
}
