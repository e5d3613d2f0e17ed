package adapters

import (
	"bufio"
	"os"
	"strings"

	"kas-container/internal/ports"
)

const defaultOSReleasePath = "/etc/os-release"

// HostAdapter reads the process environment and /etc/os-release.
type HostAdapter struct {
	OSReleasePath string
}

func NewHostAdapter() HostAdapter {
	return HostAdapter{OSReleasePath: defaultOSReleasePath}
}

// DistroID returns the ID field of os-release, or "" when unknown.
func (h HostAdapter) DistroID() string {
	path := h.OSReleasePath
	if path == "" {
		path = defaultOSReleasePath
	}
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || key != "ID" {
			continue
		}
		return strings.Trim(value, `"'`)
	}
	return ""
}

func (h HostAdapter) Getenv(key string) string {
	return os.Getenv(key)
}

func (h HostAdapter) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

var _ ports.HostPort = HostAdapter{}
