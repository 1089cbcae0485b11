// Package device provides the stable identity this device presents to the
// sync endpoint.
package device

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"
)

// Identity describes this device in sync batches.
type Identity struct {
	DeviceID string `json:"device_id"`
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Platform string `json:"platform"`
	Kernel   string `json:"kernel"`
	Arch     string `json:"arch"`
}

// Load returns the device identity, generating and persisting a device id
// under dataDir on first use.
func Load(dataDir string) (Identity, error) {
	id, err := deviceID(dataDir)
	if err != nil {
		return Identity{}, err
	}

	ident := Identity{DeviceID: id, OS: runtime.GOOS, Arch: runtime.GOARCH}

	// Host facts are best-effort decoration; the id alone is enough for the
	// server to correlate uploads.
	if info, err := host.Info(); err == nil {
		ident.Hostname = info.Hostname
		ident.Platform = info.Platform
		ident.Kernel = info.KernelVersion
	}

	return ident, nil
}

func deviceID(dataDir string) (string, error) {
	path := filepath.Join(dataDir, "device_id")
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	id := uuid.New().String()
	if err := os.WriteFile(path, []byte(id+"\n"), 0644); err != nil {
		return "", err
	}
	return id, nil
}
