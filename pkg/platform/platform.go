// Package platform describes the host the exchanger runs on: where received
// files go by default and which permissions a role needs.
package platform

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/rescp17/nearbyExchanger/pkg/exchange"
)

// SaveDir is a directory received files may be written to.
type SaveDir struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DirectoryProvider supplies the save directory used when none is persisted.
type DirectoryProvider interface {
	DefaultSaveDirectory() (SaveDir, bool)
}

// DownloadsProvider resolves the user's Downloads directory.
type DownloadsProvider struct {
	// Home overrides the home directory lookup when set.
	Home string
}

func (p DownloadsProvider) DefaultSaveDirectory() (SaveDir, bool) {
	home := p.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil || home == "" {
			return SaveDir{}, false
		}
	}
	return SaveDir{Name: "Downloads", Path: filepath.Join(home, "Downloads")}, true
}

// Platform identifies the host operating system. Version is the major
// release number, 0 when unknown.
type Platform struct {
	GOOS    string
	Version int
}

func Current() Platform {
	return Platform{GOOS: runtime.GOOS}
}

// Permission is a capability the user grants before a session may start.
type Permission string

const (
	PermissionLocalNetwork  Permission = "local-network"
	PermissionMulticastDNS  Permission = "multicast-dns"
	PermissionListen        Permission = "listen"
	PermissionFirewall      Permission = "firewall"
	PermissionBrowse        Permission = "browse"
	PermissionReadFiles     Permission = "read-files"
	PermissionWriteFiles    Permission = "write-files"
	PermissionNotifications Permission = "notifications"
	PermissionBackground    Permission = "background"
)

// macOSLocalNetworkVersion is the first macOS release that prompts for local
// network access.
const macOSLocalNetworkVersion = 11

// PermissionPolicy maps a role to the permissions it needs.
type PermissionPolicy interface {
	PermissionsFor(role exchange.Role) []Permission
	PermissionsForServiceStart() []Permission
}

// HostPolicy is a PermissionPolicy computed from the Platform it was built with.
type HostPolicy struct {
	platform Platform
}

func NewHostPolicy(p Platform) HostPolicy {
	return HostPolicy{platform: p}
}

func (h HostPolicy) PermissionsFor(role exchange.Role) []Permission {
	var perms permissionSet
	perms.add(PermissionMulticastDNS)

	switch h.platform.GOOS {
	case "darwin":
		if h.platform.Version == 0 || h.platform.Version >= macOSLocalNetworkVersion {
			perms.add(PermissionLocalNetwork)
		}
	case "windows":
		perms.add(PermissionFirewall)
	}

	perms.add(PermissionListen)
	if role == exchange.Discoverer {
		perms.add(PermissionBrowse)
		perms.add(PermissionReadFiles)
	}
	perms.add(PermissionWriteFiles)

	if h.platform.GOOS != "linux" {
		perms.add(PermissionNotifications)
	}
	return perms.list
}

func (h HostPolicy) PermissionsForServiceStart() []Permission {
	var perms permissionSet
	perms.add(PermissionBackground)
	if h.platform.GOOS != "linux" {
		perms.add(PermissionNotifications)
	}
	return perms.list
}

// permissionSet keeps insertion order and drops duplicates.
type permissionSet struct {
	list []Permission
}

func (s *permissionSet) add(p Permission) {
	for _, existing := range s.list {
		if existing == p {
			return
		}
	}
	s.list = append(s.list, p)
}
