package platform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rescp17/nearbyExchanger/pkg/exchange"
)

func TestDownloadsProvider(t *testing.T) {
	home := t.TempDir()
	dir, ok := DownloadsProvider{Home: home}.DefaultSaveDirectory()
	assert.True(t, ok)
	assert.Equal(t, SaveDir{Name: "Downloads", Path: filepath.Join(home, "Downloads")}, dir)
}

func TestHostPolicy_PermissionsFor(t *testing.T) {
	testCases := []struct {
		name     string
		platform Platform
		role     exchange.Role
		want     []Permission
	}{
		{
			name:     "linux advertiser",
			platform: Platform{GOOS: "linux"},
			role:     exchange.Advertiser,
			want:     []Permission{PermissionMulticastDNS, PermissionListen, PermissionWriteFiles},
		},
		{
			name:     "linux discoverer",
			platform: Platform{GOOS: "linux"},
			role:     exchange.Discoverer,
			want: []Permission{PermissionMulticastDNS, PermissionListen, PermissionBrowse,
				PermissionReadFiles, PermissionWriteFiles},
		},
		{
			name:     "old macOS skips local network",
			platform: Platform{GOOS: "darwin", Version: 10},
			role:     exchange.Advertiser,
			want: []Permission{PermissionMulticastDNS, PermissionListen, PermissionWriteFiles,
				PermissionNotifications},
		},
		{
			name:     "current macOS",
			platform: Platform{GOOS: "darwin", Version: 14},
			role:     exchange.Advertiser,
			want: []Permission{PermissionMulticastDNS, PermissionLocalNetwork, PermissionListen,
				PermissionWriteFiles, PermissionNotifications},
		},
		{
			name:     "windows discoverer",
			platform: Platform{GOOS: "windows"},
			role:     exchange.Discoverer,
			want: []Permission{PermissionMulticastDNS, PermissionFirewall, PermissionListen,
				PermissionBrowse, PermissionReadFiles, PermissionWriteFiles, PermissionNotifications},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			policy := NewHostPolicy(tc.platform)
			assert.Equal(t, tc.want, policy.PermissionsFor(tc.role))
			// pure: asking twice gives the same answer
			assert.Equal(t, policy.PermissionsFor(tc.role), policy.PermissionsFor(tc.role))
		})
	}
}

func TestHostPolicy_PermissionsForServiceStart(t *testing.T) {
	assert.Equal(t, []Permission{PermissionBackground}, NewHostPolicy(Platform{GOOS: "linux"}).PermissionsForServiceStart())
	assert.Equal(t, []Permission{PermissionBackground, PermissionNotifications},
		NewHostPolicy(Platform{GOOS: "darwin"}).PermissionsForServiceStart())
}
