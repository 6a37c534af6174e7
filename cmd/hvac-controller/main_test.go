package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/hvac-controller/internal/logger"
	"github.com/sweeney/hvac-controller/internal/logic"
	"github.com/sweeney/hvac-controller/internal/store"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		assert.Equal(t, canonical, got)
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, "wifi", info.Type)
	assert.Equal(t, "192.168.1.100", info.IP)
	assert.Equal(t, "connected", info.Status)
	assert.Equal(t, "192.168.1.1", info.Gateway)
	assert.Equal(t, "connected", info.WifiStatus)
	assert.Equal(t, "MyNetwork", info.SSID)
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	assert.Nil(t, readNetworkInfo())
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, "connected", info.Status)
	assert.Empty(t, info.IP)
}

func TestResolveWSBroker(t *testing.T) {
	tests := []struct {
		ws, broker, want string
	}{
		{"=broker", "tcp://192.168.1.200:1883", "ws://192.168.1.200:9001"},
		{"=broker", "tcp://mqtt.local", "ws://mqtt.local:9001"},
		{"off", "tcp://192.168.1.200:1883", ""},
		{"", "tcp://192.168.1.200:1883", ""},
		{"wss://example.net/mqtt", "tcp://192.168.1.200:1883", "wss://example.net/mqtt"},
	}
	for _, tt := range tests {
		t.Run(tt.ws+" "+tt.broker, func(t *testing.T) {
			got, err := resolveWSBroker(tt.ws, tt.broker)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveWSBrokerBadURL(t *testing.T) {
	_, err := resolveWSBroker("=broker", "tcp://[::1")
	assert.Error(t, err)
}

func TestLoadControllerConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file uses defaults", func(t *testing.T) {
		s := store.New(filepath.Join(dir, "missing.yml"))
		assert.Equal(t, logic.DefaultConfig(), loadControllerConfig(s, logger.Nop()))
	})

	t.Run("saved config is used", func(t *testing.T) {
		s := store.New(filepath.Join(dir, "saved.yml"))
		cfg := logic.DefaultConfig()
		cfg.Mode = logic.ModeHeat
		cfg.FilterMinutes = 42
		require.NoError(t, s.Save(cfg))
		assert.Equal(t, cfg, loadControllerConfig(s, logger.Nop()))
	})

	t.Run("other version uses defaults", func(t *testing.T) {
		path := filepath.Join(dir, "old.yml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\nmode: cool\n"), 0o644))
		assert.Equal(t, logic.DefaultConfig(), loadControllerConfig(store.New(path), logger.Nop()))
	})

	t.Run("garbage uses defaults", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("version: [3\n"), 0o644))
		assert.Equal(t, logic.DefaultConfig(), loadControllerConfig(store.New(path), logger.Nop()))
	})
}

func TestFactoryReset(t *testing.T) {
	s := store.New(filepath.Join(t.TempDir(), "config.yml"))
	cfg := logic.DefaultConfig()
	cfg.Mode = logic.ModeCool
	cfg.CycleMax = 1200
	require.NoError(t, s.Save(cfg))

	require.NoError(t, factoryReset(s, logger.Nop()))
	assert.Equal(t, logic.DefaultConfig(), loadControllerConfig(s, logger.Nop()))

	// Nothing stored is not an error.
	assert.NoError(t, factoryReset(s, logger.Nop()))
}
