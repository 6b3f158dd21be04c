package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConfig_DatabaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Engine = "postgres"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Name = "testdb"
	cfg.Database.Username = "testuser"
	cfg.Database.Password = "testpassword"

	url := cfg.DatabaseURL()
	expected := "host=localhost port=5432 dbname=testdb user=testuser password=testpassword sslmode="
	if url != expected {
		t.Errorf("DatabaseURL() want = %s, got = %s", expected, url)
	}
}

func TestConfig_ShipgateAddress(t *testing.T) {
	cfg := &Config{Hostname: "127.0.0.1"}
	cfg.ShipgateServer.Port = 12345

	addr := cfg.ShipgateAddress()
	expected := "http://127.0.0.1:12345"
	if addr != expected {
		t.Errorf("ShipgateAddress() want = %s, got = %s", expected, addr)
	}
}

func TestConfig_ShipgateAddress_TLS(t *testing.T) {
	cfg := &Config{Hostname: "127.0.0.1"}
	cfg.ShipgateServer.Port = 12345
	cfg.ShipgateServer.CertFile = "/etc/archon/shipgate.crt"

	addr := cfg.ShipgateAddress()
	expected := "https://127.0.0.1:12345"
	if addr != expected {
		t.Errorf("ShipgateAddress() want = %s, got = %s", expected, addr)
	}
}

func TestConfig_BroadcastIP(t *testing.T) {
	cfg := &Config{ExternalIP: "192.168.1.5"}

	ip := cfg.BroadcastIP()
	expected := [4]byte{192, 168, 1, 5}
	if diff := cmp.Diff(expected, ip); diff != "" {
		t.Errorf("BroadcastIP() generated the wrong IP; diff:\n%s", diff)
	}
}
