package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config contains the configuration for every component a running
// core wires together: listen ports per client version, proxy
// destinations, the account/character store, the shipgate status
// service, and the gameplay policy knobs spec §6 calls out (drop
// mode, EXP multiplier, rare rate, quest categories, minimum-level
// table, feature toggles).
type Config struct {
	// Hostname or IP address on which the servers will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// IP broadcast to clients in redirect packets.
	ExternalIP string `mapstructure:"external_ip"`
	// Maximum number of concurrent connections the server will allow.
	MaxConnections int `mapstructure:"max_connections"`
	// Full path to file to which logs will be written. Blank writes to stderr.
	LogFilePath string `mapstructure:"log_file_path"`
	// Minimum level of a log required to be written: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// DirectServers lists one listener per client version this core
	// serves directly (as opposed to only proxying), per spec §4.9.
	DirectServers []DirectServerConfig `mapstructure:"direct_servers"`

	// ProxyServers lists one listener per client version this core
	// front-ends with the Unlinked/Linked proxy, per spec §4.10.
	ProxyServers []ProxyServerConfig `mapstructure:"proxy_servers"`

	Database struct {
		// Engine selects the gorm driver: "postgres" or "sqlite".
		Engine string `mapstructure:"engine"`
		// Filename is the sqlite database file (engine == "sqlite" only).
		Filename string `mapstructure:"filename"`
		// Host/Port/Name/Username/Password/SSLMode configure a postgres connection.
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Name     string `mapstructure:"name"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	ShipgateServer struct {
		// Port the shipgate status service listens on.
		Port int `mapstructure:"port"`
		// Optional TLS certificate/key; blank serves plain HTTP.
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
	} `mapstructure:"shipgate_server"`

	Gameplay struct {
		// DropMode selects the server-authoritative drop policy:
		// disabled, client, shared_server, duplicate_server, private_server.
		DropMode string `mapstructure:"drop_mode"`
		// ExpMultiplier scales every EXP award before it's applied.
		ExpMultiplier float64 `mapstructure:"exp_multiplier"`
		// RareRate scales the base rare-drop probability.
		RareRate float64 `mapstructure:"rare_rate"`
		// QuestCategories lists the quest menu categories this core serves.
		QuestCategories []string `mapstructure:"quest_categories"`
		// MinLevelForDifficulty maps a difficulty name to its minimum
		// character level, per spec §4.6's join-eligibility check.
		MinLevelForDifficulty map[string]uint32 `mapstructure:"min_level_for_difficulty"`
	} `mapstructure:"gameplay"`

	Debugging struct {
		PprofEnabled         bool `mapstructure:"pprof_enabled"`
		PprofPort            int  `mapstructure:"pprof_port"`
		PacketLoggingEnabled bool `mapstructure:"packet_logging_enabled"`
		// PacketCaptureEnabled turns on the proxy's gopacket-backed pcap sink.
		PacketCaptureEnabled bool   `mapstructure:"packet_capture_enabled"`
		PacketCaptureFile    string `mapstructure:"packet_capture_file"`
	} `mapstructure:"debugging"`

	cachedIPBytes [4]byte
}

// DirectServerConfig is one version-bound direct-connect listener.
type DirectServerConfig struct {
	Version string `mapstructure:"version"`
	Port    int    `mapstructure:"port"`
}

// ProxyServerConfig is one version-bound proxy listener, with an
// optional fixed destination for versions that skip the Unlinked
// phase (patch clients, per spec §4.10).
type ProxyServerConfig struct {
	Version     string `mapstructure:"version"`
	Port        int    `mapstructure:"port"`
	DefaultHost string `mapstructure:"default_host"`
	DefaultPort uint16 `mapstructure:"default_port"`
}

const envVarPrefix = "ARCHON"

// LoadConfig initializes Viper with the contents of the config file
// under configPath, following the teacher's LoadConfig: any error
// reading or unmarshaling the config is fatal, since nothing useful
// can run without it.
func LoadConfig(configPath string) *Config {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if errors.Is(err, viper.ConfigFileNotFoundError{}) {
			fmt.Printf("error reading config file: no config file in path %s", configPath)
		} else {
			fmt.Printf("error reading config file: %v", err)
		}
		os.Exit(1)
	}

	// Allows nested yaml config options to be set through environment
	// variables, e.g. database.host via ARCHON_DATABASE_HOST.
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			fmt.Printf("error binding %s to %s", k, envVarPrefix+"_"+envVar)
			os.Exit(1)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("error unmarshaling config object: %v", err)
		os.Exit(1)
	}
	return config
}

const postgresDSNTemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns the postgres DSN built from the configured
// database fields; only meaningful when Database.Engine == "postgres".
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		postgresDSNTemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}

// ShipgateAddress returns the fully qualified address of the shipgate
// status service, scheme depending on whether TLS is configured.
func (c *Config) ShipgateAddress() string {
	scheme := "http"
	if c.ShipgateServer.CertFile != "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Hostname, c.ShipgateServer.Port)
}

// BroadcastIP converts the configured external IP string into 4 bytes
// for use in redirect packets common to the direct server and proxy.
func (c *Config) BroadcastIP() [4]byte {
	// Hacky, but an external IP isn't going to start with 0 and a
	// fixed-length array can't be null.
	if c.cachedIPBytes[0] == 0x00 {
		parts := strings.Split(c.ExternalIP, ".")
		for i := 0; i < 4 && i < len(parts); i++ {
			tmp, _ := strconv.ParseUint(parts[i], 10, 8)
			c.cachedIPBytes[i] = uint8(tmp)
		}
	}
	return c.cachedIPBytes
}
