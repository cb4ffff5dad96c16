package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	Bank    BankConfig    `mapstructure:"bank"`
	Agent   AgentConfig   `mapstructure:"agent"`
}

type GatewayConfig struct {
	Port               int           `mapstructure:"port"`
	TransactionTimeout time.Duration `mapstructure:"transaction_timeout"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
}

type BankConfig struct {
	Name           string        `mapstructure:"name"`
	IP             string        `mapstructure:"ip"`
	Port           int           `mapstructure:"port"`
	GatewayAddr    string        `mapstructure:"gateway_addr"`
	SeedFile       string        `mapstructure:"seed_file"`
	PrepareTimeout time.Duration `mapstructure:"prepare_timeout"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	LinkInterval   time.Duration `mapstructure:"link_interval"`
}

type AgentConfig struct {
	ClientID        string        `mapstructure:"client_id"`
	BankName        string        `mapstructure:"bank_name"`
	Password        string        `mapstructure:"password"`
	IP              string        `mapstructure:"ip"`
	Port            int           `mapstructure:"port"`
	ControlPort     int           `mapstructure:"control_port"`
	GatewayAddr     string        `mapstructure:"gateway_addr"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	ReplaySpacing   time.Duration `mapstructure:"replay_spacing"`
}

// Load reads configuration from an optional file with environment
// variables layered on top. Protocol timings default to the values the
// network was designed around.
func Load(path string) (*Config, error) {
	viper.SetDefault("gateway.port", 50051)
	viper.SetDefault("gateway.transaction_timeout", "30s")
	viper.SetDefault("gateway.cleanup_interval", "10s")
	viper.SetDefault("gateway.idempotency_ttl", "60s")

	viper.SetDefault("bank.ip", "localhost")
	viper.SetDefault("bank.gateway_addr", "localhost:50051")
	viper.SetDefault("bank.seed_file", "./accounts.json")
	viper.SetDefault("bank.prepare_timeout", "30s")
	viper.SetDefault("bank.sweep_interval", "10s")
	viper.SetDefault("bank.link_interval", "5s")

	viper.SetDefault("agent.ip", "localhost")
	viper.SetDefault("agent.control_port", 7070)
	viper.SetDefault("agent.gateway_addr", "localhost:50051")
	viper.SetDefault("agent.monitor_interval", "5s")
	viper.SetDefault("agent.replay_spacing", "1s")

	viper.AutomaticEnv()
	viper.BindEnv("gateway.port", "GATEWAY_PORT")
	viper.BindEnv("bank.name", "BANK_NAME")
	viper.BindEnv("bank.port", "BANK_PORT")
	viper.BindEnv("bank.gateway_addr", "GATEWAY_ADDR")
	viper.BindEnv("bank.seed_file", "SEED_FILE")
	viper.BindEnv("agent.client_id", "CLIENT_ID")
	viper.BindEnv("agent.bank_name", "CLIENT_BANK")
	viper.BindEnv("agent.password", "CLIENT_PASSWORD")
	viper.BindEnv("agent.port", "AGENT_PORT")
	viper.BindEnv("agent.control_port", "AGENT_CONTROL_PORT")
	viper.BindEnv("agent.gateway_addr", "GATEWAY_ADDR")

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			log.Printf("config file not found, using defaults: %v", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
