package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"gridswap"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	Node struct {
		// Org is the organization this node signs as.
		Org string `envconfig:"NODE_ORG" default:"ElectraGrid"`
		// Regulator is the organization acting as fixed intermediary on
		// every trade.
		Regulator string `envconfig:"REGULATOR_ORG" default:"Sman"`
		// Peers are the other trading organizations simulated in this
		// process. The regulator is always attached and need not appear.
		Peers []string `envconfig:"PEER_ORGS" default:"GreenVolt"`
		// ProtocolTimeout bounds one full run of the signing protocol.
		ProtocolTimeout time.Duration `envconfig:"PROTOCOL_TIMEOUT" default:"30s"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"gridswap"`
	}

	JWT struct {
		Secret string        `envconfig:"JWT_SECRET" default:"change-me"`
		TTL    time.Duration `envconfig:"JWT_TTL" default:"12h"`
	}

	API struct {
		// Password guards the login endpoint of this node's operator API.
		Password string `envconfig:"API_PASSWORD" default:"admin"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
