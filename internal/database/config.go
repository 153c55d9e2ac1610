package database

import "github.com/caarlos0/env/v6"

type envConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER,unset" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD,unset"`
	DBName   string `env:"DB_NAME" envDefault:"fluidmeter"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	MaxIdleConns int `env:"DB_MAX_IDLE_CONNS" envDefault:"3"`
	MaxOpenConns int `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
}

func NewConfig() (*envConfig, error) {
	dbConfig := &envConfig{}
	opts := env.Options{}
	if err := env.Parse(dbConfig, opts); err != nil {
		return nil, err
	}
	return dbConfig, nil
}
