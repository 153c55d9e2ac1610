package options

import (
	"errors"
	"os"

	"github.com/akamensky/argparse"
)

type Options struct {
	LogFile     *string
	CertFile    *string
	KeyFile     *string
	Mode        *string
	Port        *int
	EnvFile     *string
	AutoMigrate *bool
	parser      *argparse.Parser
}

func NewOptions() (*Options, error) {
	return parse(os.Args)
}

func parse(args []string) (*Options, error) {
	option := &Options{}

	parser := argparse.NewParser("api-server", "Fluid meter alert api-server")
	option.parser = parser

	option.LogFile = parser.String("l", "log-file", &argparse.Options{
		Help:    "log-file name, empty logs to the console only",
		Default: "/var/log/fluidmeter/app.log",
	})
	option.CertFile = parser.String("", "tls-cert-file", &argparse.Options{
		Help: "CertFile containing the default x509 Certificate for HTTPS. (CA cert)",
	})
	option.KeyFile = parser.String("", "tls-private-key-file", &argparse.Options{
		Help: "Private key file containing the default x509 private key matching --tls-cert-file",
	})
	option.Port = parser.Int("p", "port", &argparse.Options{
		Help:    "The port used by api-server",
		Default: 8000,
	})
	option.Mode = parser.Selector("m", "mode", []string{"release", "development", "debug"}, &argparse.Options{
		Help:    "Choose release/development mode (default debug mode)",
		Default: "debug",
	})
	option.EnvFile = parser.String("e", "env-file", &argparse.Options{
		Help:    "dotenv file loaded before reading the environment",
		Default: ".env",
	})
	option.AutoMigrate = parser.Flag("", "auto-migrate", &argparse.Options{
		Help: "create or update the meter, measurement and run marker tables on start",
	})

	if err := parser.Parse(args); err != nil {
		return option, err
	}

	if err := option.Validate(); err != nil {
		return option, err
	}
	return option, nil
}

func (o *Options) Validate() error {
	hasCert := o.CertFile != nil && *o.CertFile != ""
	hasKey := o.KeyFile != nil && *o.KeyFile != ""
	if hasCert != hasKey {
		return errors.New("certificate/private key both must be present or neither must be present")
	}
	if *o.Port <= 0 || *o.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}

func (o *Options) Usage(err error) string {
	return o.parser.Usage(err)
}
