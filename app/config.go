package app

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/grafana/dskit/flagext"
	"github.com/grafana/dskit/server"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/zachfi/zkit/pkg/tracing"

	"github.com/zachfi/radiogo/modules/radio"
	"github.com/zachfi/radiogo/modules/recorder"
)

type Config struct {
	Target   string          `yaml:"target"`
	Tracing  tracing.Config  `yaml:"tracing,omitempty"`
	Server   server.Config   `yaml:"server,omitempty"`
	Radio    radio.Config    `yaml:"radio,omitempty"`
	Recorder recorder.Config `yaml:"recorder,omitempty"`
}

// LoadConfig overlays the YAML file at file onto cfg. Unknown fields are
// rejected.
func LoadConfig(file string, cfg *Config) error {
	filename, _ := filepath.Abs(file)

	err := loadYamlFile(filename, cfg)
	if err != nil {
		return errors.Wrapf(err, "failed to load yaml file %s", file)
	}

	return nil
}

// loadYamlFile unmarshals a YAML file into the received interface{} or returns an error.
func loadYamlFile(filename string, d interface{}) error {
	yamlFile, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.UnmarshalStrict(yamlFile, d)
}

func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	flagext.DefaultValues(&c.Server)
	f.IntVar(&c.Server.HTTPListenPort, "server.http-listen-port", 3000, "HTTP server listen port.")
	f.IntVar(&c.Server.GRPCListenPort, "server.grpc-listen-port", 9090, "gRPC server listen port.")

	c.Tracing.RegisterFlagsAndApplyDefaults("tracing", f)
	c.Radio.RegisterFlagsAndApplyDefaults("radio", f)
	c.Recorder.RegisterFlagsAndApplyDefaults("recorder", f)
}
