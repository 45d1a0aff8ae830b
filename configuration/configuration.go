package configuration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/bartossh/Pecunia/emulator"
	"github.com/bartossh/Pecunia/fileoperations"
	"github.com/bartossh/Pecunia/natsclient"
	"github.com/bartossh/Pecunia/repository"
	"github.com/bartossh/Pecunia/syncserver"
	"github.com/bartossh/Pecunia/walletmiddleware"
)

// Configuration is the main configuration of the application that corresponds to the *.yaml file
// that holds the configuration.
type Configuration struct {
	Server        syncserver.Config       `yaml:"server"`
	Database      repository.DBConfig     `yaml:"database"`
	Nats          natsclient.Config       `yaml:"nats"`
	FileOperator  fileoperations.Config   `yaml:"file_operator"`
	Client        walletmiddleware.Config `yaml:"client"`
	Emulator      emulator.Config         `yaml:"emulator"`
	TelemetryPort int                     `yaml:"telemetry_port"`
}

// Read reads the configuration from the file and returns the Configuration with set fields according to the yaml setup.
func Read(path string) (Configuration, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, err
	}

	var main Configuration
	err = yaml.Unmarshal(buf, &main)
	if err != nil {
		return Configuration{}, fmt.Errorf("in file %q: %w", path, err)
	}

	return main, err
}
