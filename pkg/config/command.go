package config

import (
	"fmt"

	"github.com/aretw0/gmp/pkg/domain"
)

// commandFile is the document form of a Command:
//
//	sequence_command: APPLY
//	activity: START
//	configuration:
//	  "X:S1:A.val1": xa1
type commandFile struct {
	SequenceCommand string            `mapstructure:"sequence_command"`
	Activity        string            `mapstructure:"activity"`
	Configuration   map[string]string `mapstructure:"configuration"`
}

// LoadCommand reads a command file.
func LoadCommand(path string) (domain.Command, error) {
	raw, err := readFile(path)
	if err != nil {
		return domain.Command{}, fmt.Errorf("failed to read command: %w", err)
	}
	return DecodeCommand(raw)
}

// DecodeCommand builds a Command from its generic document form. Scalar
// configuration values are converted to text.
func DecodeCommand(raw map[string]any) (domain.Command, error) {
	var f commandFile
	if err := decode(raw, &f); err != nil {
		return domain.Command{}, fmt.Errorf("invalid command: %w", err)
	}

	sc, err := domain.ParseSequenceCommand(f.SequenceCommand)
	if err != nil {
		return domain.Command{}, err
	}
	activity := domain.ActivityPresetStart
	if f.Activity != "" {
		if activity, err = domain.ParseActivity(f.Activity); err != nil {
			return domain.Command{}, err
		}
	}
	config, err := domain.NewConfiguration(f.Configuration)
	if err != nil {
		return domain.Command{}, err
	}
	return domain.NewCommand(sc, activity, config), nil
}
