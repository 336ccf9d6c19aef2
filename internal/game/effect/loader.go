package effect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/hexdraft/internal/game/dice"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
)

// yamlEffectFile is the top-level YAML structure for effect tables.
type yamlEffectFile struct {
	Effects []yamlEffect `yaml:"effects"`
}

// yamlEffect is the YAML representation of an effect.
type yamlEffect struct {
	ID           string  `yaml:"id"`
	Kind         string  `yaml:"kind"`
	Item         string  `yaml:"item"`
	Amount       int     `yaml:"amount"`
	Roll         string  `yaml:"roll"`
	Hook         string  `yaml:"hook"`
	Description  string  `yaml:"description"`
	TriggerText  string  `yaml:"trigger_text"`
	TriggerLimit *int    `yaml:"trigger_limit"`
	Rarity       float64 `yaml:"rarity"`
	GrantsItem   string  `yaml:"grants_item"`
}

// LoadRegistryFromFile reads and validates an effect table YAML file.
//
// Precondition: path must point to a valid YAML effect file.
// Postcondition: Returns a validated Registry or a non-nil error.
func LoadRegistryFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading effect file %s: %w", path, err)
	}
	return LoadRegistryFromBytes(data)
}

// LoadRegistryFromBytes parses and validates an effect table from YAML bytes. Entry order
// in the file is the registration order.
//
// Precondition: data must be valid YAML conforming to the effect schema.
// Postcondition: Returns a validated Registry or a non-nil error.
func LoadRegistryFromBytes(data []byte) (*Registry, error) {
	var file yamlEffectFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing effect YAML: %w", err)
	}
	if len(file.Effects) == 0 {
		return nil, fmt.Errorf("effect file defines no effects")
	}

	effects := make([]Effect, 0, len(file.Effects))
	for _, ye := range file.Effects {
		e, err := convertYAMLEffect(ye)
		if err != nil {
			return nil, err
		}
		effects = append(effects, e)
	}

	reg, err := NewRegistry(effects)
	if err != nil {
		return nil, fmt.Errorf("validating effects: %w", err)
	}
	return reg, nil
}

// convertYAMLEffect converts a parsed entry into the domain type. A missing
// trigger_limit means unlimited.
func convertYAMLEffect(ye yamlEffect) (Effect, error) {
	limit := Unlimited
	if ye.TriggerLimit != nil {
		limit = *ye.TriggerLimit
	}
	var roll *dice.Expression
	if ye.Roll != "" {
		expr, err := dice.Parse(ye.Roll)
		if err != nil {
			return Effect{}, fmt.Errorf("effect %q: %w", ye.ID, err)
		}
		roll = &expr
	}
	return Effect{
		ID:           ID(ye.ID),
		Kind:         Kind(ye.Kind),
		Item:         resource.ItemID(ye.Item),
		Amount:       ye.Amount,
		Roll:         roll,
		Hook:         ye.Hook,
		Description:  ye.Description,
		TriggerText:  ye.TriggerText,
		TriggerLimit: limit,
		Rarity:       ye.Rarity,
		GrantsItem:   resource.ItemID(ye.GrantsItem),
	}, nil
}
