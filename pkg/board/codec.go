package board

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// interfaceDoc is the mapping form of an interface descriptor as it appears
// in catalog files.
type interfaceDoc struct {
	Channel  string `yaml:"channel,omitempty" json:"channel,omitempty"`
	Port     *int   `yaml:"port,omitempty" json:"port,omitempty"`
	Required *bool  `yaml:"required,omitempty" json:"required,omitempty"`
	GPIO     *GPIO  `yaml:"gpio,omitempty" json:"gpio,omitempty"`
}

// UnmarshalYAML accepts either a bare scalar (channel tag) or a mapping with
// one of channel, port/required or gpio.
func (i *Interface) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*i = Interface{Kind: KindTag, Channel: value.Value}
		return nil
	case yaml.MappingNode:
		var doc interfaceDoc
		if err := value.Decode(&doc); err != nil {
			return err
		}
		return i.fromDoc(doc, value.Line)
	default:
		return fmt.Errorf("board: line %d: interface descriptor must be a scalar or mapping", value.Line)
	}
}

func (i *Interface) fromDoc(doc interfaceDoc, line int) error {
	forms := 0
	if doc.Channel != "" {
		forms++
	}
	if doc.Port != nil {
		forms++
	}
	if doc.GPIO != nil {
		forms++
	}
	if forms != 1 {
		return fmt.Errorf("board: line %d: interface descriptor needs exactly one of channel, port or gpio", line)
	}
	if doc.Required != nil && doc.Port == nil {
		return fmt.Errorf("board: line %d: required is only valid on port descriptors", line)
	}

	switch {
	case doc.GPIO != nil:
		*i = Interface{Kind: KindGPIO, GPIO: *doc.GPIO}
	case doc.Port != nil:
		*i = Interface{Kind: KindPort, Port: *doc.Port, Required: doc.Required != nil && *doc.Required}
	default:
		*i = Interface{Kind: KindTag, Channel: doc.Channel}
	}
	return nil
}

// MarshalJSON emits the same shapes the catalog files use.
func (i Interface) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case KindGPIO:
		g := i.GPIO
		return json.Marshal(interfaceDoc{GPIO: &g})
	case KindPort:
		port, req := i.Port, i.Required
		return json.Marshal(interfaceDoc{Port: &port, Required: &req})
	default:
		return json.Marshal(i.Channel)
	}
}

// String renders the descriptor compactly for tables.
func (i Interface) String() string {
	switch i.Kind {
	case KindGPIO:
		return fmt.Sprintf("gpio %d.%d", i.GPIO.Bank, i.GPIO.Bit)
	case KindPort:
		if i.Required {
			return fmt.Sprintf("port %d", i.Port)
		}
		return fmt.Sprintf("port %d (opt)", i.Port)
	default:
		return i.Channel
	}
}
