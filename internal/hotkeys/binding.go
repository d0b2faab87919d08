package hotkeys

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// CommandKind is the tag of a Command variant as it appears on the wire.
type CommandKind string

const (
	KindToggleWindow      CommandKind = "ToggleWindow"
	KindGetCursorPosition CommandKind = "GetCursorPosition"
	KindGetSelectedText   CommandKind = "GetSelectedText"
	KindPasteOutput       CommandKind = "PasteOutput"
	KindPrintHello        CommandKind = "PrintHello"
	KindPrompt            CommandKind = "Prompt"
)

// Command is the action bound to a shortcut. It is a closed set: only the
// variant types in this package implement it.
type Command interface {
	Kind() CommandKind
	sealed()
}

// ToggleWindow shows or hides the main window, capturing the selection first.
type ToggleWindow struct{}

// GetCursorPosition reports the pointer position.
type GetCursorPosition struct{}

// GetSelectedText captures the current selection.
type GetSelectedText struct{}

// PasteOutput pastes the most recent prompt response at the cursor.
type PasteOutput struct{}

// PrintHello is a diagnostic command kept for older settings files.
type PrintHello struct{}

// Prompt runs a custom prompt template against the captured selection.
type Prompt struct {
	ProviderName string `json:"provider_name" yaml:"provider_name"`
	Prompt       string `json:"prompt" yaml:"prompt"`
}

// Unknown preserves a command tag this build does not understand. It is
// never dispatched.
type Unknown struct {
	Tag string
}

func (ToggleWindow) Kind() CommandKind      { return KindToggleWindow }
func (GetCursorPosition) Kind() CommandKind { return KindGetCursorPosition }
func (GetSelectedText) Kind() CommandKind   { return KindGetSelectedText }
func (PasteOutput) Kind() CommandKind       { return KindPasteOutput }
func (PrintHello) Kind() CommandKind        { return KindPrintHello }
func (Prompt) Kind() CommandKind            { return KindPrompt }
func (u Unknown) Kind() CommandKind         { return CommandKind(u.Tag) }

func (ToggleWindow) sealed()      {}
func (GetCursorPosition) sealed() {}
func (GetSelectedText) sealed()   {}
func (PasteOutput) sealed()       {}
func (PrintHello) sealed()        {}
func (Prompt) sealed()            {}
func (Unknown) sealed()           {}

// unitCommands maps tags of payload-free variants to their values.
var unitCommands = map[CommandKind]Command{
	KindToggleWindow:      ToggleWindow{},
	KindGetCursorPosition: GetCursorPosition{},
	KindGetSelectedText:   GetSelectedText{},
	KindPasteOutput:       PasteOutput{},
	KindPrintHello:        PrintHello{},
}

// Binding is a named shortcut bound to a command.
// An empty Shortcut means the binding currently has no trigger.
type Binding struct {
	Name     string
	Shortcut string
	Command  Command
}

// AsPrompt returns the prompt payload when b is bound to a Prompt command.
func (b Binding) AsPrompt() (Prompt, bool) {
	switch cmd := b.Command.(type) {
	case Prompt:
		return cmd, true
	case ToggleWindow, GetCursorPosition, GetSelectedText, PasteOutput, PrintHello, Unknown, nil:
		return Prompt{}, false
	default:
		return Prompt{}, false
	}
}

// commandWireValue returns the externally tagged form of cmd:
// a bare tag string for unit variants, {"Prompt": {...}} for prompts.
func commandWireValue(cmd Command) (any, error) {
	switch c := cmd.(type) {
	case nil:
		return nil, nil
	case Prompt:
		return map[string]Prompt{string(KindPrompt): c}, nil
	case Unknown:
		if c.Tag == "" {
			return nil, fmt.Errorf("unknown command has empty tag")
		}
		return c.Tag, nil
	default:
		return string(c.Kind()), nil
	}
}

func commandFromTag(tag string) Command {
	if cmd, ok := unitCommands[CommandKind(tag)]; ok {
		return cmd
	}
	// A bare "Prompt" has no payload to run, so it stays Unknown and
	// re-encodes as the same tag.
	return Unknown{Tag: tag}
}

type bindingWire struct {
	Name     string `json:"name" yaml:"name"`
	Shortcut string `json:"shortcut" yaml:"shortcut"`
	Command  any    `json:"command" yaml:"command"`
}

// MarshalJSON encodes the binding with an externally tagged command.
func (b Binding) MarshalJSON() ([]byte, error) {
	cmd, err := commandWireValue(b.Command)
	if err != nil {
		return nil, fmt.Errorf("binding %q: %w", b.Name, err)
	}
	return json.Marshal(bindingWire{Name: b.Name, Shortcut: b.Shortcut, Command: cmd})
}

// UnmarshalJSON decodes a binding; unknown command tags become Unknown.
func (b *Binding) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     string          `json:"name"`
		Shortcut string          `json:"shortcut"`
		Command  json.RawMessage `json:"command"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cmd, err := decodeJSONCommand(raw.Command)
	if err != nil {
		return fmt.Errorf("binding %q: %w", raw.Name, err)
	}
	*b = Binding{Name: raw.Name, Shortcut: raw.Shortcut, Command: cmd}
	return nil
}

func decodeJSONCommand(raw json.RawMessage) (Command, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '"':
		var tag string
		if err := json.Unmarshal(trimmed, &tag); err != nil {
			return nil, err
		}
		return commandFromTag(tag), nil
	case '{':
		var tagged map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &tagged); err != nil {
			return nil, err
		}
		if len(tagged) != 1 {
			return nil, fmt.Errorf("command object must have exactly one tag, got %d", len(tagged))
		}
		var tag string
		var payload json.RawMessage
		for k, v := range tagged {
			tag, payload = k, v
		}
		if tag != string(KindPrompt) {
			return commandFromTag(tag), nil
		}
		var p Prompt
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("prompt payload: %w", err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("unsupported command encoding: %s", trimmed)
}

// MarshalYAML encodes the binding with an externally tagged command.
func (b Binding) MarshalYAML() (any, error) {
	cmd, err := commandWireValue(b.Command)
	if err != nil {
		return nil, fmt.Errorf("binding %q: %w", b.Name, err)
	}
	return bindingWire{Name: b.Name, Shortcut: b.Shortcut, Command: cmd}, nil
}

// UnmarshalYAML decodes a binding; unknown command tags become Unknown.
func (b *Binding) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name     string    `yaml:"name"`
		Shortcut string    `yaml:"shortcut"`
		Command  yaml.Node `yaml:"command"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	cmd, err := decodeYAMLCommand(&raw.Command)
	if err != nil {
		return fmt.Errorf("binding %q: %w", raw.Name, err)
	}
	*b = Binding{Name: raw.Name, Shortcut: raw.Shortcut, Command: cmd}
	return nil
}

func decodeYAMLCommand(node *yaml.Node) (Command, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			return nil, nil
		}
		return commandFromTag(node.Value), nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nil, fmt.Errorf("command mapping must have exactly one tag, got %d", len(node.Content)/2)
		}
		tag := node.Content[0].Value
		if tag != string(KindPrompt) {
			return commandFromTag(tag), nil
		}
		var p Prompt
		if err := node.Content[1].Decode(&p); err != nil {
			return nil, fmt.Errorf("prompt payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported command node kind %d (line %d)", node.Kind, node.Line)
	}
}

// CloneBindings returns a copy of src. Command values are immutable, so a
// shallow element copy is sufficient.
func CloneBindings(src []Binding) []Binding {
	if src == nil {
		return nil
	}
	dst := make([]Binding, len(src))
	copy(dst, src)
	return dst
}
