package screen

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type definitionFile struct {
	Screens []definitionEntry `yaml:"screens"`
}

type definitionEntry struct {
	Name       string `yaml:"name"`
	Function   string `yaml:"function"`
	Variant    string `yaml:"variant"`
	Modal      string `yaml:"modal"`
	ZOrder     string `yaml:"zorder"`
	Tag        string `yaml:"tag"`
	Predict    *bool  `yaml:"predict"`
	Parameters bool   `yaml:"parameters"`
}

// LoadDefinitions registers the screens described by a yaml document,
// binding each to the callback named by its function field:
//
//	screens:
//	  - name: main menu
//	    function: mainMenu
//	    modal: "True"
//	    zorder: "5"
//	    variant: touch
//	    predict: false
//
// The function field defaults to the screen name.
func LoadDefinitions(r *Registry, data []byte, funcs map[string]Function) ([]*Definition, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse screen definitions: %w", err)
	}
	out := make([]*Definition, 0, len(file.Screens))
	for i, entry := range file.Screens {
		fnName := entry.Function
		if fnName == "" {
			fnName = entry.Name
		}
		fn, ok := funcs[fnName]
		if !ok {
			return out, fmt.Errorf("screen %d (%q): no function named %q", i, entry.Name, fnName)
		}
		predict := PredictDefault
		if entry.Predict != nil {
			predict = PredictNever
			if *entry.Predict {
				predict = PredictAlways
			}
		}
		def, err := r.Register(Definition{
			Name:       []string{entry.Name},
			Variant:    entry.Variant,
			Function:   fn,
			Modal:      entry.Modal,
			ZOrder:     entry.ZOrder,
			Tag:        entry.Tag,
			Predict:    predict,
			Parameters: entry.Parameters,
		})
		if err != nil {
			return out, fmt.Errorf("screen %d: %w", i, err)
		}
		out = append(out, def)
	}
	return out, nil
}
