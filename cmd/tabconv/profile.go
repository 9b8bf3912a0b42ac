package main

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// A profile file holds named conversion setups:
//
//	profile "clean" {
//	  from         = "delim"
//	  from_options = { separator = tab, header = "true" }
//	  to           = "json"
//	}
type profileConfig struct {
	Profiles []profile `hcl:"profile,block"`
}

type profile struct {
	Name        string            `hcl:"name,label"`
	From        string            `hcl:"from,optional"`
	FromOptions map[string]string `hcl:"from_options,optional"`
	To          string            `hcl:"to,optional"`
	ToOptions   map[string]string `hcl:"to_options,optional"`
}

// separator shorthands usable as bare identifiers in profile files;
// the values follow the option escape grammar.
var profileVars = map[string]cty.Value{
	"tab":       cty.StringVal(`\t`),
	"comma":     cty.StringVal(","),
	"semicolon": cty.StringVal(";"),
	"pipe":      cty.StringVal(`\|`),
	"space":     cty.StringVal(" "),
}

// loadProfile parses the HCL file and returns the named profile. An
// empty name selects the only profile in the file.
func loadProfile(path, name string) (*profile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}

	ctx := &hcl.EvalContext{Variables: profileVars}
	cfg := &profileConfig{}
	if diags := gohcl.DecodeBody(file.Body, ctx, cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", path, diags.Error())
	}

	if name == "" {
		if len(cfg.Profiles) != 1 {
			return nil, fmt.Errorf("%s has %d profiles, use -profile to pick one",
				path, len(cfg.Profiles))
		}
		return &cfg.Profiles[0], nil
	}
	for i := range cfg.Profiles {
		if cfg.Profiles[i].Name == name {
			return &cfg.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("%s has no profile named %q", path, name)
}
