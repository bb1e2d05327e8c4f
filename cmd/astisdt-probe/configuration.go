package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/slices"
)

// Output formats
const (
	formatJSON = "json"
	formatText = "text"
)

// Table filters
const (
	tableActual = "actual"
	tableAll    = "all"
	tableOther  = "other"
)

// Configuration represents the probe configuration
type Configuration struct {
	Format  string
	SkipCRC bool
	Strict  bool
	Tables  []string
}

type fileConfiguration struct {
	Format  string   `toml:"format"`
	SkipCRC bool     `toml:"skip_crc"`
	Strict  bool     `toml:"strict"`
	Tables  []string `toml:"tables"`
}

func newConfiguration() Configuration {
	return Configuration{Format: formatText}
}

// loadFile overlays keys defined in the TOML file on top of the configuration
func (c *Configuration) loadFile(path string) (err error) {
	var raw fileConfiguration
	var meta toml.MetaData
	if meta, err = toml.DecodeFile(path, &raw); err != nil {
		err = fmt.Errorf("astisdt: decoding toml file %s failed: %w", path, err)
		return
	}

	if meta.IsDefined("format") {
		c.Format = strings.ToLower(strings.TrimSpace(raw.Format))
	}
	if meta.IsDefined("skip_crc") {
		c.SkipCRC = raw.SkipCRC
	}
	if meta.IsDefined("strict") {
		c.Strict = raw.Strict
	}
	if meta.IsDefined("tables") {
		c.Tables = normalizeTables(raw.Tables)
	}

	// Unknown keys are most likely typos
	if u := meta.Undecoded(); len(u) > 0 {
		var ks []string
		for _, k := range u {
			ks = append(ks, k.String())
		}
		err = fmt.Errorf("astisdt: unknown keys %s in toml file %s", strings.Join(ks, ", "), path)
		return
	}
	return
}

func (c Configuration) validate() error {
	switch c.Format {
	case formatJSON, formatText:
	default:
		return fmt.Errorf("astisdt: invalid format %q", c.Format)
	}
	for _, t := range c.Tables {
		switch t {
		case tableActual, tableAll, tableOther:
		default:
			return fmt.Errorf("astisdt: invalid table %q", t)
		}
	}
	return nil
}

// acceptsTable checks whether sections of the actual or other table are whitelisted
func (c Configuration) acceptsTable(other bool) bool {
	if len(c.Tables) == 0 || slices.Contains(c.Tables, tableAll) {
		return true
	}
	if other {
		return slices.Contains(c.Tables, tableOther)
	}
	return slices.Contains(c.Tables, tableActual)
}

func normalizeTables(ts []string) (o []string) {
	for _, t := range ts {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && !slices.Contains(o, t) {
			o = append(o, t)
		}
	}
	slices.Sort(o)
	return
}
