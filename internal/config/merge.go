package config

import (
	"sort"
)

// Fragment is one partial configuration file. Fragments are combined in
// ascending Priority order; fragments sharing a priority keep their load
// order. Later fragments win.
type Fragment struct {
	// Name identifies the fragment in messages, usually the file path.
	Name string `yaml:"-" toml:"-"`

	Priority int `yaml:"priority" toml:"priority"`

	Settings *Settings `yaml:"settings,omitempty" toml:"settings"`
	Users    []User    `yaml:"users,omitempty" toml:"users"`
	Groups   []Group   `yaml:"groups,omitempty" toml:"groups"`
}

// Merge combines fragments into a single Config.
//
// Resolution is last-writer-wins at entity granularity: a fragment that
// declares user or group N replaces any earlier declaration of N
// entirely. Settings likewise replace wholesale when a fragment carries
// a settings block. The result's user and group lists are sorted by
// name so downstream stages see a deterministic order regardless of how
// the input was arranged.
func Merge(fragments []Fragment) *Config {
	ordered := make([]Fragment, len(fragments))
	copy(ordered, fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	users := map[string]User{}
	groups := map[string]Group{}
	settings := Settings{}
	for _, f := range ordered {
		if f.Settings != nil {
			settings = *f.Settings
		}
		for _, u := range f.Users {
			users[u.Name] = u
		}
		for _, g := range f.Groups {
			groups[g.Name] = g
		}
	}

	cfg := &Config{Settings: settings}
	for _, u := range users {
		cfg.Users = append(cfg.Users, u)
	}
	for _, g := range groups {
		cfg.Groups = append(cfg.Groups, g)
	}
	sort.Slice(cfg.Users, func(i, j int) bool { return cfg.Users[i].Name < cfg.Users[j].Name })
	sort.Slice(cfg.Groups, func(i, j int) bool { return cfg.Groups[i].Name < cfg.Groups[j].Name })

	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Settings.AdminGroup == "" {
		c.Settings.AdminGroup = "admin"
	}
	if c.Settings.KnownShells == nil {
		c.Settings.KnownShells = DefaultKnownShells()
	}
}
