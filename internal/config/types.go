package config

// Reserved identities and ranges on the platform.
const (
	RootUser = "root"
	RootHome = "/var/root"

	// System accounts carry the marker prefix and live in the low id range.
	SystemNamePrefix = "_"
	SystemIDMin      = 200
	SystemIDMax      = 400
	NormalIDMin      = 501
)

// User is one declared account.
type User struct {
	Name        string `yaml:"name" toml:"name" validate:"required"`
	UID         *int   `yaml:"uid,omitempty" toml:"uid"`
	GID         *int   `yaml:"gid,omitempty" toml:"gid"`
	Description string `yaml:"description,omitempty" toml:"description"`
	IsHidden    bool   `yaml:"isHidden,omitempty" toml:"isHidden"`
	Home        string `yaml:"home,omitempty" toml:"home"`
	CreateHome  bool   `yaml:"createHome,omitempty" toml:"createHome"`
	Shell       string `yaml:"shell,omitempty" toml:"shell"`

	// Exactly one of IsNormalUser / derived system-ness must hold; the
	// constraint checker enforces it.
	IsNormalUser bool `yaml:"isNormalUser,omitempty" toml:"isNormalUser"`
	IsSystemUser bool `yaml:"isSystemUser,omitempty" toml:"isSystemUser"`
	IsAdminUser  bool `yaml:"isAdminUser,omitempty" toml:"isAdminUser"`
	IsTokenUser  bool `yaml:"isTokenUser,omitempty" toml:"isTokenUser"`

	// InitialPassword / InitialHashedPassword apply only when the account
	// is first created; Password / HashedPassword are re-asserted on every
	// pass. Hashed values are crypt(3) strings.
	InitialPassword       string `yaml:"initialPassword,omitempty" toml:"initialPassword"`
	Password              string `yaml:"password,omitempty" toml:"password"`
	InitialHashedPassword string `yaml:"initialHashedPassword,omitempty" toml:"initialHashedPassword"`
	HashedPassword        string `yaml:"hashedPassword,omitempty" toml:"hashedPassword"`

	Packages []string `yaml:"packages,omitempty" toml:"packages"`

	// IgnoreShellProgramCheck downgrades the shell-enablement violation
	// to a warning for this user.
	IgnoreShellProgramCheck bool `yaml:"ignoreShellProgramCheck,omitempty" toml:"ignoreShellProgramCheck"`
}

// IsSystemAccount reports whether the user is a system account, either
// declared as one or placed in the system id range.
func (u User) IsSystemAccount() bool {
	if u.IsSystemUser {
		return true
	}
	return u.UID != nil && *u.UID >= SystemIDMin && *u.UID <= SystemIDMax
}

// AnyPassword reports whether any password option is set.
func (u User) AnyPassword() bool {
	return u.Password != "" || u.InitialPassword != "" ||
		u.HashedPassword != "" || u.InitialHashedPassword != ""
}

// CreationPassword returns the plaintext used when the account is first
// created, preferring the persistent password over the initial one.
func (u User) CreationPassword() string {
	if u.Password != "" {
		return u.Password
	}
	return u.InitialPassword
}

// Group is one declared group.
type Group struct {
	Name        string   `yaml:"name" toml:"name" validate:"required"`
	GID         *int     `yaml:"gid,omitempty" toml:"gid"`
	Description string   `yaml:"description,omitempty" toml:"description"`
	Members     []string `yaml:"members,omitempty" toml:"members"`
}

// Settings are the pass-wide knobs.
type Settings struct {
	// MutableUsers leaves pre-existing accounts untouched (no deletions,
	// no attribute updates beyond the managed marker and hidden flag).
	MutableUsers bool `yaml:"mutableUsers" toml:"mutableUsers"`

	// EnforceIDUniqueness escalates duplicate explicit uid/gid findings
	// from warnings to fatal violations.
	EnforceIDUniqueness bool `yaml:"enforceIdUniqueness" toml:"enforceIdUniqueness"`

	// AdminGroup is the group whose members administer the machine.
	AdminGroup string `yaml:"adminGroup,omitempty" toml:"adminGroup"`

	// EnabledShells lists shell programs declared available system-wide
	// ("zsh", "bash", "fish"). Users whose shell maps to a program not in
	// this list trip the shell-enablement check.
	EnabledShells []string `yaml:"enabledShells,omitempty" toml:"enabledShells"`

	// KnownShells maps shell paths to program names. Defaults cover the
	// stock and nix-provided interpreter locations.
	KnownShells map[string]string `yaml:"knownShells,omitempty" toml:"knownShells"`
}

// Config is the merged desired state for one pass.
type Config struct {
	Settings Settings `yaml:"settings" toml:"settings"`
	Users    []User   `yaml:"users" toml:"users" validate:"dive"`
	Groups   []Group  `yaml:"groups" toml:"groups" validate:"dive"`
}

// DefaultKnownShells maps well-known interactive shell locations to
// their program names.
func DefaultKnownShells() map[string]string {
	return map[string]string{
		"/bin/zsh":                        "zsh",
		"/bin/bash":                       "bash",
		"/run/current-system/sw/bin/zsh":  "zsh",
		"/run/current-system/sw/bin/bash": "bash",
		"/run/current-system/sw/bin/fish": "fish",
	}
}

// UserByName returns the declared user with the given name, if any.
func (c *Config) UserByName(name string) (User, bool) {
	for _, u := range c.Users {
		if u.Name == name {
			return u, true
		}
	}
	return User{}, false
}

// GroupByName returns the declared group with the given name, if any.
func (c *Config) GroupByName(name string) (Group, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// ShellProgram resolves a user's shell path against the known-shell
// table, returning the program name and whether the path is known.
func (c *Config) ShellProgram(shell string) (string, bool) {
	prog, ok := c.Settings.KnownShells[shell]
	return prog, ok
}

// ShellEnabled reports whether a shell program is declared enabled.
func (c *Config) ShellEnabled(program string) bool {
	for _, p := range c.Settings.EnabledShells {
		if p == program {
			return true
		}
	}
	return false
}
