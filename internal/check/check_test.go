package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlubawy/nix-darwin/internal/config"
	"github.com/dlubawy/nix-darwin/internal/password"
)

func intp(n int) *int { return &n }

func baseConfig(users ...config.User) *config.Config {
	return &config.Config{
		Settings: config.Settings{
			MutableUsers: true,
			AdminGroup:   "admin",
			KnownShells:  config.DefaultKnownShells(),
		},
		Users: users,
	}
}

func codes(vs []Violation) []Code {
	out := make([]Code, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Code)
	}
	return out
}

func TestRoleExclusivity_BothSet(t *testing.T) {
	vs := Run(baseConfig(config.User{Name: "alice", IsNormalUser: true, IsSystemUser: true}))
	assert.Contains(t, codes(vs), CodeRoleExclusivity)
	assert.True(t, AnyFatal(vs))
}

func TestRoleExclusivity_NeitherSet(t *testing.T) {
	// uid outside the system range and no role flag at all.
	vs := Run(baseConfig(config.User{Name: "alice", UID: intp(501)}))
	assert.Contains(t, codes(vs), CodeRoleExclusivity)
}

func TestRoleExclusivity_SystemUIDCountsAsSystem(t *testing.T) {
	// uid in [200,400] derives system-ness, so isNormalUser conflicts.
	vs := Run(baseConfig(config.User{Name: "_svc", IsNormalUser: true, UID: intp(250)}))
	assert.Contains(t, codes(vs), CodeRoleExclusivity)

	vs = Run(baseConfig(config.User{Name: "_svc", UID: intp(250)}))
	assert.NotContains(t, codes(vs), CodeRoleExclusivity)
}

func TestSystemAccountNamePrefix(t *testing.T) {
	vs := Run(baseConfig(config.User{Name: "svc", IsSystemUser: true}))
	assert.Contains(t, codes(vs), CodeSystemAccountName)

	vs = Run(baseConfig(config.User{Name: "_svc", IsSystemUser: true}))
	assert.NotContains(t, codes(vs), CodeSystemAccountName)
}

func TestRootHome(t *testing.T) {
	vs := Run(baseConfig(config.User{Name: "root", IsNormalUser: true, Home: "/Users/root"}))
	assert.Contains(t, codes(vs), CodeRootHome)

	vs = Run(baseConfig(config.User{Name: "root", IsNormalUser: true, Home: config.RootHome}))
	assert.NotContains(t, codes(vs), CodeRootHome)
}

func TestDuplicateUID_FatalityFollowsSetting(t *testing.T) {
	users := []config.User{
		{Name: "alice", IsNormalUser: true, UID: intp(501)},
		{Name: "bob", IsNormalUser: true, UID: intp(501)},
	}

	cfg := baseConfig(users...)
	vs := Run(cfg)
	require.Contains(t, codes(vs), CodeDuplicateUID)
	assert.False(t, AnyFatal(vs), "duplicates are warnings without enforceIdUniqueness")

	cfg.Settings.EnforceIDUniqueness = true
	vs = Run(cfg)
	assert.True(t, AnyFatal(vs))
}

func TestDuplicateGID(t *testing.T) {
	cfg := baseConfig()
	cfg.Settings.EnforceIDUniqueness = true
	cfg.Groups = []config.Group{
		{Name: "staffx", GID: intp(600)},
		{Name: "warez", GID: intp(600)},
	}
	vs := Run(cfg)
	assert.Contains(t, codes(vs), CodeDuplicateGID)
	assert.True(t, AnyFatal(vs))
}

func TestLockoutRisk(t *testing.T) {
	cfg := baseConfig(config.User{Name: "alice", IsNormalUser: true, IsAdminUser: true})
	cfg.Settings.MutableUsers = false
	vs := Run(cfg)
	assert.Contains(t, codes(vs), CodeLockoutRisk)

	// One admin token user with a password satisfies the safety net.
	cfg.Users[0].IsTokenUser = true
	cfg.Users[0].Password = "hunter2"
	vs = Run(cfg)
	assert.NotContains(t, codes(vs), CodeLockoutRisk)
}

func TestLockoutRisk_MutableModeExempt(t *testing.T) {
	cfg := baseConfig(config.User{Name: "alice", IsNormalUser: true})
	vs := Run(cfg)
	assert.NotContains(t, codes(vs), CodeLockoutRisk)
}

func TestShellNotEnabled(t *testing.T) {
	u := config.User{Name: "alice", IsNormalUser: true, Shell: "/run/current-system/sw/bin/fish"}
	vs := Run(baseConfig(u))
	require.Contains(t, codes(vs), CodeShellNotEnabled)
	assert.True(t, AnyFatal(vs))

	// Opt-out downgrades the finding to a warning.
	u.IgnoreShellProgramCheck = true
	vs = Run(baseConfig(u))
	require.Contains(t, codes(vs), CodeShellNotEnabled)
	assert.False(t, AnyFatal(vs))

	// Enabling the program clears it.
	u.IgnoreShellProgramCheck = false
	cfg := baseConfig(u)
	cfg.Settings.EnabledShells = []string{"fish"}
	vs = Run(cfg)
	assert.NotContains(t, codes(vs), CodeShellNotEnabled)
}

func TestShellNotEnabled_UnknownShellIgnored(t *testing.T) {
	vs := Run(baseConfig(config.User{Name: "alice", IsNormalUser: true, Shell: "/opt/odd/shell"}))
	assert.NotContains(t, codes(vs), CodeShellNotEnabled)
}

func TestBadHashFormat(t *testing.T) {
	u := config.User{Name: "alice", IsNormalUser: true, HashedPassword: "$y$j9T$salt$hash"}
	vs := Run(baseConfig(u))
	assert.Contains(t, codes(vs), CodeBadHashFormat)

	u.HashedPassword = "$6$salt$hash"
	vs = Run(baseConfig(u))
	assert.NotContains(t, codes(vs), CodeBadHashFormat)
}

func TestPasswordMismatch(t *testing.T) {
	hash, err := password.Hash("hunter2")
	require.NoError(t, err)

	u := config.User{Name: "alice", IsNormalUser: true, Password: "other", HashedPassword: hash}
	vs := Run(baseConfig(u))
	assert.Contains(t, codes(vs), CodePasswordMismatch)
	assert.True(t, AnyFatal(vs))

	u.Password = "hunter2"
	vs = Run(baseConfig(u))
	assert.NotContains(t, codes(vs), CodePasswordMismatch)
}

func TestPasswordMismatch_InitialPair(t *testing.T) {
	hash, err := password.Hash("hunter2")
	require.NoError(t, err)

	u := config.User{Name: "alice", IsNormalUser: true, InitialPassword: "other", InitialHashedPassword: hash}
	vs := Run(baseConfig(u))
	assert.Contains(t, codes(vs), CodePasswordMismatch)
}

func TestRun_OrderIndependent(t *testing.T) {
	a := config.User{Name: "alice", IsNormalUser: true, IsSystemUser: true}
	b := config.User{Name: "svc", IsSystemUser: true}
	c := config.User{Name: "root", IsNormalUser: true, Home: "/nope"}

	first := Run(baseConfig(a, b, c))
	second := Run(baseConfig(c, a, b))
	assert.Equal(t, first, second)
}

func TestRun_CollectsEverything(t *testing.T) {
	cfg := baseConfig(
		config.User{Name: "alice", IsNormalUser: true, IsSystemUser: true},
		config.User{Name: "svc", IsSystemUser: true},
	)
	cfg.Settings.MutableUsers = false
	vs := Run(cfg)

	got := codes(vs)
	assert.Contains(t, got, CodeRoleExclusivity)
	assert.Contains(t, got, CodeSystemAccountName)
	assert.Contains(t, got, CodeLockoutRisk)
}
