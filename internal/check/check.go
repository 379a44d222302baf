package check

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/dlubawy/nix-darwin/internal/config"
	"github.com/dlubawy/nix-darwin/internal/password"
)

var nameRe = regexp.MustCompile(`^[a-z_][a-z0-9._-]{0,31}$`)

// Run checks every declared invariant and returns the complete set of
// findings, sorted by subject then code. It never short-circuits and is
// independent of declaration order.
func Run(cfg *config.Config) []Violation {
	var vs []Violation
	vs = append(vs, userChecks(cfg)...)
	vs = append(vs, uniquenessChecks(cfg)...)
	vs = append(vs, lockoutCheck(cfg)...)
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Subject != vs[j].Subject {
			return vs[i].Subject < vs[j].Subject
		}
		return vs[i].Code < vs[j].Code
	})
	return vs
}

func userChecks(cfg *config.Config) []Violation {
	var vs []Violation
	for _, u := range cfg.Users {
		if !nameRe.MatchString(u.Name) {
			vs = append(vs, Violation{
				Code: CodeBadName, Subject: u.Name, Fatal: true,
				Message: "user name must be lowercase and start with a letter or underscore",
			})
		}

		system := u.IsSystemAccount()
		if u.IsNormalUser == system {
			vs = append(vs, Violation{
				Code: CodeRoleExclusivity, Subject: u.Name, Fatal: true,
				Message: "exactly one of isNormalUser and isSystemUser (or a uid in the system range) must hold",
			})
		}
		if system && len(u.Name) > 0 && u.Name[:1] != config.SystemNamePrefix {
			vs = append(vs, Violation{
				Code: CodeSystemAccountName, Subject: u.Name, Fatal: true,
				Message: fmt.Sprintf("system accounts must be prefixed with %q", config.SystemNamePrefix),
			})
		}
		if u.Name == config.RootUser && u.Home != "" && u.Home != config.RootHome {
			vs = append(vs, Violation{
				Code: CodeRootHome, Subject: u.Name, Fatal: true,
				Message: fmt.Sprintf("root's home must be unset or %s", config.RootHome),
			})
		}

		for _, h := range []string{u.HashedPassword, u.InitialHashedPassword} {
			if h != "" && !password.Supported(h) {
				vs = append(vs, Violation{
					Code: CodeBadHashFormat, Subject: u.Name, Fatal: true,
					Message: "hashed password is not in a supported crypt(3) format",
				})
			}
		}

		// A plaintext declared alongside a hash must agree with it, or
		// successive passes would flip the account between the two.
		for _, pair := range []struct{ plain, hash string }{
			{u.Password, u.HashedPassword},
			{u.InitialPassword, u.InitialHashedPassword},
		} {
			if pair.plain == "" || pair.hash == "" || !password.Supported(pair.hash) {
				continue
			}
			if ok, err := password.Verify(pair.hash, pair.plain); err == nil && !ok {
				vs = append(vs, Violation{
					Code: CodePasswordMismatch, Subject: u.Name, Fatal: true,
					Message: "declared plaintext and hashed password disagree",
				})
			}
		}

		if prog, known := cfg.ShellProgram(u.Shell); known && !cfg.ShellEnabled(prog) {
			vs = append(vs, Violation{
				Code: CodeShellNotEnabled, Subject: u.Name,
				Fatal: !u.IgnoreShellProgramCheck,
				Message: fmt.Sprintf("shell %s requires the %s program to be enabled", u.Shell, prog),
			})
		}
	}
	return vs
}

func uniquenessChecks(cfg *config.Config) []Violation {
	var vs []Violation
	// Duplicate explicit ids are always reported; whether they abort the
	// pass depends on the enforceIdUniqueness setting.
	fatal := cfg.Settings.EnforceIDUniqueness

	seenName := map[string]int{}
	seenUID := map[int][]string{}
	for _, u := range cfg.Users {
		seenName[u.Name]++
		if u.UID != nil {
			seenUID[*u.UID] = append(seenUID[*u.UID], u.Name)
		}
	}
	for name, n := range seenName {
		if n > 1 {
			vs = append(vs, Violation{
				Code: CodeDuplicateName, Subject: name, Fatal: true,
				Message: fmt.Sprintf("user declared %d times", n),
			})
		}
	}
	for uid, names := range seenUID {
		if len(names) > 1 {
			sort.Strings(names)
			vs = append(vs, Violation{
				Code: CodeDuplicateUID, Subject: names[0], Fatal: fatal,
				Message: fmt.Sprintf("uid %d declared by %v", uid, names),
			})
		}
	}

	seenGName := map[string]int{}
	seenGID := map[int][]string{}
	for _, g := range cfg.Groups {
		seenGName[g.Name]++
		if g.GID != nil {
			seenGID[*g.GID] = append(seenGID[*g.GID], g.Name)
		}
	}
	for name, n := range seenGName {
		if n > 1 {
			vs = append(vs, Violation{
				Code: CodeDuplicateName, Subject: name, Fatal: true,
				Message: fmt.Sprintf("group declared %d times", n),
			})
		}
	}
	for gid, names := range seenGID {
		if len(names) > 1 {
			sort.Strings(names)
			vs = append(vs, Violation{
				Code: CodeDuplicateGID, Subject: names[0], Fatal: fatal,
				Message: fmt.Sprintf("gid %d declared by %v", gid, names),
			})
		}
	}
	return vs
}

// lockoutCheck enforces the immutable-mode safety net: at least one
// declared user must be able to administer the machine after the pass
// (admin, secure token, and a known password).
func lockoutCheck(cfg *config.Config) []Violation {
	if cfg.Settings.MutableUsers {
		return nil
	}
	for _, u := range cfg.Users {
		if u.IsAdminUser && u.IsTokenUser && u.AnyPassword() {
			return nil
		}
	}
	return []Violation{{
		Code: CodeLockoutRisk, Fatal: true,
		Message: "immutable users require at least one admin user with a secure token and a password",
	}}
}
