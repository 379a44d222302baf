package dscl

import "strings"

// Directory node paths and attribute names used by the engine.
const (
	usersPath  = "/Users"
	groupsPath = "/Groups"

	// ManagedAttr is the record attribute marking an account or group as
	// owned by this engine. Set on every create/update pass, read when
	// computing deletion candidates, never cleared.
	ManagedAttr = "dsAttrTypeNative:_nix_managed"

	HiddenAttr     = "IsHidden"
	UniqueIDAttr   = "UniqueID"
	PrimaryGIDAttr = "PrimaryGroupID"
	RealNameAttr   = "RealName"
	HomeAttr       = "NFSHomeDirectory"
	ShellAttr      = "UserShell"
	MembershipAttr = "GroupMembership"
	CryptPassAttr  = "Password"
)

// Command is one external invocation. Secrets are answers to the
// tool's interactive password prompts, in prompt order; they are never
// placed on argv and never rendered by String.
type Command struct {
	Program string
	Args    []string
	Secrets []string
}

func (c Command) String() string {
	return c.Program + " " + strings.Join(c.Args, " ")
}

func dsclCreate(path string, attr ...string) Command {
	args := append([]string{".", "-create", path}, attr...)
	return Command{Program: "dscl", Args: args}
}

// CreateUserRecord creates the bare user record.
func CreateUserRecord(name string) Command {
	return dsclCreate(usersPath + "/" + name)
}

// SetUserAttr sets (or replaces) one attribute on a user record.
func SetUserAttr(name, attr string, values ...string) Command {
	return dsclCreate(usersPath+"/"+name, append([]string{attr}, values...)...)
}

// DeleteUserRecord removes the user record entirely.
func DeleteUserRecord(name string) Command {
	return Command{Program: "dscl", Args: []string{".", "-delete", usersPath + "/" + name}}
}

// ReadUserAttr reads one attribute from a user record.
func ReadUserAttr(name, attr string) Command {
	return Command{Program: "dscl", Args: []string{".", "-read", usersPath + "/" + name, attr}}
}

// ListUsersAttr lists all user records carrying attr with its value.
func ListUsersAttr(attr string) Command {
	return Command{Program: "dscl", Args: []string{".", "-list", usersPath, attr}}
}

// CreateGroupRecord creates the bare group record.
func CreateGroupRecord(name string) Command {
	return dsclCreate(groupsPath + "/" + name)
}

// SetGroupAttr sets (or replaces) one attribute on a group record.
func SetGroupAttr(name, attr string, values ...string) Command {
	return dsclCreate(groupsPath+"/"+name, append([]string{attr}, values...)...)
}

// DeleteGroupRecord removes the group record entirely.
func DeleteGroupRecord(name string) Command {
	return Command{Program: "dscl", Args: []string{".", "-delete", groupsPath + "/" + name}}
}

// ReadGroupAttr reads one attribute from a group record.
func ReadGroupAttr(name, attr string) Command {
	return Command{Program: "dscl", Args: []string{".", "-read", groupsPath + "/" + name, attr}}
}

// ListGroupsAttr lists all group records carrying attr with its value.
func ListGroupsAttr(attr string) Command {
	return Command{Program: "dscl", Args: []string{".", "-list", groupsPath, attr}}
}

// SecureTokenStatus queries whether an account holds a secure token.
func SecureTokenStatus(name string) Command {
	return Command{Program: "sysadminctl", Args: []string{"-secureTokenStatus", name}}
}

// ResetPassword resets an account password directly. The new password
// is supplied at the interactive prompt ("-"), not on argv.
func ResetPassword(name, newPassword string) Command {
	return Command{
		Program: "sysadminctl",
		Args:    []string{"-resetPasswordFor", name, "-newPassword", "-"},
		Secrets: []string{newPassword},
	}
}

// ResetPasswordWithAdmin resets a token holder's password using
// delegated admin credentials. Prompt answers follow argv order: the
// new password first, then the admin password.
func ResetPasswordWithAdmin(name, newPassword, adminUser, adminPassword string) Command {
	return Command{
		Program: "sysadminctl",
		Args:    []string{"-resetPasswordFor", name, "-newPassword", "-", "-adminUser", adminUser, "-adminPassword", "-"},
		Secrets: []string{newPassword, adminPassword},
	}
}

// SecureTokenOn grants a secure token to an account, authorised by a
// token-holder admin.
func SecureTokenOn(name, userPassword, adminUser, adminPassword string) Command {
	return Command{
		Program: "sysadminctl",
		Args:    []string{"-secureTokenOn", name, "-password", "-", "-adminUser", adminUser, "-adminPassword", "-"},
		Secrets: []string{userPassword, adminPassword},
	}
}

// CreateHome materialises the home directory for an account.
func CreateHome(name string) Command {
	return Command{Program: "createhomedir", Args: []string{"-c", "-u", name}}
}

// ArchiveHome copies a home directory to the backup location before the
// account record is deleted.
func ArchiveHome(src, dst string) Command {
	return Command{Program: "ditto", Args: []string{src, dst}}
}
