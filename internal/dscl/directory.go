package dscl

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dlubawy/nix-darwin/internal/config"
	"github.com/dlubawy/nix-darwin/internal/ids"
	"github.com/dlubawy/nix-darwin/internal/password"
	"github.com/dlubawy/nix-darwin/internal/plan"
	"github.com/dlubawy/nix-darwin/internal/reconcile"
)

// Defaults applied when a declared user leaves a field empty.
const (
	defaultPrimaryGID = 20 // staff
	defaultUserShell  = "/bin/zsh"
	systemUserShell   = "/usr/bin/false"
	systemUserHome    = "/var/empty"

	// DefaultBackupDir receives archived home directories of deleted
	// accounts.
	DefaultBackupDir = "/var/backups/users"
)

// Directory implements reconcile.Directory over the local directory
// utilities, and supplies the observed-state queries a pass needs.
type Directory struct {
	run        Runner
	adminGroup string
	backupDir  string
	log        zerolog.Logger
}

func NewDirectory(run Runner, adminGroup string, log zerolog.Logger) *Directory {
	if adminGroup == "" {
		adminGroup = "admin"
	}
	return &Directory{run: run, adminGroup: adminGroup, backupDir: DefaultBackupDir, log: log}
}

func (d *Directory) exec(ctx context.Context, cmds ...Command) error {
	for _, c := range cmds {
		d.log.Debug().Str("cmd", c.String()).Msg("exec")
		if _, err := d.run.Run(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// --- users ---

func (d *Directory) CreateUser(ctx context.Context, u config.User) error {
	cmds := []Command{CreateUserRecord(u.Name)}
	cmds = append(cmds, userAttrCommands(u)...)
	hash, err := creationHash(u)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", u.Name, err)
	}
	if hash != "" {
		cmds = append(cmds, SetUserAttr(u.Name, CryptPassAttr, hash))
	}
	if u.CreateHome {
		cmds = append(cmds, CreateHome(u.Name))
	}
	return d.exec(ctx, cmds...)
}

func (d *Directory) UpdateUser(ctx context.Context, u config.User) error {
	cmds := userAttrCommands(u)
	if u.HashedPassword != "" {
		cmds = append(cmds, SetUserAttr(u.Name, CryptPassAttr, u.HashedPassword))
	}
	return d.exec(ctx, cmds...)
}

// userAttrCommands asserts the declared attributes of a user record.
func userAttrCommands(u config.User) []Command {
	gid := defaultPrimaryGID
	if u.GID != nil {
		gid = *u.GID
	}
	cmds := []Command{
		SetUserAttr(u.Name, PrimaryGIDAttr, strconv.Itoa(gid)),
		SetUserAttr(u.Name, RealNameAttr, realName(u)),
		SetUserAttr(u.Name, HomeAttr, homeDir(u)),
		SetUserAttr(u.Name, ShellAttr, shell(u)),
	}
	if u.UID != nil {
		cmds = append([]Command{SetUserAttr(u.Name, UniqueIDAttr, strconv.Itoa(*u.UID))}, cmds...)
	}
	return cmds
}

func realName(u config.User) string {
	if u.Description != "" {
		return u.Description
	}
	return u.Name
}

func homeDir(u config.User) string {
	if u.Home != "" {
		return u.Home
	}
	if u.IsSystemAccount() {
		return systemUserHome
	}
	return filepath.Join("/Users", u.Name)
}

func shell(u config.User) string {
	if u.Shell != "" {
		return u.Shell
	}
	if u.IsSystemAccount() {
		return systemUserShell
	}
	return defaultUserShell
}

// creationHash picks the crypt hash written with the fresh record. A
// declared hash wins; declared plaintext is hashed to sha512-crypt so
// the record never exists without a password attribute. Plaintext
// itself never appears in a command.
func creationHash(u config.User) (string, error) {
	if u.HashedPassword != "" {
		return u.HashedPassword, nil
	}
	if u.InitialHashedPassword != "" {
		return u.InitialHashedPassword, nil
	}
	if pw := u.CreationPassword(); pw != "" {
		return password.Hash(pw)
	}
	return "", nil
}

func (d *Directory) DeleteUser(ctx context.Context, name string) error {
	// Archive-copy the home directory before the record disappears.
	out, err := d.run.Run(ctx, ReadUserAttr(name, HomeAttr))
	if err != nil && !recordNotFound(err) {
		return err
	}
	if home, ok := parseReadAttr(out, HomeAttr); ok && archivable(home) {
		dst := filepath.Join(d.backupDir, fmt.Sprintf("%s-%s", name, uuid.NewString()))
		d.log.Info().Str("user", name).Str("dst", dst).Msg("archiving home directory")
		if err := d.exec(ctx, ArchiveHome(home, dst)); err != nil {
			return err
		}
	}
	return d.exec(ctx, DeleteUserRecord(name))
}

func archivable(home string) bool {
	switch home {
	case "", "/", systemUserHome:
		return false
	}
	return true
}

func (d *Directory) UserExists(ctx context.Context, name string) (bool, error) {
	_, err := d.run.Run(ctx, ReadUserAttr(name, UniqueIDAttr))
	if err == nil {
		return true, nil
	}
	if recordNotFound(err) {
		return false, nil
	}
	return false, err
}

func (d *Directory) SetPassword(ctx context.Context, name, plaintext string) error {
	return d.exec(ctx, ResetPassword(name, plaintext))
}

func (d *Directory) SetPasswordWithAdmin(ctx context.Context, name, plaintext string, admin reconcile.Credentials) error {
	return d.exec(ctx, ResetPasswordWithAdmin(name, plaintext, admin.User, admin.Password))
}

func (d *Directory) GrantSecureToken(ctx context.Context, name, plaintext string, admin reconcile.Credentials) error {
	return d.exec(ctx, SecureTokenOn(name, plaintext, admin.User, admin.Password))
}

func (d *Directory) SetHidden(ctx context.Context, name string, hidden bool) error {
	v := "0"
	if hidden {
		v = "1"
	}
	return d.exec(ctx, SetUserAttr(name, HiddenAttr, v))
}

func (d *Directory) MarkManagedUser(ctx context.Context, name string) error {
	return d.exec(ctx, SetUserAttr(name, ManagedAttr, "1"))
}

// --- groups ---

func (d *Directory) CreateGroup(ctx context.Context, g config.Group) error {
	cmds := []Command{CreateGroupRecord(g.Name)}
	cmds = append(cmds, groupAttrCommands(g)...)
	return d.exec(ctx, cmds...)
}

func (d *Directory) UpdateGroup(ctx context.Context, g config.Group) error {
	return d.exec(ctx, groupAttrCommands(g)...)
}

func groupAttrCommands(g config.Group) []Command {
	var cmds []Command
	if g.GID != nil {
		cmds = append(cmds, SetGroupAttr(g.Name, PrimaryGIDAttr, strconv.Itoa(*g.GID)))
	}
	if g.Description != "" {
		cmds = append(cmds, SetGroupAttr(g.Name, RealNameAttr, g.Description))
	}
	cmds = append(cmds, SetGroupAttr(g.Name, MembershipAttr, g.Members...))
	return cmds
}

func (d *Directory) DeleteGroup(ctx context.Context, name string) error {
	return d.exec(ctx, DeleteGroupRecord(name))
}

func (d *Directory) MarkManagedGroup(ctx context.Context, name string) error {
	return d.exec(ctx, SetGroupAttr(name, ManagedAttr, "1"))
}

// --- observed state ---

// ObservedManaged lists the accounts and groups carrying the managed
// marker. These are the only entities a pass may delete.
func (d *Directory) ObservedManaged(ctx context.Context) (plan.Observed, error) {
	var obs plan.Observed
	out, err := d.run.Run(ctx, ListUsersAttr(ManagedAttr))
	if err != nil {
		return obs, fmt.Errorf("list managed users: %w", err)
	}
	for name := range parseListAttr(out) {
		obs.Users = append(obs.Users, name)
	}
	out, err = d.run.Run(ctx, ListGroupsAttr(ManagedAttr))
	if err != nil {
		return obs, fmt.Errorf("list managed groups: %w", err)
	}
	for name := range parseListAttr(out) {
		obs.Groups = append(obs.Groups, name)
	}
	return obs, nil
}

// ObservedIDs lists every uid and gid present in the directory, managed
// or not, so allocation never collides with an existing account.
func (d *Directory) ObservedIDs(ctx context.Context) (ids.Observed, error) {
	obs := ids.Observed{UIDs: map[int]bool{}, GIDs: map[int]bool{}}
	out, err := d.run.Run(ctx, ListUsersAttr(UniqueIDAttr))
	if err != nil {
		return obs, fmt.Errorf("list uids: %w", err)
	}
	for _, uid := range parseIntListAttr(out) {
		obs.UIDs[uid] = true
	}
	out, err = d.run.Run(ctx, ListGroupsAttr(PrimaryGIDAttr))
	if err != nil {
		return obs, fmt.Errorf("list gids: %w", err)
	}
	for _, gid := range parseIntListAttr(out) {
		obs.GIDs[gid] = true
	}
	return obs, nil
}

// AdminMembers returns the current admin group membership, superuser
// excluded.
func (d *Directory) AdminMembers(ctx context.Context) ([]string, error) {
	out, err := d.run.Run(ctx, ReadGroupAttr(d.adminGroup, MembershipAttr))
	if err != nil {
		if recordNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s membership: %w", d.adminGroup, err)
	}
	value, _ := parseReadAttr(out, MembershipAttr)
	var members []string
	for _, m := range parseMembers(value) {
		if m != config.RootUser {
			members = append(members, m)
		}
	}
	return members, nil
}

// SecureTokenHolders tests each candidate for secure-token status.
// Candidates can disappear between listing and scan; unknown accounts
// simply hold no token.
func (d *Directory) SecureTokenHolders(ctx context.Context, candidates []string) (map[string]bool, error) {
	holders := map[string]bool{}
	for _, name := range candidates {
		out, err := d.run.Run(ctx, SecureTokenStatus(name))
		if err != nil {
			if recordNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("secure token status of %s: %w", name, err)
		}
		if strings.Contains(out, "ENABLED") {
			holders[name] = true
		}
	}
	return holders, nil
}
