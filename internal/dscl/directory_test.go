package dscl

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlubawy/nix-darwin/internal/config"
	"github.com/dlubawy/nix-darwin/internal/logging"
	"github.com/dlubawy/nix-darwin/internal/reconcile"
)

func intp(n int) *int { return &n }

func newTestDir(rec *RecordingRunner) *Directory {
	return NewDirectory(rec, "admin", logging.Nop())
}

func TestCreateUser_CommandSequence(t *testing.T) {
	rec := &RecordingRunner{}
	dir := newTestDir(rec)

	u := config.User{
		Name: "alice", IsNormalUser: true,
		UID: intp(501), GID: intp(600),
		Description: "Alice", Home: "/Users/alice",
		Shell: "/bin/zsh", CreateHome: true,
	}
	require.NoError(t, dir.CreateUser(context.Background(), u))

	assert.Equal(t, []string{
		"dscl . -create /Users/alice",
		"dscl . -create /Users/alice UniqueID 501",
		"dscl . -create /Users/alice PrimaryGroupID 600",
		"dscl . -create /Users/alice RealName Alice",
		"dscl . -create /Users/alice NFSHomeDirectory /Users/alice",
		"dscl . -create /Users/alice UserShell /bin/zsh",
		"createhomedir -c -u alice",
	}, rec.Strings())
}

func TestCreateUser_Defaults(t *testing.T) {
	rec := &RecordingRunner{}
	dir := newTestDir(rec)

	require.NoError(t, dir.CreateUser(context.Background(), config.User{Name: "_svc", IsSystemUser: true}))
	joined := strings.Join(rec.Strings(), "\n")
	assert.Contains(t, joined, "PrimaryGroupID 20")
	assert.Contains(t, joined, "NFSHomeDirectory /var/empty")
	assert.Contains(t, joined, "UserShell /usr/bin/false")
}

func TestCreateUser_HashedPasswordAttr(t *testing.T) {
	rec := &RecordingRunner{}
	dir := newTestDir(rec)

	u := config.User{Name: "alice", IsNormalUser: true, InitialHashedPassword: "$6$salt$hash"}
	require.NoError(t, dir.CreateUser(context.Background(), u))
	assert.Contains(t, rec.Strings(), "dscl . -create /Users/alice Password $6$salt$hash")
}

func TestCreateUser_PlaintextHashedBeforeWriting(t *testing.T) {
	rec := &RecordingRunner{}
	dir := newTestDir(rec)

	u := config.User{Name: "alice", IsNormalUser: true, InitialPassword: "hunter2"}
	require.NoError(t, dir.CreateUser(context.Background(), u))

	joined := strings.Join(rec.Strings(), "\n")
	assert.Contains(t, joined, "Password $6$", "plaintext must be written as a sha512-crypt hash")
	assert.NotContains(t, joined, "hunter2")
}

func TestDeleteUser_ArchivesHomeFirst(t *testing.T) {
	read := ReadUserAttr("alice", HomeAttr)
	rec := &RecordingRunner{Outputs: map[string]string{
		read.String(): "NFSHomeDirectory: /Users/alice\n",
	}}
	dir := newTestDir(rec)

	require.NoError(t, dir.DeleteUser(context.Background(), "alice"))

	got := rec.Strings()
	require.Len(t, got, 3)
	assert.Equal(t, read.String(), got[0])
	assert.True(t, strings.HasPrefix(got[1], "ditto /Users/alice "+DefaultBackupDir+"/alice-"))
	assert.Equal(t, "dscl . -delete /Users/alice", got[2])
}

func TestDeleteUser_SkipsArchiveForEmptyHome(t *testing.T) {
	read := ReadUserAttr("_svc", HomeAttr)
	rec := &RecordingRunner{Outputs: map[string]string{
		read.String(): "NFSHomeDirectory: /var/empty\n",
	}}
	dir := newTestDir(rec)

	require.NoError(t, dir.DeleteUser(context.Background(), "_svc"))
	for _, line := range rec.Strings() {
		assert.False(t, strings.HasPrefix(line, "ditto"), line)
	}
}

func TestUserExists(t *testing.T) {
	read := ReadUserAttr("ghost", UniqueIDAttr)
	rec := &RecordingRunner{Errs: map[string]error{
		read.String(): errors.New("DS Error: -14136 (eDSRecordNotFound)"),
	}}
	dir := newTestDir(rec)

	ok, err := dir.UserExists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dir.UserExists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetHiddenAndMarker(t *testing.T) {
	rec := &RecordingRunner{}
	dir := newTestDir(rec)

	require.NoError(t, dir.SetHidden(context.Background(), "alice", true))
	require.NoError(t, dir.SetHidden(context.Background(), "bob", false))
	require.NoError(t, dir.MarkManagedUser(context.Background(), "alice"))
	require.NoError(t, dir.MarkManagedGroup(context.Background(), "team"))

	assert.Equal(t, []string{
		"dscl . -create /Users/alice IsHidden 1",
		"dscl . -create /Users/bob IsHidden 0",
		"dscl . -create /Users/alice dsAttrTypeNative:_nix_managed 1",
		"dscl . -create /Groups/team dsAttrTypeNative:_nix_managed 1",
	}, rec.Strings())
}

func TestObservedManaged(t *testing.T) {
	users := ListUsersAttr(ManagedAttr)
	groups := ListGroupsAttr(ManagedAttr)
	rec := &RecordingRunner{Outputs: map[string]string{
		users.String():  "alice 1\nbob 1\n",
		groups.String(): "team 1\n",
	}}
	dir := newTestDir(rec)

	obs, err := dir.ObservedManaged(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, obs.Users)
	assert.Equal(t, []string{"team"}, obs.Groups)
}

func TestObservedIDs(t *testing.T) {
	users := ListUsersAttr(UniqueIDAttr)
	groups := ListGroupsAttr(PrimaryGIDAttr)
	rec := &RecordingRunner{Outputs: map[string]string{
		users.String():  "root 0\nalice 501\n",
		groups.String(): "staff 20\n",
	}}
	dir := newTestDir(rec)

	obs, err := dir.ObservedIDs(context.Background())
	require.NoError(t, err)
	assert.True(t, obs.UIDs[0])
	assert.True(t, obs.UIDs[501])
	assert.True(t, obs.GIDs[20])
	assert.False(t, obs.UIDs[502])
}

func TestAdminMembers_ExcludesRoot(t *testing.T) {
	read := ReadGroupAttr("admin", MembershipAttr)
	rec := &RecordingRunner{Outputs: map[string]string{
		read.String(): "GroupMembership: root alice bob\n",
	}}
	dir := newTestDir(rec)

	members, err := dir.AdminMembers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, members)
}

func TestSecureTokenHolders(t *testing.T) {
	alice := SecureTokenStatus("alice")
	bob := SecureTokenStatus("bob")
	rec := &RecordingRunner{Outputs: map[string]string{
		alice.String(): "2026-08-30 ... Secure token is ENABLED for user alice\n",
		bob.String():   "2026-08-30 ... Secure token is DISABLED for user bob\n",
	}}
	dir := newTestDir(rec)

	holders, err := dir.SecureTokenHolders(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)
	assert.True(t, holders["alice"])
	assert.False(t, holders["bob"])
}

func TestSecureTokenHolders_ToleratesVanishedAccounts(t *testing.T) {
	alice := SecureTokenStatus("alice")
	gone := SecureTokenStatus("gone")
	rec := &RecordingRunner{
		Outputs: map[string]string{
			alice.String(): "Secure token is ENABLED for user alice\n",
		},
		Errs: map[string]error{
			gone.String(): errors.New("eDSRecordNotFound"),
		},
	}
	dir := newTestDir(rec)

	holders, err := dir.SecureTokenHolders(context.Background(), []string{"alice", "gone"})
	require.NoError(t, err)
	assert.True(t, holders["alice"])
	assert.False(t, holders["gone"])
}

func TestDirectoryImplementsReconcileInterface(t *testing.T) {
	var _ reconcile.Directory = (*Directory)(nil)
}
