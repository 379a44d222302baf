package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/dlubawy/nix-darwin/internal/config"
	"github.com/dlubawy/nix-darwin/internal/plan"
)

// ErrCreationVerificationFailed means an account was reported created
// but could not be found afterwards. The pass halts: later steps would
// assume the account exists.
var ErrCreationVerificationFailed = errors.New("account creation could not be verified")

// Credentials are delegated admin credentials for privileged directory
// operations (secure-token grants, token-holder password resets).
type Credentials struct {
	User     string
	Password string
}

// Directory is the mutation surface of the local identity directory.
// All calls block; implementations bound each with a timeout.
type Directory interface {
	CreateGroup(ctx context.Context, g config.Group) error
	UpdateGroup(ctx context.Context, g config.Group) error
	DeleteGroup(ctx context.Context, name string) error
	MarkManagedGroup(ctx context.Context, name string) error

	CreateUser(ctx context.Context, u config.User) error
	UpdateUser(ctx context.Context, u config.User) error
	// DeleteUser archives the home directory before removing the record.
	DeleteUser(ctx context.Context, name string) error
	UserExists(ctx context.Context, name string) (bool, error)

	SetPassword(ctx context.Context, name, plaintext string) error
	SetPasswordWithAdmin(ctx context.Context, name, plaintext string, admin Credentials) error
	GrantSecureToken(ctx context.Context, name, plaintext string, admin Credentials) error

	SetHidden(ctx context.Context, name string, hidden bool) error
	MarkManagedUser(ctx context.Context, name string) error
}

// Live is the observed admin/token state at the start of a pass,
// threaded in explicitly so the engine never re-queries hidden process
// state mid-pass.
type Live struct {
	// Admins are the current members of the admin group, superuser
	// excluded.
	Admins []string
	// TokenHolders marks accounts currently holding a secure token.
	TokenHolders map[string]bool
	// AdminPassword is the password for the delegated token-holder
	// admin, supplied by the operator. Empty means delegated operations
	// degrade to warnings.
	AdminPassword string
}

// Reconciler applies a computed plan to the directory.
type Reconciler struct {
	dir Directory
	cfg *config.Config
	log zerolog.Logger
}

func New(dir Directory, cfg *config.Config, log zerolog.Logger) *Reconciler {
	return &Reconciler{dir: dir, cfg: cfg, log: log}
}

// Apply executes the plan. On an execution error the partial Result is
// returned alongside it; nothing after the failing account is touched.
func (r *Reconciler) Apply(ctx context.Context, p plan.Plan, live Live) (*Result, error) {
	res := newResult()
	if live.TokenHolders == nil {
		live.TokenHolders = map[string]bool{}
	}

	// The token-holder admin is resolved exactly once per pass: the
	// lexicographically first live admin holding a secure token.
	tokenAdmin := firstTokenAdmin(live)

	admins := map[string]bool{}
	for _, a := range live.Admins {
		admins[a] = true
	}

	if err := r.applyGroups(ctx, p.Groups, res); err != nil {
		return res, err
	}
	if err := r.deleteUsers(ctx, p.Users.Delete, admins, live, res); err != nil {
		return res, err
	}
	if err := r.createUsers(ctx, p.Users.Create, tokenAdmin, live, res); err != nil {
		return res, err
	}
	if err := r.updateUsers(ctx, p.Users.Update, tokenAdmin, live, res); err != nil {
		return res, err
	}
	return res, nil
}

func (r *Reconciler) applyGroups(ctx context.Context, d plan.Delta, res *Result) error {
	for _, name := range d.Delete {
		res.Groups[name] = PhaseDeleting
		r.log.Info().Str("group", name).Msg("deleting group")
		if err := r.dir.DeleteGroup(ctx, name); err != nil {
			return fmt.Errorf("delete group %s: %w", name, err)
		}
		res.Groups[name] = PhaseArchived
	}
	for _, name := range d.Create {
		g, ok := r.cfg.GroupByName(name)
		if !ok {
			return fmt.Errorf("plan names undeclared group %s", name)
		}
		res.Groups[name] = PhaseCreating
		r.log.Info().Str("group", name).Msg("creating group")
		if err := r.dir.CreateGroup(ctx, g); err != nil {
			return fmt.Errorf("create group %s: %w", name, err)
		}
		if err := r.dir.MarkManagedGroup(ctx, name); err != nil {
			return fmt.Errorf("mark group %s: %w", name, err)
		}
		res.Groups[name] = PhaseConfigured
	}
	for _, name := range d.Update {
		g, ok := r.cfg.GroupByName(name)
		if !ok {
			return fmt.Errorf("plan names undeclared group %s", name)
		}
		res.Groups[name] = PhaseUpdating
		if !r.cfg.Settings.MutableUsers {
			if err := r.dir.UpdateGroup(ctx, g); err != nil {
				return fmt.Errorf("update group %s: %w", name, err)
			}
		}
		// Marker re-assertion happens regardless of mutability.
		if err := r.dir.MarkManagedGroup(ctx, name); err != nil {
			return fmt.Errorf("mark group %s: %w", name, err)
		}
		res.Groups[name] = PhaseConfigured
	}
	return nil
}

func (r *Reconciler) deleteUsers(ctx context.Context, names []string, admins map[string]bool, live Live, res *Result) error {
	for _, name := range names {
		// Lockout guard. The admin set is live-updated as deletions land,
		// so "last admin" reflects everything this pass already did.
		if admins[name] && len(admins) == 1 {
			res.Users[name] = PhaseSkipped
			res.warnf("user %s is the last admin, skipping deletion", name)
			r.log.Warn().Str("user", name).Msg("last admin, deletion skipped")
			delete(admins, name)
			continue
		}
		res.Users[name] = PhaseDeleting
		r.log.Info().Str("user", name).Msg("deleting user")
		if err := r.dir.DeleteUser(ctx, name); err != nil {
			return fmt.Errorf("delete user %s: %w", name, err)
		}
		delete(admins, name)
		delete(live.TokenHolders, name)
		res.Users[name] = PhaseArchived
	}
	return nil
}

func (r *Reconciler) createUsers(ctx context.Context, names []string, tokenAdmin string, live Live, res *Result) error {
	for _, name := range names {
		u, ok := r.cfg.UserByName(name)
		if !ok {
			return fmt.Errorf("plan names undeclared user %s", name)
		}
		res.Users[name] = PhaseCreating
		r.log.Info().Str("user", name).Int("uid", deref(u.UID)).Msg("creating user")
		if err := r.dir.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("create user %s: %w", name, err)
		}

		exists, err := r.dir.UserExists(ctx, name)
		if err != nil {
			return fmt.Errorf("verify user %s: %w", name, err)
		}
		if !exists {
			return fmt.Errorf("user %s: %w", name, ErrCreationVerificationFailed)
		}
		res.Users[name] = PhaseVerified

		if pw := u.CreationPassword(); pw != "" {
			// Fresh accounts hold no token yet, so a direct reset works.
			if err := r.dir.SetPassword(ctx, name, pw); err != nil {
				return fmt.Errorf("set password for %s: %w", name, err)
			}
		}
		if err := r.grantTokenIfNeeded(ctx, u, tokenAdmin, live, res); err != nil {
			return err
		}
		if err := r.finishUser(ctx, u); err != nil {
			return err
		}
		res.Users[name] = PhaseConfigured
	}
	return nil
}

func (r *Reconciler) updateUsers(ctx context.Context, names []string, tokenAdmin string, live Live, res *Result) error {
	for _, name := range names {
		u, ok := r.cfg.UserByName(name)
		if !ok {
			return fmt.Errorf("plan names undeclared user %s", name)
		}
		res.Users[name] = PhaseUpdating

		// Under mutable users, pre-existing accounts keep whatever the
		// operator did to them; only the marker and hidden flag are
		// re-asserted below.
		if !r.cfg.Settings.MutableUsers {
			if err := r.dir.UpdateUser(ctx, u); err != nil {
				return fmt.Errorf("update user %s: %w", name, err)
			}
			if u.Password != "" {
				if err := r.resetPassword(ctx, u, tokenAdmin, live, res); err != nil {
					return err
				}
			}
			if err := r.grantTokenIfNeeded(ctx, u, tokenAdmin, live, res); err != nil {
				return err
			}
		}
		if err := r.finishUser(ctx, u); err != nil {
			return err
		}
		res.Users[name] = PhaseConfigured
	}
	return nil
}

// resetPassword picks the reset path by token status: token holders
// need delegated admin credentials, everyone else resets directly.
func (r *Reconciler) resetPassword(ctx context.Context, u config.User, tokenAdmin string, live Live, res *Result) error {
	if !live.TokenHolders[u.Name] {
		if err := r.dir.SetPassword(ctx, u.Name, u.Password); err != nil {
			return fmt.Errorf("set password for %s: %w", u.Name, err)
		}
		return nil
	}
	if tokenAdmin == "" || live.AdminPassword == "" {
		res.warnf("user %s holds a secure token but no token-holder admin credentials are available, password not reset", u.Name)
		return nil
	}
	creds := Credentials{User: tokenAdmin, Password: live.AdminPassword}
	if err := r.dir.SetPasswordWithAdmin(ctx, u.Name, u.Password, creds); err != nil {
		return fmt.Errorf("set password for %s via %s: %w", u.Name, tokenAdmin, err)
	}
	return nil
}

func (r *Reconciler) grantTokenIfNeeded(ctx context.Context, u config.User, tokenAdmin string, live Live, res *Result) error {
	if !u.IsTokenUser || live.TokenHolders[u.Name] {
		return nil
	}
	pw := u.CreationPassword()
	if pw == "" {
		res.warnf("user %s needs a secure token but declares no plaintext password, token not granted", u.Name)
		return nil
	}
	if tokenAdmin == "" || live.AdminPassword == "" {
		res.warnf("user %s needs a secure token but no token-holder admin credentials are available, token not granted", u.Name)
		return nil
	}
	creds := Credentials{User: tokenAdmin, Password: live.AdminPassword}
	r.log.Info().Str("user", u.Name).Str("admin", tokenAdmin).Msg("granting secure token")
	if err := r.dir.GrantSecureToken(ctx, u.Name, pw, creds); err != nil {
		return fmt.Errorf("grant secure token to %s: %w", u.Name, err)
	}
	live.TokenHolders[u.Name] = true
	return nil
}

// finishUser re-asserts the managed marker and hidden flag as the final
// step of every operation, keeping re-runs convergent even after
// partial failures elsewhere.
func (r *Reconciler) finishUser(ctx context.Context, u config.User) error {
	if err := r.dir.SetHidden(ctx, u.Name, u.IsHidden); err != nil {
		return fmt.Errorf("set hidden for %s: %w", u.Name, err)
	}
	if err := r.dir.MarkManagedUser(ctx, u.Name); err != nil {
		return fmt.Errorf("mark user %s: %w", u.Name, err)
	}
	return nil
}

func firstTokenAdmin(live Live) string {
	admins := make([]string, len(live.Admins))
	copy(admins, live.Admins)
	sort.Strings(admins)
	for _, a := range admins {
		if live.TokenHolders[a] {
			return a
		}
	}
	return ""
}

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}
