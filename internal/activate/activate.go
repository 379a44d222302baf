// Package activate runs a full reconciliation pass:
// validate -> allocate -> diff -> apply -> publish profiles.
package activate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dlubawy/nix-darwin/internal/check"
	"github.com/dlubawy/nix-darwin/internal/config"
	"github.com/dlubawy/nix-darwin/internal/ids"
	"github.com/dlubawy/nix-darwin/internal/plan"
	"github.com/dlubawy/nix-darwin/internal/profiles"
	"github.com/dlubawy/nix-darwin/internal/reconcile"
)

// System is the full surface a pass needs from the local directory:
// the mutation interface plus the read-only observation queries.
type System interface {
	reconcile.Directory

	ObservedManaged(ctx context.Context) (plan.Observed, error)
	ObservedIDs(ctx context.Context) (ids.Observed, error)
	AdminMembers(ctx context.Context) ([]string, error)
	SecureTokenHolders(ctx context.Context, candidates []string) (map[string]bool, error)
}

// ValidationError carries the complete violation set of a rejected
// configuration.
type ValidationError struct {
	Violations []check.Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Fatal {
			msgs = append(msgs, v.String())
		}
	}
	return fmt.Sprintf("configuration rejected: %s", strings.Join(msgs, "; "))
}

// Options tune a pass beyond the declared configuration.
type Options struct {
	// AdminPassword authorises delegated token operations.
	AdminPassword string
	// ProfilesRoot overrides where per-user profiles are published.
	ProfilesRoot string
	// SkipProfiles disables the shell environment publisher (plan/dry
	// runs).
	SkipProfiles bool
	// ForceEmptyObserved treats a failed managed-marker listing as an
	// empty managed set instead of aborting. Without it a listing
	// failure is fatal: an empty set would re-create every declared
	// account.
	ForceEmptyObserved bool
}

// Pass validates cfg, allocates missing ids, diffs against observed
// managed state and applies the result. Non-fatal violations surface as
// warnings on the Result; fatal ones abort with *ValidationError before
// any mutation.
func Pass(ctx context.Context, cfg *config.Config, sys System, opts Options, log zerolog.Logger) (*reconcile.Result, error) {
	violations := check.Run(cfg)
	if check.AnyFatal(violations) {
		return nil, &ValidationError{Violations: violations}
	}

	observedIDs, err := sys.ObservedIDs(ctx)
	if err != nil {
		return nil, err
	}
	if err := ids.AssignMissing(cfg.Users, cfg.Groups, observedIDs); err != nil {
		return nil, err
	}

	observed, err := sys.ObservedManaged(ctx)
	if err != nil {
		if !opts.ForceEmptyObserved {
			return nil, fmt.Errorf("managed state unavailable, refusing to assume it is empty: %w", err)
		}
		log.Warn().Err(err).Msg("managed listing failed, proceeding with an empty managed set")
		observed = plan.Observed{}
	}
	p := plan.Compute(userNames(cfg), groupNames(cfg), observed, cfg.Settings.MutableUsers)
	logPlan(log, p)

	admins, err := sys.AdminMembers(ctx)
	if err != nil {
		return nil, err
	}
	holders, err := sys.SecureTokenHolders(ctx, tokenCandidates(cfg, admins, observed))
	if err != nil {
		return nil, err
	}
	live := reconcile.Live{
		Admins:        admins,
		TokenHolders:  holders,
		AdminPassword: opts.AdminPassword,
	}

	res, err := reconcile.New(sys, cfg, log).Apply(ctx, p, live)
	if res != nil {
		for _, v := range violations {
			res.Warnings = append(res.Warnings, v.String())
		}
	}
	if err != nil {
		return res, err
	}

	if !opts.SkipProfiles {
		pub := profiles.NewPublisher(opts.ProfilesRoot)
		for _, u := range cfg.Users {
			if perr := pub.Publish(u); perr != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("profile for %s not published: %v", u.Name, perr))
			}
		}
	}
	return res, nil
}

// Preview computes the plan a pass would execute, without mutating
// anything. Fatal violations and a failed managed listing abort exactly
// as in Pass.
func Preview(ctx context.Context, cfg *config.Config, sys System, opts Options) (plan.Plan, error) {
	violations := check.Run(cfg)
	if check.AnyFatal(violations) {
		return plan.Plan{}, &ValidationError{Violations: violations}
	}
	observed, err := sys.ObservedManaged(ctx)
	if err != nil {
		if !opts.ForceEmptyObserved {
			return plan.Plan{}, fmt.Errorf("managed state unavailable, refusing to assume it is empty: %w", err)
		}
		observed = plan.Observed{}
	}
	return plan.Compute(userNames(cfg), groupNames(cfg), observed, cfg.Settings.MutableUsers), nil
}

// tokenCandidates bounds the secure-token scan to accounts that exist
// in the directory: current admins plus declared users already in the
// managed set. Declared accounts that are yet to be created have no
// token to query.
func tokenCandidates(cfg *config.Config, admins []string, observed plan.Observed) []string {
	managed := map[string]bool{}
	for _, n := range observed.Users {
		managed[n] = true
	}
	seen := map[string]bool{}
	var out []string
	for _, a := range admins {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, u := range cfg.Users {
		if managed[u.Name] && !seen[u.Name] {
			seen[u.Name] = true
			out = append(out, u.Name)
		}
	}
	return out
}

func userNames(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		out = append(out, u.Name)
	}
	return out
}

func groupNames(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		out = append(out, g.Name)
	}
	return out
}

func logPlan(log zerolog.Logger, p plan.Plan) {
	log.Info().
		Strs("create_users", p.Users.Create).
		Strs("update_users", p.Users.Update).
		Strs("delete_users", p.Users.Delete).
		Strs("create_groups", p.Groups.Create).
		Strs("update_groups", p.Groups.Update).
		Strs("delete_groups", p.Groups.Delete).
		Msg("computed plan")
}

// IsValidationError reports whether err is a rejected-configuration
// error, for exit-code mapping in the CLI.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
