// Package profiles wires per-user package sets into profile paths
// under /etc/profiles/per-user. It sits outside the reconciliation
// core: failures here are surfaced as warnings, never abort a pass.
package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dlubawy/nix-darwin/internal/config"
	"github.com/dlubawy/nix-darwin/internal/sysfs"
)

const DefaultRoot = "/etc/profiles/per-user"

type Publisher struct {
	Root string
}

func NewPublisher(root string) *Publisher {
	if root == "" {
		root = DefaultRoot
	}
	return &Publisher{Root: root}
}

// Publish writes the user's profile environment: a manifest of the
// declared packages and an env.sh putting the per-user bin directory on
// PATH. Users without packages get nothing and lose any previously
// published profile only when their account is deleted.
func (p *Publisher) Publish(u config.User) error {
	if len(u.Packages) == 0 {
		return nil
	}
	dir := filepath.Join(p.Root, u.Name)
	if err := sysfs.EnsureDir(dir, 0755); err != nil {
		return fmt.Errorf("profile dir for %s: %w", u.Name, err)
	}

	manifest := strings.Join(u.Packages, "\n") + "\n"
	if err := sysfs.WriteFileAtomic(filepath.Join(dir, "packages"), []byte(manifest), 0644); err != nil {
		return fmt.Errorf("profile manifest for %s: %w", u.Name, err)
	}

	env := fmt.Sprintf("export PATH=%q:$PATH\n", filepath.Join(dir, "bin"))
	if err := sysfs.WriteFileAtomic(filepath.Join(dir, "env.sh"), []byte(env), 0644); err != nil {
		return fmt.Errorf("profile env for %s: %w", u.Name, err)
	}

	if u.UID != nil {
		gid := 20
		if u.GID != nil {
			gid = *u.GID
		}
		_ = os.Chown(dir, *u.UID, gid)
	}
	return nil
}
