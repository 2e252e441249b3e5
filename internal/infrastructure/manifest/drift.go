package manifest

import (
	"errors"
	"io/fs"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/b-harvest/relbuild/internal/domain/release"
)

// Drift compares every manifest under root against Cargo.lock and returns
// the dependencies the lockfile no longer satisfies. A missing lockfile is a
// single drift entry for the lockfile itself.
func Drift(root string) ([]release.LockDrift, error) {
	manifests, err := LoadManifests(root)
	if err != nil {
		return nil, err
	}
	lock, err := LoadLockfile(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []release.LockDrift{{Name: LockFile, Declared: "present"}}, nil
		}
		return nil, err
	}

	workspaceDeps := manifests[0].WorkspaceDependencies()
	seen := map[string]bool{}
	var drifts []release.LockDrift
	add := func(d release.LockDrift) {
		id := d.Name + "\x00" + d.Declared
		if !seen[id] {
			seen[id] = true
			drifts = append(drifts, d)
		}
	}

	for _, m := range manifests {
		if name, version, ok := m.Package(); ok && version != "" {
			locked, found := lock.LocalVersion(name)
			if !found || locked != version {
				add(release.LockDrift{Name: name, Declared: version, Locked: locked})
			}
		}

		for _, dep := range m.Dependencies() {
			if dep.Workspace {
				if ws, ok := workspaceDeps[dep.Key]; ok {
					dep.Name = ws.Name
					dep.Requirement = ws.Requirement
				}
			}

			versions := lock.Versions(dep.Name)
			if len(versions) == 0 {
				add(release.LockDrift{Name: dep.Name, Declared: declared(dep)})
				continue
			}
			if dep.Requirement == "" {
				continue
			}
			if !anySatisfies(dep.Requirement, versions) {
				add(release.LockDrift{Name: dep.Name, Declared: dep.Requirement, Locked: strings.Join(versions, ", ")})
			}
		}
	}

	sort.Slice(drifts, func(i, j int) bool { return drifts[i].Name < drifts[j].Name })
	return drifts, nil
}

func declared(dep Dependency) string {
	switch {
	case dep.Requirement != "":
		return dep.Requirement
	case dep.Path:
		return "path"
	case dep.Git:
		return "git"
	default:
		return "*"
	}
}

// anySatisfies reports whether some locked version meets a Cargo requirement.
// Requirements that cannot be parsed are treated as satisfied; cargo itself
// reports those with a better message.
func anySatisfies(requirement string, versions []string) bool {
	c, err := semver.NewConstraint(CargoConstraint(requirement))
	if err != nil {
		return true
	}
	for _, v := range versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		if c.Check(sv) {
			return true
		}
	}
	return false
}

// CargoConstraint rewrites a Cargo version requirement into semver constraint
// syntax: a bare version is a caret requirement in Cargo.
func CargoConstraint(req string) string {
	parts := strings.Split(req, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p[0] >= '0' && p[0] <= '9' {
			p = "^" + p
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, ", ")
}
