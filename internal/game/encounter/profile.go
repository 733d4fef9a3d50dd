// Package encounter runs the per-tick inference pipeline for one multi-attacker encounter:
// it tracks every hostile actor's hidden rotation, the friendly actors in range, projectile
// sightings, and attacks awaiting confirmation.
package encounter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/stylewatch/internal/game/classify"
)

// Animations holds the animation ids of one hostile type.
type Animations struct {
	Melee  int `yaml:"melee"`
	Ranged int `yaml:"ranged"`
	Magic  int `yaml:"magic"`
	// Shared is played for both the area attack and a prayer switch.
	Shared int `yaml:"shared"`
}

// Projectiles holds the projectile graphic ids of one hostile type.
type Projectiles struct {
	Ranged int `yaml:"ranged"`
	Magic  int `yaml:"magic"`
	// Area is the falling projectile of the area attack; its source is the impact point.
	Area int `yaml:"area"`
}

// Profile describes which observations belong to one hostile type.
type Profile struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	NPCIDs      []int       `yaml:"npc_ids"`
	Animations  Animations  `yaml:"animations"`
	Projectiles Projectiles `yaml:"projectiles"`
}

// DefaultProfile returns the demonic gorilla profile.
func DefaultProfile() Profile {
	return Profile{
		ID:          "demonic_gorilla",
		Name:        "Demonic gorilla",
		NPCIDs:      []int{7144, 7145, 7146, 7147, 7148, 7149, 7152, 7153, 7154},
		Animations:  Animations{Melee: 7226, Ranged: 7227, Magic: 7225, Shared: 7228},
		Projectiles: Projectiles{Ranged: 1302, Magic: 1304, Area: 856},
	}
}

// Validate checks the profile invariants.
//
// Postcondition: Returns nil iff ID is non-empty and every animation and projectile id is
// positive and distinct within its group; otherwise an error listing every violation.
func (p Profile) Validate() error {
	var errs []string
	if p.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	anims := map[string]int{
		"animations.melee": p.Animations.Melee, "animations.ranged": p.Animations.Ranged,
		"animations.magic": p.Animations.Magic, "animations.shared": p.Animations.Shared,
	}
	projs := map[string]int{
		"projectiles.ranged": p.Projectiles.Ranged, "projectiles.magic": p.Projectiles.Magic,
		"projectiles.area": p.Projectiles.Area,
	}
	for _, group := range []map[string]int{anims, projs} {
		seen := make(map[int]string, len(group))
		keys := make([]string, 0, len(group))
		for k := range group {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			v := group[k]
			if v <= 0 {
				errs = append(errs, fmt.Sprintf("%s must be > 0, got %d", k, v))
				continue
			}
			if other, dup := seen[v]; dup {
				errs = append(errs, fmt.Sprintf("%s duplicates %s (%d)", k, other, v))
			}
			seen[v] = k
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("profile %q: %s", p.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Tracks reports whether npcID belongs to this profile. An empty id list tracks every npc.
func (p Profile) Tracks(npcID int) bool {
	return len(p.NPCIDs) == 0 || slices.Contains(p.NPCIDs, npcID)
}

// IDs returns the classifier identifiers of the profile.
func (p Profile) IDs() classify.IDs {
	return classify.IDs{
		MeleeAnimation:   p.Animations.Melee,
		RangedAnimation:  p.Animations.Ranged,
		MagicAnimation:   p.Animations.Magic,
		SharedAnimation:  p.Animations.Shared,
		RangedProjectile: p.Projectiles.Ranged,
		MagicProjectile:  p.Projectiles.Magic,
	}
}

// LoadProfileFromBytes parses and validates a profile from YAML.
//
// Postcondition: Returns a validated Profile or a non-nil error.
func LoadProfileFromBytes(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadProfile reads a profile file. An empty path yields DefaultProfile.
//
// Postcondition: Returns a validated Profile or a non-nil error.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	p, err := LoadProfileFromBytes(data)
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile %s: %w", filepath.Base(path), err)
	}
	return p, nil
}

// ErrNoProfiles is returned by LoadProfilesFromDir when a directory holds no profiles.
var ErrNoProfiles = errors.New("no profile files found")

// LoadProfilesFromDir loads every *.yaml or *.yml profile in dir.
//
// Postcondition: Returns all validated profiles or the first error encountered.
func LoadProfilesFromDir(dir string) ([]Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile directory %s: %w", dir, err)
	}
	var out []Profile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		p, err := LoadProfile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoProfiles)
	}
	return out, nil
}
