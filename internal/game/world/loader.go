package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/stylewatch/internal/game/geom"
)

// yamlArenaFile is the top-level YAML structure for arena files.
type yamlArenaFile struct {
	Arena yamlArena `yaml:"arena"`
}

// yamlArena is the YAML representation of an arena.
type yamlArena struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Plane     int            `yaml:"plane"`
	Bounds    yamlRect       `yaml:"bounds"`
	Obstacles []yamlObstacle `yaml:"obstacles"`
}

type yamlRect struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// yamlObstacle is either a single tile or a rectangle when width/height are set.
type yamlObstacle struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// LoadArenaFromFile reads and validates a single arena YAML file.
//
// Precondition: path must point to a valid YAML arena file.
// Postcondition: Returns a validated Arena or a non-nil error.
func LoadArenaFromFile(path string) (*Arena, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading arena file %s: %w", path, err)
	}
	return LoadArenaFromBytes(data)
}

// LoadArenaFromBytes parses and validates an arena from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the arena schema.
// Postcondition: Returns a validated Arena or a non-nil error.
func LoadArenaFromBytes(data []byte) (*Arena, error) {
	var file yamlArenaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing arena YAML: %w", err)
	}

	arena := convertYAMLArena(file.Arena)
	if err := arena.Validate(); err != nil {
		return nil, fmt.Errorf("validating arena: %w", err)
	}
	arena.index()
	return arena, nil
}

// LoadArenasFromDir loads all YAML files in a directory as arenas.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated arenas or the first error encountered.
func LoadArenasFromDir(dir string) ([]*Arena, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading arena directory %s: %w", dir, err)
	}

	var arenas []*Arena
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		arena, err := LoadArenaFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading arena from %s: %w", name, err)
		}
		arenas = append(arenas, arena)
	}

	if len(arenas) == 0 {
		return nil, fmt.Errorf("no arena files found in %s", dir)
	}
	return arenas, nil
}

// convertYAMLArena converts the parsed YAML structures into domain types.
func convertYAMLArena(ya yamlArena) *Arena {
	arena := &Arena{
		ID:     ya.ID,
		Name:   ya.Name,
		Bounds: geom.NewArea(ya.Bounds.X, ya.Bounds.Y, ya.Bounds.Width, ya.Bounds.Height, ya.Plane),
	}
	for _, yo := range ya.Obstacles {
		arena.Obstacles = append(arena.Obstacles, geom.NewArea(yo.X, yo.Y, yo.Width, yo.Height, ya.Plane))
	}
	return arena
}
