package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VenueSeed describes one venue's access rules as loaded from the venue
// seed file. The storage layer inserts missing venues at startup so the
// venues table always reflects the current rule set.
type VenueSeed struct {
	Name          string   `yaml:"name"`
	AllowedRoles  []string `yaml:"allowed_roles"`
	AllowedCCAs   []string `yaml:"allowed_ccas"`
	AllowedBlocks []string `yaml:"allowed_blocks"`
}

// LoadVenueSeeds reads venue definitions from a YAML file. An empty path
// returns the built-in defaults.
func LoadVenueSeeds(path string) ([]VenueSeed, error) {
	if path == "" {
		return DefaultVenueSeeds(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read venue seed file: %w", err)
	}

	var doc struct {
		Venues []VenueSeed `yaml:"venues"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse venue seed file %s: %w", path, err)
	}
	if len(doc.Venues) == 0 {
		return nil, fmt.Errorf("venue seed file %s defines no venues", path)
	}

	for _, v := range doc.Venues {
		if v.Name == "" {
			return nil, fmt.Errorf("venue seed file %s contains a venue without a name", path)
		}
	}
	return doc.Venues, nil
}

// DefaultVenueSeeds mirrors the hall's standing venue list: the two
// approval-gated common rooms, the two auto-confirm venues, and one
// lounge per residential block.
func DefaultVenueSeeds() []VenueSeed {
	allRoles := []string{"Admin", "JCRC", "Captain", "Chairman", "Block Head", "Resident"}

	seeds := []VenueSeed{
		{Name: "Reading Room", AllowedRoles: allRoles},
		{Name: "Dining Hall", AllowedRoles: allRoles},
		{Name: "MPSH", AllowedRoles: []string{"Admin", "JCRC", "Captain"}, AllowedCCAs: []string{"Badminton", "Volleyball", "Table Tennis", "Floorball", "Takraw", "Sports D"}},
		{Name: "Band Room", AllowedRoles: []string{"Admin", "JCRC", "Chairman"}, AllowedCCAs: []string{"Rockers", "Inspire", "Culture D"}},
	}
	for _, blk := range []string{"A Blk", "B Blk", "C Blk", "D Blk", "E Blk"} {
		seeds = append(seeds, VenueSeed{
			Name:          blk + " Lounge",
			AllowedRoles:  []string{"Admin", "JCRC", "Block Head"},
			AllowedBlocks: []string{blk},
		})
	}
	return seeds
}
