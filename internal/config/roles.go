package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/hexvault/warden/resources"
)

// Roles maps guild role names to role IDs. It is loaded once at startup and
// handed to each service that needs it, so tests can build their own fixture
// instead of reading ambient state.
type Roles struct {
	Muted         int64            `yaml:"muted"`
	Verified      int64            `yaml:"verified"`
	Staff         []int64          `yaml:"staff"`
	Ranks         map[string]int64 `yaml:"ranks"`
	Positions     map[string]int64 `yaml:"positions"`
	Subscriptions map[string]int64 `yaml:"subscriptions"`
	Creators      map[string]int64 `yaml:"creators"`
}

// LoadRoles reads the role table from path, falling back to the embedded
// default table when path is empty.
func LoadRoles(path string) (*Roles, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = resources.FS.ReadFile("roles.yml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read roles table: %w", err)
	}

	roles := &Roles{}
	if err := yaml.Unmarshal(data, roles); err != nil {
		return nil, fmt.Errorf("unmarshal roles table: %w", err)
	}
	return roles, nil
}

// IsStaff reports whether any of the given role IDs belongs to the staff set.
func (r *Roles) IsStaff(roleIDs []int64) bool {
	if r == nil {
		return false
	}
	staff := make(map[int64]struct{}, len(r.Staff))
	for _, id := range r.Staff {
		staff[id] = struct{}{}
	}
	for _, id := range roleIDs {
		if _, ok := staff[id]; ok {
			return true
		}
	}
	return false
}

// RankAndPositionIDs returns every configured rank and leaderboard role ID.
// Identity sync strips these before re-assigning the current ones.
func (r *Roles) RankAndPositionIDs() []int64 {
	if r == nil {
		return nil
	}
	ids := make([]int64, 0, len(r.Ranks)+len(r.Positions))
	for _, id := range r.Ranks {
		if id != 0 {
			ids = append(ids, id)
		}
	}
	for _, id := range r.Positions {
		if id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
