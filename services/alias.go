package services

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"g7kaih_go/models"

	"github.com/sirupsen/logrus"
)

// AliasGroup is an admin-curated set of account ids known to be the same
// physical person. Groups are loaded from configuration, never inferred from
// data, and the underlying account rows are never merged.
type AliasGroup struct {
	Primary uint   `json:"primary"`
	Members []uint `json:"members"`
}

// StudentStats is the per-identifier aggregate reporting works with.
type StudentStats struct {
	Count        int             `json:"count"`
	LastActivity *time.Time      `json:"last_activity,omitempty"`
	Categories   map[string]bool `json:"-"`
}

// CategoryList returns the category set sorted for stable output.
func (s StudentStats) CategoryList() []string {
	out := make([]string, 0, len(s.Categories))
	for c := range s.Categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// AliasResolver expands id sets with verified duplicates and folds their
// statistics into each group's primary identifier.
type AliasResolver struct {
	groups    []AliasGroup
	primaryOf map[uint]uint
}

func NewAliasResolver(groups []AliasGroup) *AliasResolver {
	r := &AliasResolver{
		groups:    groups,
		primaryOf: make(map[uint]uint),
	}
	for _, g := range groups {
		r.primaryOf[g.Primary] = g.Primary
		for _, m := range g.Members {
			r.primaryOf[m] = g.Primary
		}
	}
	return r
}

// LoadAliasGroups reads the alias configuration file. A missing file is not
// an error: the resolver simply runs with no groups.
func LoadAliasGroups(path string) []AliasGroup {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", path).Warn("failed to read alias file")
		}
		return nil
	}

	var groups []AliasGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("invalid alias file, ignoring")
		return nil
	}
	logrus.WithFields(logrus.Fields{"path": path, "groups": len(groups)}).Info("loaded alias groups")
	return groups
}

// Expand grows the input set with every member (and primary) of any alias
// group that intersects it. Pure set union; nothing is ever removed.
func (r *AliasResolver) Expand(ids []uint) []uint {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	for _, g := range r.groups {
		hit := set[g.Primary]
		for _, m := range g.Members {
			if set[m] {
				hit = true
				break
			}
		}
		if hit {
			set[g.Primary] = true
			for _, m := range g.Members {
				set[m] = true
			}
		}
	}

	out := make([]uint, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// PrimaryOf maps an identifier onto its alias group's primary, or itself
// when it belongs to no group.
func (r *AliasResolver) PrimaryOf(id uint) uint {
	if p, ok := r.primaryOf[id]; ok {
		return p
	}
	return id
}

// Aggregate folds every alias member's stats into its group primary: counts
// sum, last activity keeps the max, category sets union. Identifiers outside
// any group pass through unchanged.
func (r *AliasResolver) Aggregate(statsByID map[uint]StudentStats) map[uint]StudentStats {
	out := make(map[uint]StudentStats, len(statsByID))

	ids := make([]uint, 0, len(statsByID))
	for id := range statsByID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	for _, id := range ids {
		stats := statsByID[id]
		primary := r.PrimaryOf(id)

		merged, ok := out[primary]
		if !ok {
			merged = StudentStats{Categories: make(map[string]bool)}
		}
		merged.Count += stats.Count
		if stats.LastActivity != nil {
			if merged.LastActivity == nil || stats.LastActivity.After(*merged.LastActivity) {
				last := *stats.LastActivity
				merged.LastActivity = &last
			}
		}
		for c := range stats.Categories {
			merged.Categories[c] = true
		}
		out[primary] = merged
	}
	return out
}

// DedupeForDisplay keeps only the first-seen profile per alias-group
// primary. Secondary members are folded into the primary's stats by
// Aggregate but never shown as separate entries.
func (r *AliasResolver) DedupeForDisplay(profiles []models.UserProfile) []models.UserProfile {
	seen := make(map[uint]bool, len(profiles))
	out := make([]models.UserProfile, 0, len(profiles))
	for _, p := range profiles {
		primary := r.PrimaryOf(p.ID)
		if seen[primary] {
			continue
		}
		seen[primary] = true
		out = append(out, p)
	}
	return out
}
