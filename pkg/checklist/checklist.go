package checklist

import (
	"fmt"
	"strings"
)

// Task is a single onboarding checklist item. Tasks belong to named
// groups ("Paperwork", "Culture", ...) which are rendered as separate
// checkbox sections, and toggled as a unit.
type Task struct {
	ID    string `toml:"id"`
	Label string `toml:"label"`
	Group string `toml:"group"`
}

// Resources are the links and contact points displayed
// at the bottom of every checklist view.
type Resources struct {
	HandbookURL          string `toml:"handbook_url"`
	BrandCenterURL       string `toml:"brand_center_url"`
	PDRecordingsURL      string `toml:"pd_recordings_url"`
	StaffDirectoryURL    string `toml:"staff_directory_url"`
	AllTeamChannel       string `toml:"all_team_channel"`
	AnnouncementsChannel string `toml:"announcements_channel"`
	AdminEmail           string `toml:"admin_email"`
}

// Checklist is an ordered set of onboarding tasks, plus the resources
// footer. The task order defines both the group order and the task
// order within each group.
type Checklist struct {
	Title     string    `toml:"title"`
	Welcome   string    `toml:"welcome"`
	Tasks     []Task    `toml:"tasks"`
	Resources Resources `toml:"resources"`
}

// Len returns the total number of tasks.
func (c *Checklist) Len() int {
	return len(c.Tasks)
}

// IDs returns all task IDs, in checklist order.
func (c *Checklist) IDs() []string {
	ids := make([]string, len(c.Tasks))
	for i, t := range c.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// GroupNames returns the group names in order of first appearance.
func (c *Checklist) GroupNames() []string {
	var names []string
	seen := map[string]bool{}
	for _, t := range c.Tasks {
		if !seen[t.Group] {
			seen[t.Group] = true
			names = append(names, t.Group)
		}
	}
	return names
}

// Group returns the tasks of the named group, in checklist order.
// The name comparison is case-insensitive, because group names are
// round-tripped through lowercase Block Kit action IDs.
func (c *Checklist) Group(name string) []Task {
	var tasks []Task
	for _, t := range c.Tasks {
		if strings.EqualFold(t.Group, name) {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// validate rejects checklists that would produce
// an invalid Slack view or ambiguous progress rows.
func (c *Checklist) validate() error {
	if len(c.Tasks) == 0 {
		return fmt.Errorf("checklist has no tasks")
	}

	seen := map[string]bool{}
	for i, t := range c.Tasks {
		if t.ID == "" || t.Label == "" || t.Group == "" {
			return fmt.Errorf("task #%d: id, label, and group are all required", i+1)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate task ID: %q", t.ID)
		}
		seen[t.ID] = true
	}

	return nil
}
