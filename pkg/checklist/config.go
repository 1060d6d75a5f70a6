package checklist

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Load reads a checklist definition from a TOML file. An empty path
// returns the built-in default checklist.
func Load(path string) (*Checklist, error) {
	if path == "" {
		return Default(), nil
	}

	// Fields left out of the file fall back to the built-in defaults.
	c := Default()
	c.Tasks = nil
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("failed to read checklist file %q: %w", path, err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid checklist file %q: %w", path, err)
	}

	return c, nil
}

// Default returns the built-in TMS onboarding checklist.
func Default() *Checklist {
	r := Resources{
		HandbookURL:          "https://docs.google.com/document/d/1711C6vSp4r4EHZw5MbgYuy-LkxrPF-2o69fHCCgU0fQ/edit?usp=sharing",
		BrandCenterURL:       "https://drive.google.com/file/d/1hTp4w1ufmJVgNkzYxsOLjcdI9kBvro1X/view?usp=sharing",
		PDRecordingsURL:      "https://drive.google.com/drive/folders/1VkBMVvdlG0IofZ7_RKB4dMT0aXEzsxew?usp=drive_link",
		StaffDirectoryURL:    "https://docs.google.com/spreadsheets/d/1_7uLjg20Oy-ajgQCVdtozPTiWnO5pgdniR3lpKqRjw0/edit?usp=sharing",
		AllTeamChannel:       "<#allthemovementstreet>",
		AnnouncementsChannel: "<#announcements>",
		AdminEmail:           "admin@themovementstreet.org",
	}

	return &Checklist{
		Title: "TMS Onboarding Checklist",
		Welcome: "Welcome to The Movement Street. Check items as you complete them. " +
			"Your progress saves automatically.",
		Resources: r,
		Tasks: []Task{
			// Step 1: Paperwork & Documents.
			{ID: "welcome_letter", Label: "Sign Welcome Letter", Group: "Paperwork"},
			{ID: "nda", Label: "Sign NDA", Group: "Paperwork"},
			{ID: "offer_letter", Label: "Sign Offer Letter", Group: "Paperwork"},
			{ID: "volunteer_agreement", Label: "Sign Volunteer Agreement", Group: "Paperwork"},
			{ID: "contract", Label: "Sign Contract (duties and responsibilities)", Group: "Paperwork"},
			{ID: "upload_docs", Label: "Upload docs & share with " + r.AdminEmail, Group: "Paperwork"},

			// Step 2: Onboarding & Integration.
			{ID: "staff_directory", Label: "Review Staff Directory", Group: "Integration"},
			{ID: "chapter_handbook", Label: "Read Chapter Handbook", Group: "Integration"},
			{ID: "brand_center", Label: "Explore Brand Center", Group: "Integration"},
			{ID: "pd_recordings", Label: "Watch Professional Development Recordings", Group: "Integration"},

			// Step 3: Workflow & Role Setup.
			{ID: "role_checklist", Label: "Review your role-specific checklist", Group: "Workflow"},
			{ID: "setup_workflow", Label: "Set up your role workflows and tools", Group: "Workflow"},

			// Step 4: Connection & Culture.
			{ID: "coffee_chat_1", Label: "Coffee Chat #1 with a TMS team member", Group: "Culture"},
			{ID: "coffee_chat_2", Label: "Coffee Chat #2 with a TMS team member", Group: "Culture"},
			{ID: "coffee_chat_3", Label: "Coffee Chat #3 with a TMS team member", Group: "Culture"},
		},
	}
}
