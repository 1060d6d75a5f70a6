package bot

import (
	"fmt"
	"strings"

	"github.com/tmstreet/onboardbot/pkg/checklist"
	"github.com/tmstreet/onboardbot/pkg/slack"
)

// homeView renders the user's checklist as an App Home view: overall
// progress, one checkbox group per task group (with its own mini count),
// and a resources footer.
func (b *bot) homeView(done map[string]bool) slack.View {
	cl := b.checklist

	blocks := []slack.Block{
		slack.HeaderBlock(cl.Title),
		slack.SectionBlock(cl.Welcome),
		slack.SectionBlock(fmt.Sprintf("*Progress:* %d/%d completed", len(done), cl.Len())),
	}

	for _, group := range cl.GroupNames() {
		tasks := cl.Group(group)

		doneCount := 0
		options := make([]slack.Option, len(tasks))
		var initial []slack.Option
		for i, task := range tasks {
			options[i] = slack.Option{Text: slack.PlainText(task.Label), Value: task.ID}
			if done[task.ID] {
				doneCount++
				initial = append(initial, options[i])
			}
		}

		blocks = append(blocks,
			slack.SectionBlock(fmt.Sprintf("*%s* (%d/%d)", group, doneCount, len(tasks))),
			slack.ActionsBlock(&slack.CheckboxElement{
				Type:     "checkboxes",
				ActionID: actionPrefix + strings.ToLower(group),
				Options:  options,
				// Left nil when the user checked nothing in this
				// group: Slack rejects empty "initial_options".
				InitialOptions: initial,
			}),
		)
	}

	blocks = append(blocks, slack.ContextBlock("Resources: "+resourcesLine(cl.Resources)))

	return slack.View{Type: "home", Blocks: blocks}
}

// resourcesLine formats the non-empty resource links
// as a single mrkdwn line.
func resourcesLine(r checklist.Resources) string {
	var parts []string

	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	link := func(url, label string) string {
		if url == "" {
			return ""
		}
		return fmt.Sprintf("<%s|%s>", url, label)
	}

	add(r.AllTeamChannel)
	add(r.AnnouncementsChannel)
	add(link(r.HandbookURL, "Handbook"))
	add(link(r.BrandCenterURL, "Brand Center"))
	add(link(r.PDRecordingsURL, "PD Recordings"))
	add(link(r.StaffDirectoryURL, "Staff Directory"))

	return strings.Join(parts, " • ")
}
