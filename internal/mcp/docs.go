package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `spacer schedules flashcards with SM-2 plus a short learning phase.

Concepts:
- Note: a file-like container (path, tags) that owns cards.
- Card: prompt and answer. A card has no scheduling state until its first review.
- Quality: 0-5. Below 3 is a lapse and puts the card into the learning phase
  (10 then 30 minutes by default). 3 or more graduates it or grows its interval.

Workflow:
1) register_card (note_path defaults to Inbox).
2) start_review_session, then answer_review once per card until done is true.
   Or rate cards directly with submit_review.
3) list_due / list_scheduled / list_new / forecast to inspect the schedule.
4) stop_scheduling removes a card from the schedule; its history is kept.

Errors are JSON objects with code, message and recovery_hint.
Read spacer://docs/scheduling for the rating scale and interval rules.
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "spacer://docs/scheduling",
		Name:        "scheduling",
		Title:       "Rating scale and scheduling phases",
		Description: "How quality ratings move a card through the learning and review phases",
		Content: `# Scheduling

## Rating scale

| Quality | Meaning |
|---|---|
| 0 | Complete blackout |
| 1 | Wrong, but the answer looked familiar once shown |
| 2 | Wrong, but the answer felt easy to recall once shown |
| 3 | Correct with serious difficulty |
| 4 | Correct after some hesitation |
| 5 | Perfect recall |

## Phases

- **New**: registered, never reviewed. No state and no due date.
- **Learning**: entered by any rating below 3. The card is due again after the
  current learning step (10 minutes, then 30 minutes, then 30 minutes again).
  Easiness is not changed by a lapse.
- **Review**: a rating of 3 or more graduates a learning card with a one day
  interval. Afterwards intervals grow 1, 6, then previous interval multiplied
  by the easiness factor, rounded to whole days.
- **Stopped**: stop_scheduling deactivates the card and clears its due date.
  The next rating reactivates it.

## Easiness

Every successful rating updates the easiness factor:
ef + 0.1 - (5 - q) * (0.08 + (5 - q) * 0.02), floored at 1.3 and rounded to two
decimals. New cards start at 2.5.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
