package queue

// Counts aggregates queue items by status.
type Counts struct {
	Pending   int `json:"pending"`
	Syncing   int `json:"syncing"`
	Failed    int `json:"failed"`
	Completed int `json:"completed"`
}

// Count tallies items by status.
func Count(items []*Item) Counts {
	var c Counts
	for _, item := range items {
		switch item.Status {
		case StatusPending:
			c.Pending++
		case StatusSyncing:
			c.Syncing++
		case StatusFailed:
			c.Failed++
		case StatusCompleted:
			c.Completed++
		}
	}
	return c
}
