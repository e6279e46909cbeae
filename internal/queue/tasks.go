package queue

// Archive tasks carry one metrics record each, JSON encoded as
// models.Interaction or models.ErrorEvent.
const (
	TypeInteractionArchive = "metrics:interaction:archive"
	TypeErrorArchive       = "metrics:error:archive"
)

const QueueArchive = "archive"
