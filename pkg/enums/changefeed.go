package enums

// ChangeOp identifies the row-level mutation carried by a change feed event.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// RefetchTrigger labels why a repository refetch was issued.
type RefetchTrigger string

const (
	TriggerInitial    RefetchTrigger = "initial"
	TriggerChangeFeed RefetchTrigger = "changefeed"
	TriggerExtension  RefetchTrigger = "extension"
	TriggerCompletion RefetchTrigger = "completion"
	TriggerManual     RefetchTrigger = "manual"
)
