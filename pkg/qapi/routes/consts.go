package routes

type Tag string

const (
	TagHealth         Tag = "health"
	TagPostProcessing Tag = "post-processing"
	TagSequencingRuns Tag = "sequencing-runs"
)

func (t Tag) String() string { return string(t) }
