package postprocess

// Stage is how far one run got through the pipeline.
type Stage int

const (
	StageNotStarted Stage = iota
	StageNameParsed
	StageValidated
	StageStored
	StageFilesRegistered
	StageComplete
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageNotStarted:
		return "not_started"
	case StageNameParsed:
		return "name_parsed"
	case StageValidated:
		return "validated"
	case StageStored:
		return "stored"
	case StageFilesRegistered:
		return "files_registered"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}
