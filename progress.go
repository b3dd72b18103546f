package pkgpack

// ProgressEvent reports how far a packing operation has come.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the archive entry being written, if applicable.
	Path string

	// BytesDone is the number of compressed bytes written so far.
	BytesDone int64

	// FilesDone is the number of entries completed in this stage.
	FilesDone int

	// FilesTotal is the total number of entries in this stage.
	// Zero indicates the total is unknown.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages, in the order a pack runs them.
const (
	// StageWalking indicates the package tree has been listed.
	StageWalking ProgressStage = iota

	// StageClassifying indicates every walked path has been decided.
	StageClassifying

	// StageBundling indicates dependency sources have been collected.
	StageBundling

	// StageWriting indicates archive entries are being written.
	StageWriting
)

// String returns the stage name.
func (s ProgressStage) String() string {
	switch s {
	case StageWalking:
		return "walking"
	case StageClassifying:
		return "classifying"
	case StageBundling:
		return "bundling"
	case StageWriting:
		return "writing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates. Events are delivered from the
// goroutine running the operation, one at a time.
type ProgressFunc func(ProgressEvent)

// reportProgress sends a progress event if a callback is configured.
func (p *Packer) reportProgress(ev ProgressEvent) {
	if p.progress == nil {
		return
	}
	p.progress(ev)
}
