package ingest

// Stage names the pipeline step where an ingestion failed.
type Stage string

const (
	StageParse Stage = "parse"
	StageChunk Stage = "chunk"
	StageEmbed Stage = "embed"
	StageStore Stage = "store"
)

// StageError wraps a pipeline failure with the stage it happened in. The
// underlying sentinel stays reachable through Unwrap.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return "ingest " + string(e.Stage) + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }
