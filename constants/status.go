package constants

// Stage is the canonical pipeline stage for an upload request.
type Stage string

// Stable values (store these exact strings in the submissions table).
const (
	StageReceived  Stage = "RECEIVED"  // request accepted, nothing checked yet
	StageValidated Stage = "VALIDATED" // name/type/size checks passed
	StageIngested  Stage = "INGESTED"  // buffered or spilled to temp storage
	StageExtracted Stage = "EXTRACTED" // all four fields located
	StageReported  Stage = "REPORTED"  // data submission acknowledged
	StageUploaded  Stage = "UPLOADED"  // file submission acknowledged
	StageCompleted Stage = "COMPLETED" // terminal success
)

// Strategy is how the upload was held during processing.
type Strategy string

const (
	StrategyInMemory Strategy = "in_memory"
	StrategySpilled  Strategy = "spilled"
)
