package entity

// ExtractedFrame is a still image the sampler produced, before analysis.
type ExtractedFrame struct {
	Path          string
	OffsetSeconds float64
	Resolution    string
}

type SamplingResult struct {
	Duration  float64
	Attempted int
	Frames    []ExtractedFrame
}

// AnalysisResult holds the zone results for one extracted frame, in the
// order the zones were dispatched.
type AnalysisResult struct {
	Frame   ExtractedFrame
	Results []DetectionResult
}

// Thresholds are the confidence values passed to every engine call of a run.
type Thresholds struct {
	Frame float64
	Zone  float64
}

// RunReport accumulates stage results so a caller can inspect how far a run
// got, whatever its final status.
type RunReport struct {
	Sampling      *SamplingResult
	Analyses      []AnalysisResult
	FramesSaved   int
	UnknownTables int
}
