package shared

// ServiceName tags log lines and error reports.
const ServiceName = "pullup-counter"

// Processing step numbers used in progress updates. Percent ranges per
// step live in the progress manager.
const (
	StepFrameExtraction = 1
	StepAIAnalysis      = 2
	StepVideoGeneration = 3
	StepSavingResults   = 4
)
