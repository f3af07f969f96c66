package constant

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

func (s JobStatus) String() string {
	return string(s)
}

// legalTransitions is the whole state machine. PENDING is either claimed by
// the trigger or rejected before the engine runs; IN_PROGRESS resolves to a
// terminal state; COMPLETED and FAILED have no successors.
var legalTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusInProgress, JobStatusFailed},
	JobStatusInProgress: {JobStatusCompleted, JobStatusFailed},
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Metadata field names attached to the upload slot and carried back on the
// object-created notification. S3-compatible stores lower-case them on the
// wire, so lookups must be case-insensitive.
const (
	MetadataKeyFileId       = "fileId"
	MetadataKeyLanguageCode = "languageCode"
)

const (
	InputKeyPrefix  = "input/"
	OutputKeyPrefix = "output/"
)

// supportedLanguages is the fixed set of target language codes accepted at
// intake.
var supportedLanguages = map[string]struct{}{
	"ar": {},
	"de": {},
	"en": {},
	"es": {},
	"fr": {},
	"hi": {},
	"it": {},
	"ja": {},
	"ko": {},
	"pt": {},
	"zh": {},
}

func IsSupportedLanguage(code string) bool {
	_, ok := supportedLanguages[code]
	return ok
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
