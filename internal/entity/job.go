package entity

// JobConfig is a caller-side job definition the extracted labels are mapped onto.
type JobConfig struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// JobAlias maps an alternative roster label onto a job id.
type JobAlias struct {
	Alias string `json:"alias" yaml:"alias"`
	JobID string `json:"jobId" yaml:"job_id"`
}
