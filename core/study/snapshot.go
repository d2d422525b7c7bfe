package study

// Snapshot is the serializable state of a Catalog.
type Snapshot struct {
	Subjects []SubjectSnapshot `json:"subjects" yaml:"subjects"`
}

type SubjectSnapshot struct {
	Code      string         `json:"code" yaml:"code"`
	Languages []PoolSnapshot `json:"languages" yaml:"languages"`
}

type PoolSnapshot struct {
	Language    string    `json:"language" yaml:"language"`
	NextGroupID int       `json:"next_group_id" yaml:"next_group_id"`
	Groups      []Group   `json:"groups" yaml:"groups"`
	Waiting     []Student `json:"waiting" yaml:"waiting"`
}
