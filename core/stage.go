package core

// StageInfo carries identifying details about the stage that produced an
// execution scope. Name is the external identifier; OutputKey names the
// session state slot the stage's final text is written to (may be empty).
type StageInfo struct {
	Name      string
	OutputKey string
}
