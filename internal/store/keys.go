package store

// Key layout of the session-state database.
const (
	prefixPlan     = "plan:"       // plan:<id> -> domain.Progress
	keyActivePlan  = "active_plan" // id of the plan currently owned by the reader
	keyChallenges  = "challenges"  // map[id]domain.Progress, one aggregate record
	prefixMainMark = "main:"       // main:<segmentID> -> domain.MainMark
	keyLastRead    = "lastread"    // domain.LastRead
	keyInstall     = "install"     // Install
)

func mainKey(segmentID string) []byte {
	buf := make([]byte, 0, len(prefixMainMark)+len(segmentID))
	buf = append(buf, prefixMainMark...)
	return append(buf, segmentID...)
}
