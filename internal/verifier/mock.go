package verifier

import (
	"hash/fnv"

	"github.com/gatepass/gatepass/internal/pass"
)

// MockVerify returns a deterministic outcome for demo environments without a
// live store: the hash of "checkpointId:code" alternates allowed and denied.
// No storage is touched and no credential is resolved. This is a client demo
// aid, not a security feature.
func MockVerify(code, checkpointID string) *VerifyResult {
	h := fnv.New32a()
	_, _ = h.Write([]byte(checkpointID + ":" + code))
	result := &VerifyResult{
		Checkpoint: CheckpointInfo{CheckpointID: checkpointID, Name: "Mock Checkpoint"},
	}
	if h.Sum32()%2 == 0 {
		result.Result = pass.ResultAllowed
		result.Reason = pass.ReasonOK
	} else {
		result.Result = pass.ResultDenied
		result.Reason = pass.ReasonCodeExpired
	}
	return result
}
