package workflow

import (
	"github.com/google/uuid"

	"github.com/nferraro/gridswap/internal/contract"
)

// Status is the stage a workflow instance has reached. Aborted is reachable
// from every non-terminal stage; Finalized is the only successful terminal
// stage.
type Status string

const (
	StatusBuilding         Status = "building"
	StatusLocallyValidated Status = "locally_validated"
	StatusSigned           Status = "signed"
	StatusCollecting       Status = "collecting_signatures"
	StatusNotarizing       Status = "notarizing"
	StatusFinalized        Status = "finalized"
	StatusAborted          Status = "aborted"
)

// Instance is one run of the build, validate, sign, collect, notarize,
// finalize pipeline. Execution within an instance is sequential; arbitrarily
// many instances run concurrently for unrelated trades.
type Instance struct {
	ID     uuid.UUID
	Status Status
	// Record holds the attested transition once the instance finalizes.
	Record *contract.SignedTransition
	Err    error
}

func newInstance() *Instance {
	return &Instance{ID: uuid.New(), Status: StatusBuilding}
}

// abort marks the instance terminally failed and returns err unchanged so
// callers can `return inst.abort(err)`.
func (i *Instance) abort(err error) error {
	i.Status = StatusAborted
	i.Err = err

	return err
}
