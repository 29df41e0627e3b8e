package pool

// Phase is the pool lifecycle stage.
type Phase string

const (
	PhaseEmpty         Phase = "empty"
	PhaseMaterializing Phase = "materializing"
	PhaseReady         Phase = "ready"
	PhaseDepleted      Phase = "depleted"
)
