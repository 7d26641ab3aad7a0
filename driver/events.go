package driver

// Event is a runtime notification returned by Instance.PollEvent.
//
// The concrete types are SessionStateChanged, InstanceLossPending,
// InteractionProfileChanged, ReferenceSpaceChangePending and EventsLost.
type Event interface {
	event()
}

// SessionStateChanged reports a session lifecycle transition.
type SessionStateChanged struct {
	Session Session
	State   SessionState
	Time    Time
}

// InstanceLossPending reports that the instance will be lost at LossTime.
type InstanceLossPending struct {
	LossTime Time
}

// InteractionProfileChanged reports that the active interaction profile of
// a session changed, for example because a controller was connected.
type InteractionProfileChanged struct {
	Session Session
}

// ReferenceSpaceChangePending reports that a reference space is about to
// be recentered.
type ReferenceSpaceChangePending struct {
	Session             Session
	ReferenceSpaceType  ReferenceSpaceType
	ChangeTime          Time
	PoseValid           bool
	PoseInPreviousSpace Pose
}

// EventsLost reports that the runtime event queue overflowed.
type EventsLost struct {
	LostEventCount uint32
}

func (SessionStateChanged) event()         {}
func (InstanceLossPending) event()         {}
func (InteractionProfileChanged) event()   {}
func (ReferenceSpaceChangePending) event() {}
func (EventsLost) event()                  {}
