package routing

// elderChangeRoutine tracks an elder change being agreed: the votes still
// awaited and the change to apply once they all arrive.
type elderChangeRoutine struct {
	active    bool
	waitVotes []ParsecVote
	change    ElderChange
}

// resourceProofRoutine tracks the candidate currently being proofed.
type resourceProofRoutine struct {
	candidate        Candidate
	hasCandidate     bool
	gotCandidateInfo bool
	votedOnline      bool
}

// nodeConnectionRoutine tracks reserved slots waiting for their candidate to
// connect, keyed by the new identity's name.
type nodeConnectionRoutine struct {
	candidates      map[Name]struct{}
	candidatesInfo  map[Name]CandidateInfo
	candidatesVoted map[Name]struct{}
}

// relocateSrcRoutine tracks candidates we told another section to expect,
// with a staleness count that eventually allows a resend.
type relocateSrcRoutine struct {
	alreadyRelocating map[Candidate]int
}

// MemberState is the top level event loop of a full section member. Each
// event is offered to the sub event loops in a fixed order; the first one
// that recognises it handles it.
type MemberState struct {
	Action *Action

	elderChange    elderChangeRoutine
	resourceProof  resourceProofRoutine
	nodeConnection nodeConnectionRoutine
	relocateSrc    relocateSrcRoutine
}

// NewMemberState creates a member event loop over the given action state.
func NewMemberState(action *Action) *MemberState {
	return &MemberState{
		Action: action,
		nodeConnection: nodeConnectionRoutine{
			candidates:      map[Name]struct{}{},
			candidatesInfo:  map[Name]CandidateInfo{},
			candidatesVoted: map[Name]struct{}{},
		},
		relocateSrc: relocateSrcRoutine{
			alreadyRelocating: map[Candidate]int{},
		},
	}
}

// StartEventLoops arms the periodic timers driving the member routines.
func (s *MemberState) StartEventLoops() {
	s.Action.ScheduleEvent(TimeoutCheckElder())
	s.Action.ScheduleEvent(TimeoutWorkUnit())
	s.Action.ScheduleEvent(TimeoutCheckRelocate())
	s.Action.ScheduleEvent(CheckRelocatedNodeConnectionTimeout())
	s.Action.ScheduleEvent(CheckResourceProofTimeout())
}

// TryNext feeds one event through the sub event loops. It reports false when
// no loop recognised the event.
func (s *MemberState) TryNext(event Event) bool {
	if event.Kind == EventTest {
		s.Action.applyTestEvent(event.Test)
		return true
	}
	if !event.waited() {
		return false
	}

	if s.tryCheckAndProcessElderChange(event) {
		return true
	}
	if s.elderChange.active && s.tryProcessElderChange(event) {
		return true
	}
	if s.tryCheckOnlineOffline(event) {
		return true
	}
	if s.tryStartRelocateSrc(event) {
		return true
	}
	if s.tryTopLevelSrc(event) {
		return true
	}
	if s.tryStartRelocatedNodeConnection(event) {
		return true
	}
	if s.tryStartResourceProof(event) {
		return true
	}
	if s.tryRespondToRelocateRequests(event) {
		return true
	}

	switch {
	case event.Kind == EventRPC && event.RPC.Kind == RPCConnectionInfoResponse:
		s.Action.ScheduleEvent(NotYetImplementedEvent())
		return true
	case event.Kind == EventParsecConsensus &&
		(event.Vote.Kind == VoteRemoveElderNode ||
			event.Vote.Kind == VoteAddElderNode ||
			event.Vote.Kind == VoteNewSectionInfo):
		// A routine votes these and normally consumes them; out of band
		// duplicates are dropped rather than failed.
		s.Action.ScheduleEvent(UnexpectedEventIgnored())
		return true
	}
	return false
}

// ProofState is the joining node's bookkeeping for one destination elder.
type ProofState struct {
	Requested bool
	Source    ProofSource
	HasSource bool
}

// JoiningState is the top level event loop of a relocated node joining its
// destination section.
type JoiningState struct {
	Action *Action

	proofs   map[Name]ProofState
	genesis  GenesisPfxInfo
	complete bool
}

// NewJoiningState creates a joining event loop over the given action state.
func NewJoiningState(action *Action) *JoiningState {
	return &JoiningState{
		Action: action,
		proofs: map[Name]ProofState{},
	}
}

// Start contacts the destination section's members and arms the timeouts.
func (s *JoiningState) Start(newSection SectionInfo) {
	s.storeDestinationMembers(newSection)
	s.sendConnectionInfoRequests()
	s.Action.ScheduleEvent(JoiningTimeoutResendCandidateInfo())
	s.Action.ScheduleEvent(JoiningTimeoutRefused())
}

// TryNext feeds one event to the joining flow. Events the flow does not
// recognise are discarded; joining never fails on input.
func (s *JoiningState) TryNext(event Event) bool {
	if event.Kind == EventTest {
		s.Action.applyTestEvent(event.Test)
		return true
	}
	if !event.waited() {
		return false
	}
	s.tryJoiningRelocateCandidate(event)
	return true
}

// ProofTable is the per-elder proof state, for inspection.
func (s *JoiningState) ProofTable() map[Name]ProofState {
	table := make(map[Name]ProofState, len(s.proofs))
	for name, state := range s.proofs {
		table[name] = state
	}
	return table
}

// Completed reports whether the node was approved, and the genesis info it
// received.
func (s *JoiningState) Completed() (GenesisPfxInfo, bool) {
	return s.genesis, s.complete
}
