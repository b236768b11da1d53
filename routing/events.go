package routing

// EventKind tags the category of an Event.
type EventKind int

const (
	EventRPC EventKind = iota + 1
	EventParsecConsensus
	EventLocal
	EventTest
	EventNodeChange
)

// Event is the single currency of the model: inputs fed to TryNext and
// outputs recorded on the action log. Events are comparable so tests can
// assert logs with plain equality.
type Event struct {
	Kind   EventKind
	RPC    RPC
	Vote   ParsecVote
	Local  LocalEvent
	Change NodeChange
	Test   TestEvent
}

// waited reports whether the event is routed through the flow dispatch.
func (e Event) waited() bool {
	switch e.Kind {
	case EventRPC, EventParsecConsensus, EventLocal:
		return true
	}
	return false
}

// RPCKind tags a network message between sections or nodes.
type RPCKind int

const (
	RPCRefuseCandidate RPCKind = iota + 1
	RPCRelocateResponse
	RPCRelocatedInfo
	RPCExpectCandidate
	RPCNodeConnected
	RPCResourceProof
	RPCResourceProofReceipt
	RPCNodeApproval
	RPCResourceProofResponse
	RPCCandidateInfo
	RPCConnectionInfoRequest
	RPCConnectionInfoResponse
	RPCMerge
)

// RPC is a network message. Only the fields relevant to its kind are set.
type RPC struct {
	Kind           RPCKind
	Candidate      Candidate
	Info           RelocatedInfo
	Genesis        GenesisPfxInfo
	CandidateInfo  CandidateInfo
	Source         Name
	Destination    Name
	ProofRequest   ProofRequest
	Proof          Proof
	ConnectionInfo int
}

func (r RPC) Event() Event { return Event{Kind: EventRPC, RPC: r} }

// DestinationName is the addressed node, if the message targets a single node
// rather than a section.
func (r RPC) DestinationName() (Name, bool) {
	switch r.Kind {
	case RPCResourceProof, RPCResourceProofReceipt:
		return r.Candidate.Name(), true
	case RPCResourceProofResponse, RPCConnectionInfoRequest, RPCConnectionInfoResponse:
		return r.Destination, true
	case RPCCandidateInfo:
		return r.CandidateInfo.Destination, true
	}
	return 0, false
}

func RefuseCandidateRPC(candidate Candidate) RPC {
	return RPC{Kind: RPCRefuseCandidate, Candidate: candidate}
}

func RelocateResponseRPC(info RelocatedInfo) RPC {
	return RPC{Kind: RPCRelocateResponse, Info: info}
}

func RelocatedInfoRPC(info RelocatedInfo) RPC {
	return RPC{Kind: RPCRelocatedInfo, Info: info}
}

func ExpectCandidateRPC(candidate Candidate) RPC {
	return RPC{Kind: RPCExpectCandidate, Candidate: candidate}
}

func NodeConnectedRPC(candidate Candidate, genesis GenesisPfxInfo) RPC {
	return RPC{Kind: RPCNodeConnected, Candidate: candidate, Genesis: genesis}
}

func ResourceProofRPC(candidate Candidate, source Name, proof ProofRequest) RPC {
	return RPC{Kind: RPCResourceProof, Candidate: candidate, Source: source, ProofRequest: proof}
}

func ResourceProofReceiptRPC(candidate Candidate, source Name) RPC {
	return RPC{Kind: RPCResourceProofReceipt, Candidate: candidate, Source: source}
}

func NodeApprovalRPC(candidate Candidate, genesis GenesisPfxInfo) RPC {
	return RPC{Kind: RPCNodeApproval, Candidate: candidate, Genesis: genesis}
}

func ResourceProofResponseRPC(candidate Candidate, destination Name, proof Proof) RPC {
	return RPC{Kind: RPCResourceProofResponse, Candidate: candidate, Destination: destination, Proof: proof}
}

func CandidateInfoRPC(info CandidateInfo) RPC {
	return RPC{Kind: RPCCandidateInfo, CandidateInfo: info}
}

func ConnectionInfoRequestRPC(source, destination Name, connectionInfo int) RPC {
	return RPC{Kind: RPCConnectionInfoRequest, Source: source, Destination: destination, ConnectionInfo: connectionInfo}
}

func ConnectionInfoResponseRPC(source, destination Name, connectionInfo int) RPC {
	return RPC{Kind: RPCConnectionInfoResponse, Source: source, Destination: destination, ConnectionInfo: connectionInfo}
}

func MergeRPC() RPC { return RPC{Kind: RPCMerge} }

// VoteKind tags a consensused decision.
type VoteKind int

const (
	VoteExpectCandidate VoteKind = iota + 1
	VoteCheckRelocatedNodeConnection
	VoteCandidateConnected
	VoteOnline
	VotePurgeCandidate
	VoteCheckResourceProof
	VoteAddElderNode
	VoteRemoveElderNode
	VoteNewSectionInfo
	VoteWorkUnitIncrement
	VoteCheckRelocate
	VoteRefuseCandidate
	VoteRelocateResponse
	VoteRelocatedInfo
	VoteCheckElder
	VoteOffline
	VoteBackOnline
	VoteNeighbourMerge
)

// ParsecVote is a decision the section has reached consensus on.
type ParsecVote struct {
	Kind          VoteKind
	Candidate     Candidate
	CandidateInfo CandidateInfo
	Node          Node
	SectionInfo   SectionInfo
	Info          RelocatedInfo
	Merge         MergeInfo
}

func (v ParsecVote) Event() Event { return Event{Kind: EventParsecConsensus, Vote: v} }

// CandidateName is the candidate the vote concerns, for votes that carry one.
func (v ParsecVote) CandidateName() (Candidate, bool) {
	switch v.Kind {
	case VoteExpectCandidate, VoteOnline, VotePurgeCandidate, VoteRefuseCandidate:
		return v.Candidate, true
	case VoteRelocateResponse:
		return v.Info.Candidate, true
	}
	return Candidate{}, false
}

func ExpectCandidateVote(candidate Candidate) ParsecVote {
	return ParsecVote{Kind: VoteExpectCandidate, Candidate: candidate}
}

func CheckRelocatedNodeConnectionVote() ParsecVote {
	return ParsecVote{Kind: VoteCheckRelocatedNodeConnection}
}

func CandidateConnectedVote(info CandidateInfo) ParsecVote {
	return ParsecVote{Kind: VoteCandidateConnected, CandidateInfo: info}
}

func OnlineVote(candidate Candidate) ParsecVote {
	return ParsecVote{Kind: VoteOnline, Candidate: candidate}
}

func PurgeCandidateVote(candidate Candidate) ParsecVote {
	return ParsecVote{Kind: VotePurgeCandidate, Candidate: candidate}
}

func CheckResourceProofVote() ParsecVote {
	return ParsecVote{Kind: VoteCheckResourceProof}
}

func AddElderNodeVote(node Node) ParsecVote {
	return ParsecVote{Kind: VoteAddElderNode, Node: node}
}

func RemoveElderNodeVote(node Node) ParsecVote {
	return ParsecVote{Kind: VoteRemoveElderNode, Node: node}
}

func NewSectionInfoVote(info SectionInfo) ParsecVote {
	return ParsecVote{Kind: VoteNewSectionInfo, SectionInfo: info}
}

func WorkUnitIncrementVote() ParsecVote {
	return ParsecVote{Kind: VoteWorkUnitIncrement}
}

func CheckRelocateVote() ParsecVote {
	return ParsecVote{Kind: VoteCheckRelocate}
}

func RefuseCandidateVote(candidate Candidate) ParsecVote {
	return ParsecVote{Kind: VoteRefuseCandidate, Candidate: candidate}
}

func RelocateResponseVote(info RelocatedInfo) ParsecVote {
	return ParsecVote{Kind: VoteRelocateResponse, Info: info}
}

func RelocatedInfoVote(info RelocatedInfo) ParsecVote {
	return ParsecVote{Kind: VoteRelocatedInfo, Info: info}
}

func CheckElderVote() ParsecVote {
	return ParsecVote{Kind: VoteCheckElder}
}

func OfflineVote(node Node) ParsecVote {
	return ParsecVote{Kind: VoteOffline, Node: node}
}

func BackOnlineVote(node Node) ParsecVote {
	return ParsecVote{Kind: VoteBackOnline, Node: node}
}

func NeighbourMergeVote(merge MergeInfo) ParsecVote {
	return ParsecVote{Kind: VoteNeighbourMerge, Merge: merge}
}

// LocalEventKind tags an event raised on the local node, mostly timeouts.
type LocalEventKind int

const (
	LocalCheckRelocatedNodeConnectionTimeout LocalEventKind = iota + 1
	LocalTimeoutAccept
	LocalCheckResourceProofTimeout
	LocalTimeoutWorkUnit
	LocalTimeoutCheckRelocate
	LocalTimeoutCheckElder
	LocalJoiningTimeoutResendCandidateInfo
	LocalJoiningTimeoutRefused
	LocalComputeResourceProofForElder
	LocalNodeDetectedOffline
	LocalNodeDetectedBackOnline
	LocalNotYetImplementedEvent
	LocalUnexpectedEventIgnored
)

// LocalEvent is a node-local stimulus.
type LocalEvent struct {
	Kind   LocalEventKind
	Source Name
	Proof  ProofSource
	Node   Node
}

func (l LocalEvent) Event() Event { return Event{Kind: EventLocal, Local: l} }

func CheckRelocatedNodeConnectionTimeout() LocalEvent {
	return LocalEvent{Kind: LocalCheckRelocatedNodeConnectionTimeout}
}

func TimeoutAccept() LocalEvent { return LocalEvent{Kind: LocalTimeoutAccept} }

func CheckResourceProofTimeout() LocalEvent {
	return LocalEvent{Kind: LocalCheckResourceProofTimeout}
}

func TimeoutWorkUnit() LocalEvent { return LocalEvent{Kind: LocalTimeoutWorkUnit} }

func TimeoutCheckRelocate() LocalEvent { return LocalEvent{Kind: LocalTimeoutCheckRelocate} }

func TimeoutCheckElder() LocalEvent { return LocalEvent{Kind: LocalTimeoutCheckElder} }

func JoiningTimeoutResendCandidateInfo() LocalEvent {
	return LocalEvent{Kind: LocalJoiningTimeoutResendCandidateInfo}
}

func JoiningTimeoutRefused() LocalEvent { return LocalEvent{Kind: LocalJoiningTimeoutRefused} }

func ComputeResourceProofForElder(source Name, proof ProofSource) LocalEvent {
	return LocalEvent{Kind: LocalComputeResourceProofForElder, Source: source, Proof: proof}
}

func NodeDetectedOffline(node Node) LocalEvent {
	return LocalEvent{Kind: LocalNodeDetectedOffline, Node: node}
}

func NodeDetectedBackOnline(node Node) LocalEvent {
	return LocalEvent{Kind: LocalNodeDetectedBackOnline, Node: node}
}

func NotYetImplementedEvent() LocalEvent { return LocalEvent{Kind: LocalNotYetImplementedEvent} }

func UnexpectedEventIgnored() LocalEvent { return LocalEvent{Kind: LocalUnexpectedEventIgnored} }

// NodeChangeKind tags a membership mutation recorded on the event log.
type NodeChangeKind int

const (
	ChangeAddWithState NodeChangeKind = iota + 1
	ChangeReplaceWith
	ChangeState
	ChangeRemove
	ChangeElder
)

// NodeChange records a membership table mutation.
type NodeChange struct {
	Kind    NodeChangeKind
	Node    Node
	Status  Status
	OldName Name
	Elder   bool
}

func (c NodeChange) Event() Event { return Event{Kind: EventNodeChange, Change: c} }

func AddWithState(node Node, status Status) NodeChange {
	return NodeChange{Kind: ChangeAddWithState, Node: node, Status: status}
}

func ReplaceWith(oldName Name, node Node, status Status) NodeChange {
	return NodeChange{Kind: ChangeReplaceWith, OldName: oldName, Node: node, Status: status}
}

func StateChange(node Node, status Status) NodeChange {
	return NodeChange{Kind: ChangeState, Node: node, Status: status}
}

func RemoveChange(name Name) NodeChange {
	return NodeChange{Kind: ChangeRemove, OldName: name}
}

func ElderChangeOf(node Node, elder bool) NodeChange {
	return NodeChange{Kind: ChangeElder, Node: node, Elder: elder}
}

// TestEventKind tags a scenario control knob.
type TestEventKind int

const (
	TestSetMergeNeeded TestEventKind = iota + 1
	TestSetShortestPrefix
	TestSetWorkUnitEnoughToRelocate
)

// TestEvent tweaks action state directly; used by simulations and tests.
type TestEvent struct {
	Kind        TestEventKind
	MergeNeeded bool
	Prefix      Section
	HasPrefix   bool
	Node        Node
}

func (t TestEvent) Event() Event { return Event{Kind: EventTest, Test: t} }

func SetMergeNeeded(needed bool) TestEvent {
	return TestEvent{Kind: TestSetMergeNeeded, MergeNeeded: needed}
}

func SetShortestPrefix(prefix Section) TestEvent {
	return TestEvent{Kind: TestSetShortestPrefix, Prefix: prefix, HasPrefix: true}
}

func ClearShortestPrefix() TestEvent {
	return TestEvent{Kind: TestSetShortestPrefix}
}

func SetWorkUnitEnoughToRelocate(node Node) TestEvent {
	return TestEvent{Kind: TestSetWorkUnitEnoughToRelocate, Node: node}
}
