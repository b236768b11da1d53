package routing

import "fmt"

func (k EventKind) String() string {
	switch k {
	case EventRPC:
		return "rpc"
	case EventParsecConsensus:
		return "consensus"
	case EventLocal:
		return "local"
	case EventTest:
		return "test"
	case EventNodeChange:
		return "node_change"
	}
	return fmt.Sprintf("event_kind(%d)", int(k))
}

func (k RPCKind) String() string {
	switch k {
	case RPCRefuseCandidate:
		return "RefuseCandidate"
	case RPCRelocateResponse:
		return "RelocateResponse"
	case RPCRelocatedInfo:
		return "RelocatedInfo"
	case RPCExpectCandidate:
		return "ExpectCandidate"
	case RPCNodeConnected:
		return "NodeConnected"
	case RPCResourceProof:
		return "ResourceProof"
	case RPCResourceProofReceipt:
		return "ResourceProofReceipt"
	case RPCNodeApproval:
		return "NodeApproval"
	case RPCResourceProofResponse:
		return "ResourceProofResponse"
	case RPCCandidateInfo:
		return "CandidateInfo"
	case RPCConnectionInfoRequest:
		return "ConnectionInfoRequest"
	case RPCConnectionInfoResponse:
		return "ConnectionInfoResponse"
	case RPCMerge:
		return "Merge"
	}
	return fmt.Sprintf("rpc(%d)", int(k))
}

func (k VoteKind) String() string {
	switch k {
	case VoteExpectCandidate:
		return "ExpectCandidate"
	case VoteCheckRelocatedNodeConnection:
		return "CheckRelocatedNodeConnection"
	case VoteCandidateConnected:
		return "CandidateConnected"
	case VoteOnline:
		return "Online"
	case VotePurgeCandidate:
		return "PurgeCandidate"
	case VoteCheckResourceProof:
		return "CheckResourceProof"
	case VoteAddElderNode:
		return "AddElderNode"
	case VoteRemoveElderNode:
		return "RemoveElderNode"
	case VoteNewSectionInfo:
		return "NewSectionInfo"
	case VoteWorkUnitIncrement:
		return "WorkUnitIncrement"
	case VoteCheckRelocate:
		return "CheckRelocate"
	case VoteRefuseCandidate:
		return "RefuseCandidate"
	case VoteRelocateResponse:
		return "RelocateResponse"
	case VoteRelocatedInfo:
		return "RelocatedInfo"
	case VoteCheckElder:
		return "CheckElder"
	case VoteOffline:
		return "Offline"
	case VoteBackOnline:
		return "BackOnline"
	case VoteNeighbourMerge:
		return "NeighbourMerge"
	}
	return fmt.Sprintf("vote(%d)", int(k))
}

func (k LocalEventKind) String() string {
	switch k {
	case LocalCheckRelocatedNodeConnectionTimeout:
		return "CheckRelocatedNodeConnectionTimeout"
	case LocalTimeoutAccept:
		return "TimeoutAccept"
	case LocalCheckResourceProofTimeout:
		return "CheckResourceProofTimeout"
	case LocalTimeoutWorkUnit:
		return "TimeoutWorkUnit"
	case LocalTimeoutCheckRelocate:
		return "TimeoutCheckRelocate"
	case LocalTimeoutCheckElder:
		return "TimeoutCheckElder"
	case LocalJoiningTimeoutResendCandidateInfo:
		return "JoiningTimeoutResendCandidateInfo"
	case LocalJoiningTimeoutRefused:
		return "JoiningTimeoutRefused"
	case LocalComputeResourceProofForElder:
		return "ComputeResourceProofForElder"
	case LocalNodeDetectedOffline:
		return "NodeDetectedOffline"
	case LocalNodeDetectedBackOnline:
		return "NodeDetectedBackOnline"
	case LocalNotYetImplementedEvent:
		return "NotYetImplementedEvent"
	case LocalUnexpectedEventIgnored:
		return "UnexpectedEventIgnored"
	}
	return fmt.Sprintf("local(%d)", int(k))
}

func (k NodeChangeKind) String() string {
	switch k {
	case ChangeAddWithState:
		return "AddWithState"
	case ChangeReplaceWith:
		return "ReplaceWith"
	case ChangeState:
		return "State"
	case ChangeRemove:
		return "Remove"
	case ChangeElder:
		return "Elder"
	}
	return fmt.Sprintf("node_change(%d)", int(k))
}

// Describe is a compact one-line rendering of the event, for logs and the
// trace store.
func (e Event) Describe() string {
	switch e.Kind {
	case EventRPC:
		return fmt.Sprintf("rpc %s", e.RPC.Kind)
	case EventParsecConsensus:
		return fmt.Sprintf("consensus %s", e.Vote.Kind)
	case EventLocal:
		return fmt.Sprintf("local %s", e.Local.Kind)
	case EventNodeChange:
		name := e.Change.Node.Name()
		if e.Change.Kind == ChangeRemove {
			name = e.Change.OldName
		}
		return fmt.Sprintf("node_change %s %d", e.Change.Kind, int(name))
	case EventTest:
		return "test event"
	}
	return "unknown event"
}
