package routing

import "fmt"

// Destination section flows: accepting relocated candidates, driving their
// resource proof, and agreeing elder changes.

//
// RespondToRelocateRequests
//

func (s *MemberState) tryRespondToRelocateRequests(event Event) bool {
	switch event.Kind {
	case EventRPC:
		if event.RPC.Kind == RPCExpectCandidate {
			s.Action.VoteParsec(ExpectCandidateVote(event.RPC.Candidate))
			return true
		}
	case EventParsecConsensus:
		if event.Vote.Kind == VoteExpectCandidate {
			s.consensusedExpectCandidate(event.Vote.Candidate)
			return true
		}
	}
	return false
}

func (s *MemberState) consensusedExpectCandidate(candidate Candidate) {
	if info, ok := s.Action.WaitingCandidateInfoFor(candidate); ok {
		s.Action.SendRelocateResponse(info)
		return
	}
	if s.Action.CountWaitingProofingOrHop() == 0 {
		info := s.Action.AddNodeWaitingCandidateInfo(candidate)
		s.Action.SendRelocateResponse(info)
		return
	}
	s.Action.SendRPC(RefuseCandidateRPC(candidate))
}

//
// StartRelocatedNodeConnection
//

func (s *MemberState) tryStartRelocatedNodeConnection(event Event) bool {
	switch event.Kind {
	case EventRPC:
		switch event.RPC.Kind {
		case RPCCandidateInfo:
			s.candidateInfoRPC(event.RPC.CandidateInfo)
			return true
		case RPCConnectionInfoResponse:
			return s.tryConnectAndVoteCandidateConnected(event.RPC.Source)
		}
	case EventParsecConsensus:
		switch event.Vote.Kind {
		case VoteCandidateConnected:
			s.checkCandidateConnected(event.Vote.CandidateInfo)
			return true
		case VoteCheckRelocatedNodeConnection:
			s.rejectCandidatesThatTookTooLong()
			s.Action.ScheduleEvent(CheckRelocatedNodeConnectionTimeout())
			return true
		}
	case EventLocal:
		if event.Local.Kind == LocalCheckRelocatedNodeConnectionTimeout {
			s.Action.VoteParsec(CheckRelocatedNodeConnectionVote())
			return true
		}
	}
	return false
}

func (s *MemberState) candidateInfoRPC(info CandidateInfo) {
	if !s.Action.IsValidWaitedInfo(info) {
		return
	}
	s.nodeConnection.candidatesInfo[info.NewPublicID.Name()] = info
	s.Action.SendConnectionInfoRequest(info.NewPublicID.Name())
}

func (s *MemberState) tryConnectAndVoteCandidateConnected(source Name) bool {
	if _, voted := s.nodeConnection.candidatesVoted[source]; voted {
		return false
	}
	info, ok := s.nodeConnection.candidatesInfo[source]
	if !ok {
		return false
	}
	s.Action.VoteParsec(CandidateConnectedVote(info))
	s.nodeConnection.candidatesVoted[source] = struct{}{}
	return true
}

func (s *MemberState) checkCandidateConnected(info CandidateInfo) {
	if !s.Action.IsValidWaitedInfo(info) {
		return
	}
	if _, ok := s.Action.CheckShortestPrefix(); ok {
		s.Action.UpdateToNodeWithRelocatingHopState(info)
	} else {
		s.Action.UpdateToNodeWithWaitingProofState(info)
	}
	s.Action.SendNodeConnected(info.NewPublicID)
}

// rejectCandidatesThatTookTooLong purges slots that were already connecting
// at the previous check, then snapshots the remaining ones.
func (s *MemberState) rejectCandidatesThatTookTooLong() {
	connecting := s.Action.WaitingNodesConnecting()
	for name := range s.nodeConnection.candidates {
		if _, still := connecting[name]; still {
			s.Action.PurgeNodeInfo(name)
		}
	}

	candidates := s.Action.WaitingNodesConnecting()
	s.nodeConnection.candidates = candidates
	for name := range s.nodeConnection.candidatesInfo {
		if _, ok := candidates[name]; !ok {
			delete(s.nodeConnection.candidatesInfo, name)
		}
	}
	for name := range s.nodeConnection.candidatesVoted {
		if _, ok := candidates[name]; !ok {
			delete(s.nodeConnection.candidatesVoted, name)
		}
	}
}

//
// StartResourceProof
//

func (s *MemberState) tryStartResourceProof(event Event) bool {
	switch event.Kind {
	case EventRPC:
		if event.RPC.Kind == RPCResourceProofResponse {
			s.proofResponseRPC(event.RPC.Candidate, event.RPC.Proof)
			return true
		}
	case EventParsecConsensus:
		return s.tryResourceProofConsensus(event.Vote)
	case EventLocal:
		switch event.Local.Kind {
		case LocalTimeoutAccept:
			s.Action.VoteParsec(PurgeCandidateVote(s.proofCandidate()))
			return true
		case LocalCheckResourceProofTimeout:
			s.Action.VoteParsec(CheckResourceProofVote())
			return true
		}
	}
	return false
}

func (s *MemberState) proofResponseRPC(candidate Candidate, proof Proof) {
	if !s.resourceProof.hasCandidate ||
		candidate != s.proofCandidate() ||
		s.resourceProof.votedOnline ||
		!proof.IsValid() {
		return
	}
	switch proof {
	case ProofValidPart:
		s.Action.SendCandidateProofReceipt(s.proofCandidate())
	case ProofValidEnd:
		s.resourceProof.votedOnline = true
		s.Action.VoteParsec(OnlineVote(s.proofCandidate()))
	}
}

func (s *MemberState) tryResourceProofConsensus(vote ParsecVote) bool {
	fromCandidate := false
	if voteCandidate, ok := vote.CandidateName(); ok {
		fromCandidate = s.resourceProof.hasCandidate && voteCandidate == s.proofCandidate()
	}

	switch vote.Kind {
	case VoteCheckResourceProof:
		s.setResourceProofCandidate()
		s.checkRequestResourceProof()
		return true
	case VoteOnline:
		if fromCandidate {
			s.makeNodeOnline()
		}
		return true
	case VotePurgeCandidate:
		if fromCandidate {
			s.Action.PurgeNodeInfo(s.proofCandidate().Name())
			s.finishResourceProof()
		}
		return true
	}
	return false
}

func (s *MemberState) setResourceProofCandidate() {
	s.resourceProof.candidate, s.resourceProof.hasCandidate = s.Action.ResourceProofCandidate()
}

func (s *MemberState) checkRequestResourceProof() {
	if s.resourceProof.hasCandidate {
		s.Action.SendCandidateProofRequest(s.proofCandidate())
	} else {
		s.finishResourceProof()
	}
}

func (s *MemberState) makeNodeOnline() {
	s.Action.SetCandidateOnlineState(s.proofCandidate())
	s.Action.SendNodeApproval(s.proofCandidate())
	s.finishResourceProof()
}

func (s *MemberState) finishResourceProof() {
	s.resourceProof = resourceProofRoutine{}
	s.Action.ScheduleEvent(CheckResourceProofTimeout())
}

func (s *MemberState) proofCandidate() Candidate {
	if !s.resourceProof.hasCandidate {
		panic(fmt.Sprintf("routing: no resource proof candidate (node %d)", s.Action.OurName()))
	}
	return s.resourceProof.candidate
}

//
// CheckAndProcessElderChange
//

func (s *MemberState) tryCheckAndProcessElderChange(event Event) bool {
	switch event.Kind {
	case EventParsecConsensus:
		switch event.Vote.Kind {
		case VoteNeighbourMerge:
			s.Action.StoreMergeInfos(event.Vote.Merge)
			return true
		case VoteCheckElder:
			s.checkMerge()
			return true
		}
	case EventRPC:
		if event.RPC.Kind == RPCMerge {
			s.Action.VoteParsec(NeighbourMergeVote(MergeInfo{}))
			return true
		}
	case EventLocal:
		if event.Local.Kind == LocalTimeoutCheckElder {
			s.Action.VoteParsec(CheckElderVote())
			return true
		}
	}
	return false
}

func (s *MemberState) checkMerge() {
	if s.Action.HasMergeInfos() || s.Action.MergeNeeded() {
		s.Action.SendRPC(MergeRPC())
		return
	}
	if change := s.Action.CheckElder(); change != nil {
		s.startProcessElderChange(*change)
	} else {
		s.Action.ScheduleEvent(TimeoutCheckElder())
	}
}

//
// ProcessElderChange
//

func (s *MemberState) startProcessElderChange(change ElderChange) {
	s.elderChange.active = true
	s.elderChange.change = change
	s.elderChange.waitVotes = s.Action.ElderChangeVotes(&change)
	for _, vote := range s.elderChange.waitVotes {
		s.Action.VoteParsec(vote)
	}
}

func (s *MemberState) tryProcessElderChange(event Event) bool {
	if event.Kind != EventParsecConsensus {
		return false
	}
	remaining := s.elderChange.waitVotes[:0]
	found := false
	for _, vote := range s.elderChange.waitVotes {
		if vote == event.Vote {
			found = true
			continue
		}
		remaining = append(remaining, vote)
	}
	if !found {
		return false
	}
	s.elderChange.waitVotes = remaining
	if len(remaining) == 0 {
		s.Action.MarkElderChange(&s.elderChange.change)
		s.elderChange = elderChangeRoutine{}
		s.Action.ScheduleEvent(TimeoutCheckElder())
	}
	return true
}

//
// CheckOnlineOffline
//

func (s *MemberState) tryCheckOnlineOffline(event Event) bool {
	switch event.Kind {
	case EventParsecConsensus:
		switch event.Vote.Kind {
		case VoteOffline:
			s.Action.SetNodeOfflineState(event.Vote.Node)
			return true
		case VoteBackOnline:
			s.Action.SetNodeBackOnlineState(event.Vote.Node)
			return true
		}
	case EventLocal:
		switch event.Local.Kind {
		case LocalNodeDetectedOffline:
			s.Action.VoteParsec(OfflineVote(event.Local.Node))
			return true
		case LocalNodeDetectedBackOnline:
			s.Action.VoteParsec(BackOnlineVote(event.Local.Node))
			return true
		}
	}
	return false
}
