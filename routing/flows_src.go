package routing

// Source section flows: accounting work units and relocating members that
// earned an age increase.

//
// TopLevelSrc
//

func (s *MemberState) tryTopLevelSrc(event Event) bool {
	switch event.Kind {
	case EventLocal:
		if event.Local.Kind == LocalTimeoutWorkUnit {
			s.Action.VoteParsec(WorkUnitIncrementVote())
			s.Action.ScheduleEvent(TimeoutWorkUnit())
			return true
		}
	case EventParsecConsensus:
		if event.Vote.Kind == VoteWorkUnitIncrement {
			s.Action.IncrementNodesWorkUnits()
			s.checkNodeToRelocate()
			return true
		}
	}
	return false
}

// checkNodeToRelocate marks the next eligible member for relocation, one at
// a time: while a work-unit relocation is in progress no other member is
// marked, however many increments land in between.
func (s *MemberState) checkNodeToRelocate() {
	if s.Action.HasRelocatingNode() {
		return
	}
	if candidate, ok := s.Action.NodeToRelocate(); ok {
		s.Action.SetCandidateRelocatingState(candidate)
	}
}

//
// StartRelocateSrc
//

func (s *MemberState) tryStartRelocateSrc(event Event) bool {
	switch event.Kind {
	case EventLocal:
		if event.Local.Kind == LocalTimeoutCheckRelocate {
			s.Action.VoteParsec(CheckRelocateVote())
			s.Action.ScheduleEvent(TimeoutCheckRelocate())
			return true
		}
	case EventRPC:
		switch event.RPC.Kind {
		case RPCRefuseCandidate:
			s.Action.VoteParsec(RefuseCandidateVote(event.RPC.Candidate))
			return true
		case RPCRelocateResponse:
			s.Action.VoteParsec(RelocateResponseVote(event.RPC.Info))
			return true
		}
	case EventParsecConsensus:
		switch event.Vote.Kind {
		case VoteCheckRelocate:
			s.checkNeedRelocate()
			s.updateWaitAndAllowResend()
			return true
		case VoteRefuseCandidate:
			if s.Action.IsOurRelocatingNode(event.Vote.Candidate) {
				delete(s.relocateSrc.alreadyRelocating, event.Vote.Candidate)
			}
			return true
		case VoteRelocateResponse:
			if s.Action.IsOurRelocatingNode(event.Vote.Info.Candidate) {
				s.Action.SetCandidateRelocatedState(event.Vote.Info)
				s.Action.VoteParsec(RelocatedInfoVote(event.Vote.Info))
			}
			return true
		case VoteRelocatedInfo:
			s.Action.SendRPC(RelocatedInfoRPC(event.Vote.Info))
			s.Action.PurgeNodeInfo(event.Vote.Info.Candidate.Name())
			return true
		}
	}
	return false
}

func (s *MemberState) checkNeedRelocate() {
	candidate, _, ok := s.Action.BestRelocatingNode(s.relocateSrc.alreadyRelocating)
	if !ok {
		return
	}
	s.Action.SendRPC(ExpectCandidateRPC(candidate))
	s.relocateSrc.alreadyRelocating[candidate] = 0
}

// updateWaitAndAllowResend ages the in-flight relocations; candidates that
// got no response after enough checks are allowed a resend.
func (s *MemberState) updateWaitAndAllowResend() {
	for candidate, count := range s.relocateSrc.alreadyRelocating {
		if count+1 < 3 {
			s.relocateSrc.alreadyRelocating[candidate] = count + 1
		} else {
			delete(s.relocateSrc.alreadyRelocating, candidate)
		}
	}
}
