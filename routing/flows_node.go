package routing

import "sort"

// Joining node flow: a relocated node connecting to its destination section
// and answering the elders' resource proof challenges.

// Events the flow does not recognise are discarded; the joining node only
// ever reacts to its own section's messages.
func (s *JoiningState) tryJoiningRelocateCandidate(event Event) {
	switch event.Kind {
	case EventRPC:
		s.tryJoiningRPC(event.RPC)
	case EventLocal:
		s.tryJoiningLocalEvent(event.Local)
	}
}

func (s *JoiningState) tryJoiningRPC(rpc RPC) bool {
	if rpc.Kind == RPCNodeApproval {
		if s.Action.IsOurName(rpc.Candidate.Name()) {
			s.exit(rpc.Genesis)
			return true
		}
		return false
	}

	destination, ok := rpc.DestinationName()
	if !ok || !s.Action.IsOurName(destination) {
		return false
	}

	switch rpc.Kind {
	case RPCConnectionInfoResponse:
		s.Action.SendCandidateInfo(rpc.Source)
		return true
	case RPCResourceProof:
		s.startComputeResourceProof(rpc.Source, rpc.ProofRequest)
		return true
	case RPCResourceProofReceipt:
		s.sendNextProofResponse(rpc.Source)
		return true
	}
	return false
}

func (s *JoiningState) tryJoiningLocalEvent(event LocalEvent) bool {
	switch event.Kind {
	case LocalComputeResourceProofForElder:
		s.sendFirstProofResponse(event.Source, event.Proof)
		return true
	case LocalJoiningTimeoutResendCandidateInfo:
		s.sendConnectionInfoRequests()
		s.Action.ScheduleEvent(JoiningTimeoutResendCandidateInfo())
		return true
	}
	return false
}

func (s *JoiningState) exit(genesis GenesisPfxInfo) {
	s.proofs = map[Name]ProofState{}
	s.genesis = genesis
	s.complete = true
}

func (s *JoiningState) storeDestinationMembers(section SectionInfo) {
	s.proofs = map[Name]ProofState{}
	for _, node := range s.Action.SectionMembers(section) {
		s.proofs[node.Name()] = ProofState{}
	}
}

// sendConnectionInfoRequests contacts, in name order, the elders that have
// not yet sent us a proof challenge.
func (s *JoiningState) sendConnectionInfoRequests() {
	names := make([]Name, 0, len(s.proofs))
	for name, state := range s.proofs {
		if !state.Requested {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		s.Action.SendConnectionInfoRequest(name)
	}
}

func (s *JoiningState) startComputeResourceProof(source Name, proof ProofRequest) {
	s.Action.StartComputeResourceProof(source, proof)
	if state, ok := s.proofs[source]; ok && !state.Requested {
		s.proofs[source] = ProofState{Requested: true}
	}
}

func (s *JoiningState) sendFirstProofResponse(source Name, proofSource ProofSource) {
	state, ok := s.proofs[source]
	if !ok {
		panic("routing: proof response for unknown elder")
	}
	part := proofSource.NextPart()
	state.Source = proofSource
	state.HasSource = true
	s.proofs[source] = state

	s.Action.SendResourceProofResponse(source, part)
}

func (s *JoiningState) sendNextProofResponse(source Name) {
	state, ok := s.proofs[source]
	if !ok || !state.HasSource {
		panic("routing: proof receipt without proof source")
	}
	part := state.Source.NextPart()
	s.proofs[source] = state

	s.Action.SendResourceProofResponse(source, part)
}
