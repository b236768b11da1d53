package routing

import (
	"fmt"
	"sort"
)

// Action owns the section bookkeeping shared by every flow: the membership
// table, the section info, and the log of events the node emitted. Flows
// mutate it; tests and the simulator inspect the log.
type Action struct {
	ourAttributes Attributes
	ourSection    SectionInfo

	members map[Name]*MemberInfo
	events  []Event

	shortestPrefix    Section
	hasShortestPrefix bool

	sectionMembers     map[SectionInfo][]Node
	nextTargetInterval Name

	mergeInfo    MergeInfo
	hasMergeInfo bool
	mergeNeeded  bool
}

// NewAction creates an empty action for the node with the given identity.
func NewAction(our Attributes) *Action {
	return &Action{
		ourAttributes:  our,
		members:        map[Name]*MemberInfo{},
		sectionMembers: map[SectionInfo][]Node{},
	}
}

// Clone deep-copies the action so test fixtures can be reused.
func (a *Action) Clone() *Action {
	clone := *a
	clone.members = make(map[Name]*MemberInfo, len(a.members))
	for name, info := range a.members {
		copied := *info
		clone.members[name] = &copied
	}
	clone.events = append([]Event(nil), a.events...)
	clone.sectionMembers = make(map[SectionInfo][]Node, len(a.sectionMembers))
	for info, nodes := range a.sectionMembers {
		clone.sectionMembers[info] = append([]Node(nil), nodes...)
	}
	return &clone
}

// ExtendCurrentNodesWith adds nodes to the membership table, all sharing the
// template's state and elder flag.
func (a *Action) ExtendCurrentNodesWith(template MemberInfo, nodes ...Node) *Action {
	for _, node := range nodes {
		info := template
		info.Node = node
		a.members[node.Name()] = &info
	}
	return a
}

// WithSectionMembers registers the known membership of another section.
func (a *Action) WithSectionMembers(section SectionInfo, nodes []Node) *Action {
	if _, ok := a.sectionMembers[section]; ok {
		panic(fmt.Sprintf("routing: section members already set for %+v", section))
	}
	a.sectionMembers[section] = append([]Node(nil), nodes...)
	return a
}

// WithNextTargetInterval sets the next relocation target interval centre.
func (a *Action) WithNextTargetInterval(target Name) *Action {
	a.nextTargetInterval = target
	return a
}

// Events is the log of everything the node emitted since the last clear.
func (a *Action) Events() []Event { return a.events }

// ClearEvents drops the processed event log.
func (a *Action) ClearEvents() { a.events = nil }

// OurSection is the current section info.
func (a *Action) OurSection() SectionInfo { return a.ourSection }

// OurName is the local node's name.
func (a *Action) OurName() Name { return a.ourAttributes.Name }

func (a *Action) IsOurName(name Name) bool { return a.OurName() == name }

// Member returns the membership row for name, if present.
func (a *Action) Member(name Name) (MemberInfo, bool) {
	if info, ok := a.members[name]; ok {
		return *info, true
	}
	return MemberInfo{}, false
}

// sortedMembers iterates the membership table in name order.
func (a *Action) sortedMembers() []*MemberInfo {
	names := make([]Name, 0, len(a.members))
	for name := range a.members {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	infos := make([]*MemberInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, a.members[name])
	}
	return infos
}

func (a *Action) applyTestEvent(event TestEvent) {
	switch event.Kind {
	case TestSetMergeNeeded:
		a.mergeNeeded = event.MergeNeeded
	case TestSetShortestPrefix:
		a.shortestPrefix = event.Prefix
		a.hasShortestPrefix = event.HasPrefix
	case TestSetWorkUnitEnoughToRelocate:
		if info, ok := a.members[event.Node.Name()]; ok {
			info.WorkUnitsDone = int(info.Node.Age())
		}
	}
}

func (a *Action) VoteParsec(vote ParsecVote) { a.events = append(a.events, vote.Event()) }

func (a *Action) SendRPC(rpc RPC) { a.events = append(a.events, rpc.Event()) }

func (a *Action) ScheduleEvent(event LocalEvent) { a.events = append(a.events, event.Event()) }

func (a *Action) addNode(info MemberInfo) {
	a.events = append(a.events, AddWithState(info.Node, info.Status).Event())
	if _, ok := a.members[info.Node.Name()]; ok {
		panic(fmt.Sprintf("routing: node %d already present", info.Node.Name()))
	}
	copied := info
	a.members[info.Node.Name()] = &copied
}

func (a *Action) removeNode(name Name) {
	a.events = append(a.events, RemoveChange(name).Event())
	if _, ok := a.members[name]; !ok {
		panic(fmt.Sprintf("routing: remove of unknown node %d", name))
	}
	delete(a.members, name)
}

func (a *Action) replaceNode(name Name, info MemberInfo) {
	a.events = append(a.events, ReplaceWith(name, info.Node, info.Status).Event())
	if _, ok := a.members[name]; !ok {
		panic(fmt.Sprintf("routing: replace of unknown node %d", name))
	}
	delete(a.members, name)
	if _, ok := a.members[info.Node.Name()]; ok {
		panic(fmt.Sprintf("routing: node %d already present", info.Node.Name()))
	}
	copied := info
	a.members[info.Node.Name()] = &copied
}

func (a *Action) setNodeStatus(name Name, status Status) {
	info := a.members[name]
	info.Status = status
	a.events = append(a.events, StateChange(info.Node, status).Event())
}

func (a *Action) setElderFlag(name Name, elder bool) {
	info := a.members[name]
	info.IsElder = elder
	a.events = append(a.events, ElderChangeOf(info.Node, elder).Event())
}

// AddNodeWaitingCandidateInfo reserves a member slot for an expected
// candidate and returns the relocation contract to send back.
func (a *Action) AddNodeWaitingCandidateInfo(candidate Candidate) RelocatedInfo {
	centre := a.nextTargetInterval
	a.nextTargetInterval++

	info := RelocatedInfo{
		Candidate:            candidate,
		ExpectedAge:          candidate.Age() + 1,
		TargetIntervalCentre: centre,
		SectionInfo:          a.ourSection,
	}
	a.addNode(MemberInfo{
		Node:   Node{Attributes: Attributes{Age: info.ExpectedAge, Name: info.TargetIntervalCentre}},
		Status: WaitingCandidateInfo(info),
	})
	return info
}

// UpdateToNodeWithWaitingProofState swaps a reserved slot for the connected
// candidate's real identity, pending resource proof.
func (a *Action) UpdateToNodeWithWaitingProofState(info CandidateInfo) {
	a.updateToNode(info, WaitingProofing)
}

// UpdateToNodeWithRelocatingHopState swaps a reserved slot for the connected
// candidate's real identity, to be relocated again towards a shorter prefix.
func (a *Action) UpdateToNodeWithRelocatingHopState(info CandidateInfo) {
	a.updateToNode(info, RelocatingHop)
}

func (a *Action) updateToNode(info CandidateInfo, status Status) {
	a.replaceNode(info.Destination, MemberInfo{
		Node:   Node{Attributes: info.NewPublicID.Attributes},
		Status: status,
	})
}

func (a *Action) SetCandidateOnlineState(candidate Candidate) {
	a.setNodeStatus(candidate.Name(), Online)
}

func (a *Action) SetNodeOfflineState(node Node) {
	a.setNodeStatus(node.Name(), Offline)
}

func (a *Action) SetNodeBackOnlineState(node Node) {
	a.setNodeStatus(node.Name(), RelocatingBackOnline)
}

func (a *Action) SetCandidateRelocatingState(candidate Candidate) {
	a.setNodeStatus(candidate.Name(), RelocatingAgeIncrease)
}

func (a *Action) SetCandidateRelocatedState(info RelocatedInfo) {
	a.setNodeStatus(info.Candidate.Name(), Relocated(info))
}

func (a *Action) PurgeNodeInfo(name Name) { a.removeNode(name) }

// CheckShortestPrefix reports the sibling section with the shortest prefix,
// if one is known.
func (a *Action) CheckShortestPrefix() (Section, bool) {
	return a.shortestPrefix, a.hasShortestPrefix
}

// CheckElder computes the elder flag flips implied by the current table: the
// three oldest online members become elders. Returns nil when nothing flips.
func (a *Action) CheckElder() *ElderChange {
	sorted := a.sortedMembers()
	sort.SliceStable(sorted, func(i, j int) bool {
		left, right := sorted[i], sorted[j]
		if c := left.Status.compare(right.Status); c != 0 {
			return c < 0
		}
		if left.Node.Age() != right.Node.Age() {
			return left.Node.Age() > right.Node.Age()
		}
		return left.Node.Name() < right.Node.Name()
	})

	elderSize := len(sorted)
	if elderSize > 3 {
		elderSize = 3
	}
	elders, adults := sorted[:elderSize], sorted[elderSize:]

	var changes []ElderUpdate
	for _, info := range elders {
		if !info.IsElder {
			changes = append(changes, ElderUpdate{Node: info.Node, Elder: true})
		}
	}
	for _, info := range adults {
		if info.IsElder {
			changes = append(changes, ElderUpdate{Node: info.Node, Elder: false})
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return &ElderChange{
		Changes:    changes,
		NewSection: SectionInfo{Section: a.ourSection.Section, Version: a.ourSection.Version + 1},
	}
}

// ElderChangeVotes is the consensus votes needed to agree an elder change.
func (a *Action) ElderChangeVotes(change *ElderChange) []ParsecVote {
	votes := make([]ParsecVote, 0, len(change.Changes)+1)
	for _, update := range change.Changes {
		if update.Elder {
			votes = append(votes, AddElderNodeVote(update.Node))
		} else {
			votes = append(votes, RemoveElderNodeVote(update.Node))
		}
	}
	return append(votes, NewSectionInfoVote(change.NewSection))
}

// MarkElderChange applies an agreed elder change to the table.
func (a *Action) MarkElderChange(change *ElderChange) {
	for _, update := range change.Changes {
		a.setElderFlag(update.Node.Name(), update.Elder)
	}
	a.ourSection = change.NewSection
}

// HasRelocatingNode reports whether a work-unit relocation is already
// underway: a member marked for an age increase, or one whose relocation
// contract is settled but not yet sent on. Hop and back-online moves do not
// count; they never stop further adults from relocating.
func (a *Action) HasRelocatingNode() bool {
	for _, info := range a.members {
		switch info.Status.Kind {
		case StatusRelocatingAgeIncrease, StatusRelocated:
			return true
		}
	}
	return false
}

// NodeToRelocate is the first member, in name order, that completed enough
// work units and is not already relocating.
func (a *Action) NodeToRelocate() (Candidate, bool) {
	for _, info := range a.sortedMembers() {
		if !info.Status.IsRelocating() && info.WorkUnitsDone >= int(info.Node.Age()) {
			return info.Node.Candidate(), true
		}
	}
	return Candidate{}, false
}

// BestRelocatingNode picks the relocating non-elder to send on next, skipping
// candidates already in flight. Age-increase relocations go first, then hops,
// then back-online nodes; oldest and highest name win ties.
func (a *Action) BestRelocatingNode(alreadyRelocating map[Candidate]int) (Candidate, Section, bool) {
	var best *MemberInfo
	for _, info := range a.sortedMembers() {
		if _, inFlight := alreadyRelocating[info.Node.Candidate()]; inFlight {
			continue
		}
		if !info.Status.IsRelocating() || info.IsElder {
			continue
		}
		if outranksRelocating(info, best) {
			best = info
		}
	}
	if best == nil {
		return Candidate{}, 0, false
	}
	return best.Node.Candidate(), Section(0), true
}

func outranksRelocating(info, best *MemberInfo) bool {
	if best == nil {
		return true
	}
	if relocatingRank(info) != relocatingRank(best) {
		return relocatingRank(info) > relocatingRank(best)
	}
	if info.Node.Age() != best.Node.Age() {
		return info.Node.Age() > best.Node.Age()
	}
	return info.Node.Name() > best.Node.Name()
}

func relocatingRank(info *MemberInfo) int {
	switch info.Status.Kind {
	case StatusRelocatingAgeIncrease:
		return 3
	case StatusRelocatingHop:
		return 2
	case StatusRelocatingBackOnline:
		return 1
	}
	return 0
}

// IsOurRelocatingNode reports whether the candidate is one of our members in
// a relocating state.
func (a *Action) IsOurRelocatingNode(candidate Candidate) bool {
	if info, ok := a.members[candidate.Name()]; ok {
		return info.Status.IsRelocating()
	}
	return false
}

// WaitingNodesConnecting is the set of reserved slots still waiting for
// their candidate to connect.
func (a *Action) WaitingNodesConnecting() map[Name]struct{} {
	waiting := map[Name]struct{}{}
	for name, info := range a.members {
		if info.Status.IsWaitingCandidateInfo() {
			waiting[name] = struct{}{}
		}
	}
	return waiting
}

// WaitingCandidateInfoFor finds the relocation contract reserved for the
// candidate, if any.
func (a *Action) WaitingCandidateInfoFor(candidate Candidate) (RelocatedInfo, bool) {
	for _, info := range a.sortedMembers() {
		if info.Status.IsWaitingCandidateInfo() && info.Status.Info.Candidate == candidate {
			return info.Status.Info, true
		}
	}
	return RelocatedInfo{}, false
}

// CountWaitingProofingOrHop counts members that are not yet full nodes.
func (a *Action) CountWaitingProofingOrHop() int {
	count := 0
	for _, info := range a.members {
		if info.Status.IsNotYetFullNode() {
			count++
		}
	}
	return count
}

// ResourceProofCandidate is the first member, in name order, undergoing
// resource proofing.
func (a *Action) ResourceProofCandidate() (Candidate, bool) {
	for _, info := range a.sortedMembers() {
		if info.Status.IsResourceProofing() {
			return info.Node.Candidate(), true
		}
	}
	return Candidate{}, false
}

// IsValidWaitedInfo reports whether the candidate info matches a reserved
// slot and carries a valid proof of both identities.
func (a *Action) IsValidWaitedInfo(info CandidateInfo) bool {
	if !info.Valid {
		return false
	}
	if member, ok := a.members[info.Destination]; ok {
		return member.Status.IsWaitingCandidateInfo()
	}
	return false
}

func (a *Action) SendNodeApproval(candidate Candidate) {
	a.SendRPC(NodeApprovalRPC(candidate, GenesisPfxInfo{SectionInfo: a.ourSection}))
}

func (a *Action) SendRelocateResponse(info RelocatedInfo) {
	a.SendRPC(RelocateResponseRPC(info))
}

func (a *Action) SendNodeConnected(candidate Candidate) {
	a.SendRPC(NodeConnectedRPC(candidate, GenesisPfxInfo{SectionInfo: a.ourSection}))
}

func (a *Action) SendCandidateProofRequest(candidate Candidate) {
	source := a.OurName()
	a.SendRPC(ResourceProofRPC(candidate, source, ProofRequest{Value: int(source)}))
}

func (a *Action) SendCandidateProofReceipt(candidate Candidate) {
	a.SendRPC(ResourceProofReceiptRPC(candidate, a.OurName()))
}

// StartComputeResourceProof schedules the local proof computation for the
// challenge received from source.
func (a *Action) StartComputeResourceProof(source Name, _ ProofRequest) {
	a.ScheduleEvent(ComputeResourceProofForElder(source, ProofSource{Remaining: 2}))
}

// SectionMembers is the known membership of another section.
func (a *Action) SectionMembers(section SectionInfo) []Node {
	nodes, ok := a.sectionMembers[section]
	if !ok {
		panic(fmt.Sprintf("routing: unknown section %+v", section))
	}
	return nodes
}

func (a *Action) SendConnectionInfoRequest(destination Name) {
	source := a.OurName()
	a.SendRPC(ConnectionInfoRequestRPC(source, destination, int(source)))
}

func (a *Action) SendCandidateInfo(destination Name) {
	candidate := Candidate{Attributes: a.ourAttributes}
	a.SendRPC(CandidateInfoRPC(CandidateInfo{
		OldPublicID: candidate,
		NewPublicID: candidate,
		Destination: destination,
		Valid:       true,
	}))
}

func (a *Action) SendResourceProofResponse(destination Name, proof Proof) {
	candidate := Candidate{Attributes: a.ourAttributes}
	a.SendRPC(ResourceProofResponseRPC(candidate, destination, proof))
}

// IncrementNodesWorkUnits credits every member with one work unit.
func (a *Action) IncrementNodesWorkUnits() {
	for _, info := range a.members {
		info.WorkUnitsDone++
	}
}

func (a *Action) StoreMergeInfos(info MergeInfo) {
	a.mergeInfo = info
	a.hasMergeInfo = true
}

func (a *Action) HasMergeInfos() bool { return a.hasMergeInfo }

// MergeInfos returns the stored neighbour merge info, if any.
func (a *Action) MergeInfos() (MergeInfo, bool) { return a.mergeInfo, a.hasMergeInfo }

func (a *Action) MergeNeeded() bool { return a.mergeNeeded }
