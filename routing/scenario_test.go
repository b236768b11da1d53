package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maidsafe/routing-model/internal/testutil/testlog"
)

var (
	attributes1Old = Attributes{Age: 9, Name: 1001}
	attributes1    = Attributes{Age: 10, Name: 1}
	attributes2Old = Attributes{Age: 9, Name: 1002}
	attributes2    = Attributes{Age: 10, Name: 2}

	candidate1Old = Candidate{Attributes: attributes1Old}
	candidate1    = Candidate{Attributes: attributes1}
	candidate2Old = Candidate{Attributes: attributes2Old}
	candidate130  = Candidate{Attributes: Attributes{Age: 30, Name: 130}}
	candidate205  = Candidate{Attributes: Attributes{Age: 5, Name: 205}}

	node1Old = Node{Attributes: attributes1Old}
	node1    = Node{Attributes: attributes1}
	node2Old = Node{Attributes: attributes2Old}
	node2    = Node{Attributes: attributes2}

	nodeElder109 = Node{Attributes: Attributes{Age: 9, Name: 109}}
	nodeElder110 = Node{Attributes: Attributes{Age: 10, Name: 110}}
	nodeElder111 = Node{Attributes: Attributes{Age: 11, Name: 111}}
	nodeElder130 = Node{Attributes: Attributes{Age: 30, Name: 130}}
	nodeElder131 = Node{Attributes: Attributes{Age: 31, Name: 131}}
	nodeElder132 = Node{Attributes: Attributes{Age: 32, Name: 132}}

	youngAdult205 = Node{Attributes: Attributes{Age: 5, Name: 205}}

	targetInterval1 = Name(1234)
	targetInterval2 = Name(1235)

	ourSection    = Section(0)
	otherSection1 = Section(1)
	dstSection200 = Section(200)

	ourInitialSectionInfo = SectionInfo{Section: ourSection, Version: 0}
	sectionInfo1          = SectionInfo{Section: ourSection, Version: 1}
	sectionInfo2          = SectionInfo{Section: ourSection, Version: 2}
	dstSectionInfo200     = SectionInfo{Section: dstSection200, Version: 0}

	ourNode          = nodeElder132
	ourName          = ourNode.Name()
	ourNodeCandidate = ourNode.Candidate()
	ourProofRequest  = ProofRequest{Value: int(ourName)}
	ourGenesisInfo   = GenesisPfxInfo{SectionInfo: ourInitialSectionInfo}

	candidateInfoValid1 = CandidateInfo{
		OldPublicID: candidate1Old,
		NewPublicID: candidate1,
		Destination: targetInterval1,
		Valid:       true,
	}

	candidateRelocatedInfo1 = RelocatedInfo{
		Candidate:            candidate1Old,
		ExpectedAge:          attributes1Old.Age + 1,
		TargetIntervalCentre: targetInterval1,
		SectionInfo:          ourInitialSectionInfo,
	}
)

func actionBase132() *Action {
	return NewAction(ourNode.Attributes).WithNextTargetInterval(targetInterval1)
}

// Fixture actions are built once and cloned into each test.
var (
	innerActionYoungElders = actionBase132().
		ExtendCurrentNodesWith(MemberInfo{IsElder: true}, nodeElder109, nodeElder110, nodeElder132).
		ExtendCurrentNodesWith(MemberInfo{}, youngAdult205)

	innerActionOldElders = actionBase132().
		ExtendCurrentNodesWith(MemberInfo{IsElder: true}, nodeElder130, nodeElder131, nodeElder132).
		ExtendCurrentNodesWith(MemberInfo{}, youngAdult205)

	innerActionWithDstSection200 = actionBase132().
		WithSectionMembers(dstSectionInfo200, []Node{nodeElder109, nodeElder110, nodeElder111})
)

func actionYoungElders() *Action { return innerActionYoungElders.Clone() }

func actionOldElders() *Action { return innerActionOldElders.Clone() }

func actionWithDstSection200() *Action { return innerActionWithDstSection200.Clone() }

func initialStateYoungElders() *MemberState {
	return NewMemberState(actionYoungElders())
}

func initialStateOldElders() *MemberState {
	return NewMemberState(actionOldElders())
}

func relocatedInfoFor(candidate Candidate, section SectionInfo) RelocatedInfo {
	return RelocatedInfo{
		Candidate:            candidate,
		ExpectedAge:          candidate.Age() + 1,
		TargetIntervalCentre: targetInterval1,
		SectionInfo:          section,
	}
}

// assertState is the observable outcome of a scenario: the events the node
// emitted, its section info and whether a neighbour merge is pending.
type assertState struct {
	events       []Event
	section      SectionInfo
	mergePending bool
}

func processEvents(t *testing.T, state *MemberState, events []Event) {
	t.Helper()
	for _, event := range events {
		if !state.TryNext(event) {
			t.Fatalf("unhandled event: %+v", event)
		}
	}
}

// arrangeInitialState drives the state to a starting point and drops the
// events emitted getting there.
func arrangeInitialState(t *testing.T, state *MemberState, events []Event) {
	t.Helper()
	processEvents(t, state, events)
	state.Action.ClearEvents()
}

func runScenario(t *testing.T, state *MemberState, events []Event, expected assertState) {
	t.Helper()
	testlog.Start(t)
	processEvents(t, state, events)

	_, mergePending := state.Action.MergeInfos()
	assert.Equal(t, expected.events, state.Action.Events(), "emitted events")
	assert.Equal(t, expected.section, state.Action.OurSection(), "section info")
	assert.Equal(t, expected.mergePending, mergePending, "pending merge info")
}
