package routing

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maidsafe/routing-model/internal/testutil/testlog"
)

// EnvReplaySeed replays a randomised test run that failed.
const EnvReplaySeed = "ROUTING_MODEL_SEED"

func newTestRand(t *testing.T) *rand.Rand {
	t.Helper()
	seed := time.Now().UnixNano()
	if value := os.Getenv(EnvReplaySeed); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		require.NoErrorf(t, err, "%s=%q is not a valid int64", EnvReplaySeed, value)
		seed = parsed
	}
	t.Logf("to replay this run, set %s=%d", EnvReplaySeed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomAttributes draws ages high enough that stray WorkUnitIncrement votes
// cannot push a bystander over its relocation threshold mid test.
func randomAttributes(rng *rand.Rand, used map[Name]struct{}) Attributes {
	for {
		attr := Attributes{
			Age:  Age(20 + rng.Intn(80)),
			Name: Name(rng.Intn(1_000_000)),
		}
		if _, taken := used[attr.Name]; taken {
			continue
		}
		used[attr.Name] = struct{}{}
		return attr
	}
}

func randomNodes(rng *rand.Rand, used map[Name]struct{}, count int) []Node {
	nodes := make([]Node, count)
	for i := range nodes {
		nodes[i] = Node{Attributes: randomAttributes(rng, used)}
	}
	return nodes
}

// randomEvents feeds each event with 50% probability, in order.
type randomEvents []Event

func (r randomEvents) handle(t *testing.T, rng *rand.Rand, state *MemberState) {
	t.Helper()
	for _, event := range r {
		if rng.Intn(2) == 0 {
			continue
		}
		require.Truef(t, state.TryNext(event), "unhandled event: %+v", event)
	}
}

func TestRelocateAdultSrcWithRandomNoise(t *testing.T) {
	testlog.Start(t)
	rng := newTestRand(t)

	used := map[Name]struct{}{}
	nodes := randomNodes(rng, used, 6)
	action := NewAction(randomAttributes(rng, used)).
		WithNextTargetInterval(randomAttributes(rng, used).Name).
		ExtendCurrentNodesWith(MemberInfo{IsElder: true}, nodes...)

	// Sort into elders and adults, then relocate one of the demoted adults.
	change := action.CheckElder()
	require.NotNil(t, change)
	demoted := make([]Node, 0, len(change.Changes))
	for _, update := range change.Changes {
		if !update.Elder {
			demoted = append(demoted, update.Node)
		}
	}
	require.NotEmpty(t, demoted)
	relocating := demoted[rng.Intn(len(demoted))]
	action.MarkElderChange(change)
	action.ClearEvents()

	state := NewMemberState(action)
	_, found := state.Action.Member(relocating.Name())
	require.True(t, found)

	relocatedInfo := RelocatedInfo{
		Candidate:            relocating.Candidate(),
		ExpectedAge:          relocating.Age() + 1,
		TargetIntervalCentre: randomAttributes(rng, used).Name,
		SectionInfo:          SectionInfo{Section: Section(rng.Intn(1000)), Version: rng.Intn(10)},
	}

	required := []Event{
		SetWorkUnitEnoughToRelocate(relocating).Event(),
		WorkUnitIncrementVote().Event(),
		CheckRelocateVote().Event(),
		RelocateResponseVote(relocatedInfo).Event(),
	}
	noise := randomEvents{
		WorkUnitIncrementVote().Event(),
		CheckRelocateVote().Event(),
		RelocateResponseRPC(relocatedInfo).Event(),
	}

	for _, event := range required {
		require.Truef(t, state.TryNext(event), "unhandled event: %+v", event)
		noise.handle(t, rng, state)
	}

	member, found := state.Action.Member(relocating.Name())
	require.True(t, found)
	assert.Equal(t, Relocated(relocatedInfo), member.Status)

	require.True(t, state.TryNext(RelocatedInfoVote(relocatedInfo).Event()))
	_, found = state.Action.Member(relocating.Name())
	assert.False(t, found, "relocated member should be purged")

	noise.handle(t, rng, state)
}

func TestRelocateAdultDstWithRandomNoise(t *testing.T) {
	testlog.Start(t)
	rng := newTestRand(t)

	used := map[Name]struct{}{}
	targetInterval := randomAttributes(rng, used).Name
	nodes := randomNodes(rng, used, 6)
	action := NewAction(randomAttributes(rng, used)).
		WithNextTargetInterval(targetInterval).
		ExtendCurrentNodesWith(MemberInfo{IsElder: true}, nodes...)
	dstName := action.OurName()

	// Sort into elders and adults.
	change := action.CheckElder()
	require.NotNil(t, change)
	action.MarkElderChange(change)
	action.ClearEvents()

	state := NewMemberState(action)

	oldPublicID := Candidate{Attributes: randomAttributes(rng, used)}
	newPublicID := Candidate{Attributes: Attributes{
		Age:  oldPublicID.Age() + 1,
		Name: randomAttributes(rng, used).Name,
	}}
	candidateInfo := CandidateInfo{
		OldPublicID: oldPublicID,
		NewPublicID: newPublicID,
		Destination: targetInterval,
		Valid:       true,
	}

	required := []Event{
		ExpectCandidateVote(oldPublicID).Event(),
		CandidateConnectedVote(candidateInfo).Event(),
		CheckResourceProofVote().Event(),
		ResourceProofResponseRPC(newPublicID, dstName, ProofValidEnd).Event(),
		OnlineVote(newPublicID).Event(),
	}
	anyTime := randomEvents{
		WorkUnitIncrementVote().Event(),
		CheckRelocateVote().Event(),
		ExpectCandidateRPC(oldPublicID).Event(),
	}
	afterExpectCandidate := randomEvents{
		CandidateInfoRPC(candidateInfo).Event(),
		ConnectionInfoResponseRPC(randomAttributes(rng, used).Name, dstName, rng.Intn(1000)).Event(),
	}
	afterResourceProof := randomEvents{
		ResourceProofResponseRPC(newPublicID, dstName, ProofValidPart).Event(),
	}

	for i, event := range required {
		require.Truef(t, state.TryNext(event), "unhandled event: %+v", event)
		anyTime.handle(t, rng, state)
		if i > 0 {
			afterExpectCandidate.handle(t, rng, state)
		}
		if i > 1 {
			afterResourceProof.handle(t, rng, state)
		}
	}

	member, found := state.Action.Member(newPublicID.Name())
	require.True(t, found)
	assert.Equal(t, Online, member.Status)

	require.True(t, state.TryNext(CheckElderVote().Event()))
	anyTime.handle(t, rng, state)
	afterExpectCandidate.handle(t, rng, state)
	afterResourceProof.handle(t, rng, state)
}
