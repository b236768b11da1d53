package routing

// Name is a node address on the network ring.
type Name int

// Age is the accumulated trust of a node; it increments on relocation.
type Age int

// Attributes is the public identity of a node.
type Attributes struct {
	Age  Age
	Name Name
}

// compare orders attributes by age then name, matching elder tie-breaks.
func (a Attributes) compare(o Attributes) int {
	if a.Age != o.Age {
		return compareInt(int(a.Age), int(o.Age))
	}
	return compareInt(int(a.Name), int(o.Name))
}

// Candidate is a node identity seen from the joining/relocation flows.
type Candidate struct {
	Attributes Attributes
}

func (c Candidate) Name() Name { return c.Attributes.Name }
func (c Candidate) Age() Age   { return c.Attributes.Age }

// Node is a node identity seen from the section membership flows.
type Node struct {
	Attributes Attributes
}

func (n Node) Name() Name { return n.Attributes.Name }
func (n Node) Age() Age   { return n.Attributes.Age }

// Candidate reinterprets the node identity for relocation messaging.
func (n Node) Candidate() Candidate { return Candidate{Attributes: n.Attributes} }

// Section identifies a section prefix.
type Section int

// SectionInfo is a section plus its membership version.
type SectionInfo struct {
	Section Section
	Version int
}

// GenesisPfxInfo is the section snapshot handed to an approved node.
type GenesisPfxInfo struct {
	SectionInfo SectionInfo
}

// MergeInfo marks a neighbour section's intent to merge.
type MergeInfo struct{}

// RelocatedInfo is the relocation contract a destination section issues for
// an incoming candidate.
type RelocatedInfo struct {
	Candidate            Candidate
	ExpectedAge          Age
	TargetIntervalCentre Name
	SectionInfo          SectionInfo
}

// CandidateInfo carries the old and new identity a relocated candidate
// presents to its destination section.
type CandidateInfo struct {
	OldPublicID Candidate
	NewPublicID Candidate
	Destination Name
	Valid       bool
}

// StatusKind enumerates the lifecycle states of a section member. Declaration
// order is the elder-election order: Online sorts first.
type StatusKind int

const (
	// StatusOnline nodes are full members; the oldest become elders.
	StatusOnline StatusKind = iota
	// StatusRelocatingAgeIncrease marks an adult that completed its work units.
	StatusRelocatingAgeIncrease
	// StatusRelocatingHop marks a node bound for a shorter-prefix section.
	StatusRelocatingHop
	// StatusRelocatingBackOnline marks a previously offline node being moved on.
	StatusRelocatingBackOnline
	// StatusRelocated nodes finished relocating; only the info remains to send.
	StatusRelocated
	// StatusWaitingCandidateInfo nodes have a reserved slot but no identity yet.
	StatusWaitingCandidateInfo
	// StatusWaitingProofing nodes are connected and computing resource proofs.
	StatusWaitingProofing
	// StatusOffline nodes lost their connection.
	StatusOffline
)

// Status is a member lifecycle state; relocation states carry their contract.
type Status struct {
	Kind StatusKind
	Info RelocatedInfo
}

var (
	Online                = Status{Kind: StatusOnline}
	RelocatingAgeIncrease = Status{Kind: StatusRelocatingAgeIncrease}
	RelocatingHop         = Status{Kind: StatusRelocatingHop}
	RelocatingBackOnline  = Status{Kind: StatusRelocatingBackOnline}
	WaitingProofing       = Status{Kind: StatusWaitingProofing}
	Offline               = Status{Kind: StatusOffline}
)

// Relocated is the terminal relocation state for a source-section member.
func Relocated(info RelocatedInfo) Status {
	return Status{Kind: StatusRelocated, Info: info}
}

// WaitingCandidateInfo reserves a member slot for an expected candidate.
func WaitingCandidateInfo(info RelocatedInfo) Status {
	return Status{Kind: StatusWaitingCandidateInfo, Info: info}
}

func (s Status) IsRelocating() bool {
	switch s.Kind {
	case StatusRelocatingAgeIncrease, StatusRelocatingHop, StatusRelocatingBackOnline:
		return true
	}
	return false
}

func (s Status) IsResourceProofing() bool { return s.Kind == StatusWaitingProofing }

func (s Status) IsWaitingCandidateInfo() bool { return s.Kind == StatusWaitingCandidateInfo }

// IsNotYetFullNode reports whether the member still occupies a candidate slot.
func (s Status) IsNotYetFullNode() bool {
	switch s.Kind {
	case StatusWaitingCandidateInfo, StatusWaitingProofing, StatusRelocatingHop:
		return true
	}
	return false
}

func (s Status) compare(o Status) int {
	if s.Kind != o.Kind {
		return compareInt(int(s.Kind), int(o.Kind))
	}
	return s.Info.compare(o.Info)
}

func (i RelocatedInfo) compare(o RelocatedInfo) int {
	if c := i.Candidate.Attributes.compare(o.Candidate.Attributes); c != 0 {
		return c
	}
	if i.ExpectedAge != o.ExpectedAge {
		return compareInt(int(i.ExpectedAge), int(o.ExpectedAge))
	}
	if i.TargetIntervalCentre != o.TargetIntervalCentre {
		return compareInt(int(i.TargetIntervalCentre), int(o.TargetIntervalCentre))
	}
	if i.SectionInfo.Section != o.SectionInfo.Section {
		return compareInt(int(i.SectionInfo.Section), int(o.SectionInfo.Section))
	}
	return compareInt(i.SectionInfo.Version, o.SectionInfo.Version)
}

// MemberInfo is one row of the section membership table.
type MemberInfo struct {
	Node          Node
	WorkUnitsDone int
	IsElder       bool
	Status        Status
}

// ElderUpdate is one elder flag flip within an elder change.
type ElderUpdate struct {
	Node  Node
	Elder bool
}

// ElderChange is an agreed set of elder flag flips plus the section version
// they produce.
type ElderChange struct {
	Changes    []ElderUpdate
	NewSection SectionInfo
}

// ProofRequest is the resource proof challenge an elder issues.
type ProofRequest struct {
	Value int
}

// Proof is one part of a resource proof response.
type Proof int

const (
	ProofValidPart Proof = iota + 1
	ProofValidEnd
	ProofInvalid
)

func (p Proof) IsValid() bool { return p == ProofValidPart || p == ProofValidEnd }

// ProofSource doles out proof parts: ValidPart while work remains, ValidEnd
// on the last part, Invalid once exhausted.
type ProofSource struct {
	Remaining int
}

func (p *ProofSource) NextPart() Proof {
	if p.Remaining > -1 {
		p.Remaining--
	}
	return p.resend()
}

func (p ProofSource) resend() Proof {
	switch {
	case p.Remaining > 0:
		return ProofValidPart
	case p.Remaining == 0:
		return ProofValidEnd
	default:
		return ProofInvalid
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
