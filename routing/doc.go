// Package routing owns the section membership state machine.
//
// Ownership boundary:
// - member/candidate identities and lifecycle states
// - event model (rpc, consensus, local, node change)
// - destination flows: candidate acceptance, resource proof, elder change
// - source flows: work units, relocation
// - joining node flow
package routing
