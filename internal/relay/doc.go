// Package relay implements the cross-community broadcast relay.
//
// One inbound message fans out to every destination channel registered in a
// routing table, delivered under a cached per-channel relay identity so it
// appears attributed to the original sender. Mass mentions are defused once
// before fan-out; per-destination failures are tolerated and counted.
package relay
