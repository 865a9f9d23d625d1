// Package plc provides access to the machine controller.
//
// The monitor engine consumes only the Link contract: a batched read of
// named points plus a connectivity flag. Control writes go through Writer.
// Two implementations exist:
//
//   - OPCUA talks to the controller's OPC UA server using gopcua. Addresses
//     from the machine configuration are joined to plc.node_prefix unless
//     they are already full node IDs.
//   - Simulator keeps values in memory so the whole HMI can run without a
//     controller (plc.driver: simulated).
//
// A batch read is all or nothing: if any node reports a bad status the
// whole read fails and the caller keeps its previous snapshot. Retries are
// the caller's business.
package plc
