// Package integration contains the ERP integration bounded context.
// It describes the remote catalog the reconciliation engine pulls from and
// the bookkeeping of sync runs.
//
// Key concepts:
//   - RemoteCatalog: Port interface for the paged ERP catalog API
//   - *Record: Remote entities as delivered by the ERP, trimmed and decoded
//   - SyncRun: Entity recording a single scoped or full reconciliation run
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
