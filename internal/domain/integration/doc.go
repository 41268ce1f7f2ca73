// Package integration contains the Integration bounded context.
// This context reconciles a multi-store Storefront catalog (Tiendanube) into a
// single Commerce Hub store (Shopify).
//
// Key concepts:
//   - Storefront / CommerceHub: Port interfaces for the source and destination platforms
//   - SourceProduct / DestinationProduct: Catalog snapshots on each side
//   - Handle and SKU: Deterministic cross-platform identity (handle = source product id,
//     sku = source variant id)
//   - StoreConfig: Per-tenant settings injected into every component
//   - SyncReport: Counters and failures of one reconciliation run
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
