// Package store is the gateway's persistence layer: pgx-backed access to the
// five tables the core reads or writes, per the gateway's data contract.
// api_key and traffic_log are read/written by the core itself (internal/auth);
// managed_mcp_server mirrors the upstream definition shape and is referenced by
// traffic_log, but the core does not read it (upstreams load from YAML files);
// server_extension_installation and mcp_marketplace_server are administrative
// tables the core only needs to know the shape of.
//
// Every store takes a DB satisfied by both *pgxpool.Pool and *pgx.Conn, so
// callers choose pooling without this package caring.
package store
