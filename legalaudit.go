// Package legalaudit provides a local tool that audits the legal pages a
// website publishes. It fetches HTML, flattens it to plain text, compares the
// text against reference PDF templates and reports a similarity score. The
// operations are exposed as JSON-RPC methods over process standard streams.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, gojsonschema/).
package legalaudit
