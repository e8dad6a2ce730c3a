// ABOUTME: Response normalization for upstream payloads.
// ABOUTME: Reshapes search envelopes, place records, and plans into the public contract.

// Package normalize reshapes heterogeneous upstream payloads into the
// gateway's stable public contract.
//
// The places service has shipped two wire formats over its lifetime:
// the current one keyed by "places" with its own pagination fields, and
// the database-era one keyed by "data". Both are accepted and mapped
// onto a single envelope. Chat payloads arrive as open-ended JSON from
// the agent; those are normalized as dynamic maps, validated only at
// the fields the frontend contract names.
package normalize
