// Package ingest produces raw events for the pipeline from newline
// delimited JSON, pcap captures of the event stream, or a live UDP socket.
//
// Every payload is validated against an embedded JSON schema before it is
// decoded. Invalid payloads are logged, counted and skipped; they never
// reach a stage.
package ingest
