// Package core provides the business logic for streaming TPC-H imports.
//
// This package holds all domain logic independent of any transport layer.
// The HTTP server and the tpcimport CLI both drive it through [Service].
//
// # Architecture
//
//   - Schema Registry: each table registers its ordered fields and a map of
//     field name to validator ([Register], [Resolve]).
//   - Source: [OpenSource] stacks byte counting, hashing, decompression and
//     charset decoding over the upload.
//   - Job: [Job.Run] reassembles lines, validates records, batches them into
//     the [Inserter] and reports progress through an [EventSink].
//   - Service: admission control ([ImportLimiter]), job tracking, event
//     subscriptions and table maintenance.
//
// # Table Registry
//
// Tables are registered at init time, see package tables:
//
//	core.Register(
//	    core.TableInfo{Key: "region", Group: "TPC-H", PrimaryKey: []string{"r_regionkey"}},
//	    core.FieldSpec{Name: "r_regionkey", Type: core.FieldInteger, Validate: core.NonNegativeInt("region key")},
//	    core.FieldSpec{Name: "r_name", Type: core.FieldChar, Size: 25},
//	    core.FieldSpec{Name: "r_comment", Type: core.FieldVarchar, Size: 152},
//	)
//
// # Streaming Import
//
// Imports hold O(batch size) rows in memory regardless of file size:
//
//  1. The caller admits the upload with [Service.BeginImport]
//  2. [ImportHandle.Run] reads the body in chunks and emits fileInfo
//  3. Valid rows are inserted in batches; a failed batch is replayed row by
//     row so only the offending rows fail
//  4. Progress is emitted every N processed lines, then exactly one of
//     complete, error or aborted
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - IMP001-IMP005: Import errors (cancelled, saturated, not found)
//   - FILE001-FILE005: File errors (size, delimiter, encoding)
//   - TBL001: Unknown table
package core
