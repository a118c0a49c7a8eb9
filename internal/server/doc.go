// Package server implements the MCP (Model Context Protocol) server for
// answer-sheet correction.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Answer keys:
//   - answer_key_decode: Read and register the QR answer key in a photo
//   - answer_key_scan: Poll a sequence of frames until a key is found
//   - answer_key_encode: Render a key as a QR code
//
// Sheet stages:
//   - sheet_rectify: Find the sheet and warp it upright
//   - sheet_detect_marks: List the bubbles and their fill state
//   - sheet_annotate: Draw the detection result on the sheet
//
// Correction:
//   - sheet_correct: Grade one photo
//   - answers_grade: Grade answers read elsewhere
//   - batch_correct: Grade many photos, optionally writing an XLSX report
//   - exam_results: List stored corrections of an exam
//
// # Image Caching
//
// Photos named by path are decoded once and cached for the lifetime of the
// server. Batch photos go through the pipeline cache, which is evicted after
// every group.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and data {"error": ..., "kind": ...}, where kind is the failure
// class (SheetNotFound, NoCodeFound, MalformedPayload, ...).
//
// # Usage
//
//	srv := server.New(svc, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal(err)
//	}
package server
