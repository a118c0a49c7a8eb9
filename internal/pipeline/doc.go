// Package pipeline wires the correction stages together: rectify a photo,
// detect its marks, assemble answers, score confidence and grade them.
//
// A Pipeline is built once around an initialised imaging.Engine and shared;
// it holds no per-sheet state. ProcessBatch fans sheets out in small groups
// so only a few decoded photos are alive at once, and isolates failures so
// one unreadable photo never aborts the run. ErrorKind maps any stage error
// to the name reported in batch results and API responses.
package pipeline
