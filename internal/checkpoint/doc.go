// Package checkpoint saves and restores parameter trees and optimizer state
// in SafeTensors format.
//
// File layout:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: float64 LE, tensors in alphabetical name order]
//
// Tensor names are tree paths with a section prefix:
//
//	params/encoder/weight        parameter leaf
//	state/1/0/mu/encoder/weight  Adam first moment inside a chain
//	state/1/0/nu/encoder/weight  Adam second moment
//
// Scalar state (step counters) and the SHA-256 of the data section live in
// the header's __metadata__ map, next to caller metadata.
//
// Example usage:
//
//	// Save
//	err := checkpoint.Save("run.safetensors", checkpoint.Checkpoint{
//	    Params: opt.Params(),
//	    State:  opt.State(),
//	    Step:   opt.GetTimestep(),
//	})
//
//	// Restore into the structure of a freshly initialized run
//	ck, err := checkpoint.Load("run.safetensors", checkpoint.Checkpoint{
//	    Params: params,
//	    State:  setup.State,
//	})
//	opt.Restore(ck.Params, ck.State, ck.Step)
package checkpoint
