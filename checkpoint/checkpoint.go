// Copyright 2026 The Siamics Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint saves and restores parameter trees and optimizer state
// in SafeTensors format.
//
// Example:
//
//	err := checkpoint.Save("run.safetensors", checkpoint.Checkpoint{
//	    Params: opt.Params(),
//	    State:  opt.State(),
//	    Step:   opt.GetTimestep(),
//	})
package checkpoint

import (
	"io"

	"github.com/siamics/siamics/internal/checkpoint"
	"github.com/siamics/siamics/internal/tensor"
)

// Checkpoint is a snapshot of a training run.
type Checkpoint = checkpoint.Checkpoint

// File is the decoded content of a SafeTensors file.
type File = checkpoint.File

// ValidationError provides detailed information about header validation failures.
type ValidationError = checkpoint.ValidationError

// Common errors.
var (
	ErrChecksumMismatch  = checkpoint.ErrChecksumMismatch
	ErrInvalidHeader     = checkpoint.ErrInvalidHeader
	ErrUnsupportedDType  = checkpoint.ErrUnsupportedDType
	ErrUnsupportedState  = checkpoint.ErrUnsupportedState
	ErrMissingTensor     = checkpoint.ErrMissingTensor
	ErrShapeMismatch     = checkpoint.ErrShapeMismatch
	ErrInvalidTensorName = checkpoint.ErrInvalidTensorName
	ErrDuplicateTensor   = checkpoint.ErrDuplicateTensor
)

// Save writes ck to path.
func Save(path string, ck Checkpoint) error {
	return checkpoint.Save(path, ck)
}

// Load reads a checkpoint, restoring into the structure of like.
func Load(path string, like Checkpoint) (Checkpoint, error) {
	return checkpoint.Load(path, like)
}

// ReadFile decodes the SafeTensors file at path.
func ReadFile(path string) (*File, error) {
	return checkpoint.ReadFile(path)
}

// Read decodes a SafeTensors stream.
func Read(r io.Reader) (*File, error) {
	return checkpoint.Read(r)
}

// Write encodes tensors in SafeTensors format.
func Write(w io.Writer, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	return checkpoint.Write(w, tensors, metadata)
}

// CountParameters returns the number of parameters stored in f's params section.
func CountParameters(f *File) int {
	return checkpoint.CountParameters(f)
}
