// Package job defines the wire types exchanged between a submitter, the
// scheduler, and a worker: the Job a submitter asks to run, the tagged
// ComputationResult a worker replies with, and the Control messages a
// submitter can send to the scheduler out of band.
package job

import (
	"math/rand"
	"path/filepath"
)

const nameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Job is a user-supplied shell-script computation descriptor. Immutable
// once created; Name is a random 6-character identifier assigned at
// construction (collisions are not checked for — a colliding name only
// means two jobs share a label in logs and audit rows, never state).
type Job struct {
	Script  string `json:"script"`
	Name    string `json:"name"`
	OutFile string `json:"out_file"`
	ErrFile string `json:"err_file"`
	RunFile string `json:"run_file"`
}

// New builds a Job from a shell script body, filling in the default
// relative output paths and a fresh random name.
func New(script string) Job {
	return Job{
		Script:  script,
		Name:    randomName(),
		OutFile: "job.out",
		ErrFile: "job.err",
		RunFile: "run",
	}
}

// WithName returns a copy of j carrying the given name.
func (j Job) WithName(name string) Job {
	j.Name = name
	return j
}

func randomName() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = nameAlphabet[rand.Intn(len(nameAlphabet))]
	}
	return string(b)
}

// RunCmd composes a Job that runs cmd in wrkDir via a small bash wrapper
// script:
//
//	#! /usr/bin/env bash
//	set -x
//	cd <shell-escaped wrkDir>
//	<cmd>
func RunCmd(cmd, wrkDir string) Job {
	script := shellWrapper(cmd, wrkDir)
	return New(script)
}

// OutPath returns the full path to the job's stdout file inside wrkDir.
func (j Job) OutPath(wrkDir string) string { return filepath.Join(wrkDir, j.OutFile) }

// ErrPath returns the full path to the job's stderr file inside wrkDir.
func (j Job) ErrPath(wrkDir string) string { return filepath.Join(wrkDir, j.ErrFile) }

// RunPath returns the full path to the job's run script inside wrkDir.
func (j Job) RunPath(wrkDir string) string { return filepath.Join(wrkDir, j.RunFile) }
