// Package sph drives a particle simulation that lives entirely in device
// memory and draws it every frame.
//
// Five per-particle arrays (position, velocity, force, density, pressure)
// share a single device-local buffer. A Layout computes where each array
// lives inside it, an Uploader writes the initial state once, ComputeStages
// records the three simulation kernels with the barriers that order them, and
// an Orchestrator runs the frame loop: poll input, step the simulation unless
// paused, draw the positions as points, present, wait.
//
// The Vulkan plumbing is in the vkg package at the module root; this package
// only talks to it through small interfaces so the loop logic can be tested
// without a GPU.
package sph
