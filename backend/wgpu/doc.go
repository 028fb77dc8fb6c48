// Package wgpu provides a GPU-backed device using gogpu/wgpu.
//
// The device maps buffer and texture descriptors onto the gogpu/wgpu HAL
// layer. WebGPU tracks resource usage internally, so explicit state
// transitions are recorded for diagnostics but issue no API calls.
//
// Construct the device from an existing HAL device and queue with New,
// or share the device a gpucontext provider owns with FromProvider.
package wgpu
