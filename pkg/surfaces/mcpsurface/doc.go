// Package mcpsurface exposes the mirrored controls to MCP clients over
// stdio. Tools list the controls and turn calls into surface actions, so an
// assistant drives the mixer through the same path as a hardware surface.
package mcpsurface
